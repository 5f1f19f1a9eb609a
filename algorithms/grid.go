package algorithms

import (
	"fmt"
	"math"
)

// Cell - grid coordinate (column, row)
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Grid - implicit graph over a uniform grid. Cells outside Size() are
// never visited.
type Grid interface {
	Size() (cols, rows int)
	Traversable(c Cell) bool
	IsGoal(c Cell) bool
}

// Solver - shortest path from start to the nearest goal cell.
//
// The returned path excludes start and ends with the first goal cell reached.
// It is nil when start is not traversable, start is itself a goal, or no
// goal can be reached. Repeated calls on the same grid return the same path.
type Solver interface {
	Name() string
	Solve(g Grid, start Cell) []Cell
}

// Solver names
const (
	SolverDijkstra = "dijkstra"
	SolverGraph    = "graph"
)

// NewSolver - solver by name
func NewSolver(name string) (Solver, error) {
	switch name {
	case "", SolverDijkstra:
		return Dijkstra{}, nil
	case SolverGraph:
		return GraphDijkstra{}, nil
	default:
		return nil, fmt.Errorf("unknown path solver %q", name)
	}
}

// Neighbor visitation order: 4 orthogonal moves, then 4 diagonals.
var directions = [8][2]int{
	{0, 1}, {1, 0}, {0, -1}, {-1, 0},
	{1, 1}, {1, -1}, {-1, -1}, {-1, 1},
}

type edge struct {
	to     Cell
	weight float64
}

// cachedGrid memoizes Traversable, which is the expensive part of a grid
// backed by obstacle queries.
type cachedGrid struct {
	Grid
	cols, rows  int
	traversable map[Cell]bool
}

func newCachedGrid(g Grid) *cachedGrid {
	cols, rows := g.Size()
	return &cachedGrid{
		Grid:        g,
		cols:        cols,
		rows:        rows,
		traversable: make(map[Cell]bool),
	}
}

func (g *cachedGrid) inside(c Cell) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col < g.cols && c.Row < g.rows
}

func (g *cachedGrid) Traversable(c Cell) bool {
	if !g.inside(c) {
		return false
	}
	if v, ok := g.traversable[c]; ok {
		return v
	}
	v := g.Grid.Traversable(c)
	g.traversable[c] = v
	return v
}

// neighbors returns the traversable 8-neighbors of c. A diagonal move is
// only allowed when both orthogonal cells it passes are traversable.
func (g *cachedGrid) neighbors(c Cell) []edge {
	out := make([]edge, 0, len(directions))
	for _, d := range directions {
		next := Cell{Col: c.Col + d[0], Row: c.Row + d[1]}
		if !g.Traversable(next) {
			continue
		}
		weight := 1.0
		if d[0] != 0 && d[1] != 0 {
			if !g.Traversable(Cell{Col: c.Col + d[0], Row: c.Row}) ||
				!g.Traversable(Cell{Col: c.Col, Row: c.Row + d[1]}) {
				continue
			}
			weight = math.Sqrt2
		}
		out = append(out, edge{to: next, weight: weight})
	}
	return out
}

// PathLength - sum of edge weights along start + path, in cells
func PathLength(start Cell, path []Cell) float64 {
	total := 0.0
	prev := start
	for _, c := range path {
		dx := float64(c.Col - prev.Col)
		dy := float64(c.Row - prev.Row)
		total += math.Sqrt(dx*dx + dy*dy)
		prev = c
	}
	return total
}
