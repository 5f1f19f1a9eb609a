package algorithms

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// GraphDijkstra materializes the traversable grid as a gonum weighted graph
// and runs gonum's Dijkstra. Ties between equally distant goals resolve to
// the first goal in row-major order.
type GraphDijkstra struct{}

func (GraphDijkstra) Name() string { return SolverGraph }

func (GraphDijkstra) Solve(g Grid, start Cell) []Cell {
	grid := newCachedGrid(g)
	if !grid.Traversable(start) || grid.IsGoal(start) {
		return nil
	}

	id := func(c Cell) int64 { return int64(c.Row*grid.cols + c.Col) }
	cell := func(id int64) Cell {
		return Cell{Col: int(id) % grid.cols, Row: int(id) / grid.cols}
	}

	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	var goals []Cell
	for row := 0; row < grid.rows; row++ {
		for col := 0; col < grid.cols; col++ {
			c := Cell{Col: col, Row: row}
			if !grid.Traversable(c) {
				continue
			}
			wg.AddNode(simple.Node(id(c)))
			if grid.IsGoal(c) {
				goals = append(goals, c)
			}
		}
	}
	if len(goals) == 0 {
		return nil
	}

	for row := 0; row < grid.rows; row++ {
		for col := 0; col < grid.cols; col++ {
			c := Cell{Col: col, Row: row}
			if !grid.Traversable(c) {
				continue
			}
			for _, e := range grid.neighbors(c) {
				// undirected: add each edge once
				if id(e.to) < id(c) {
					continue
				}
				wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(id(c)), simple.Node(id(e.to)), e.weight))
			}
		}
	}

	shortest := path.DijkstraFrom(simple.Node(id(start)), wg)

	var best []Cell
	bestWeight := math.Inf(1)
	for _, goal := range goals {
		nodes, weight := shortest.To(id(goal))
		if len(nodes) == 0 || weight >= bestWeight {
			continue
		}
		bestWeight = weight
		best = best[:0]
		for _, n := range nodes[1:] {
			best = append(best, cell(n.ID()))
		}
	}
	return best
}
