package services

import (
	"fmt"
	"time"

	"robotsim-backend/algorithms"
	"robotsim-backend/models"
)

// PathFinder computes the waypoints a robot follows to reach a target.
type PathFinder interface {
	// FindPath returns the top-left positions to visit in order, excluding the
	// robot's start. Empty when the target is unreachable or already touched.
	FindPath(mover *Robot, target Component) []models.Position
	// Resolution is the grid cell size in world units.
	Resolution() int
}

// FactoryPathFinder lays a grid of resolution-sized cells over the factory
// floor and solves it with a shortest-path algorithm.
type FactoryPathFinder struct {
	resolution int
	solver     algorithms.Solver
	metrics    *Metrics
}

// NewFactoryPathFinder creates a finder. A nil solver means Dijkstra.
func NewFactoryPathFinder(resolution int, solver algorithms.Solver, metrics *Metrics) (*FactoryPathFinder, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("path resolution must be positive, got %d", resolution)
	}
	if solver == nil {
		solver = algorithms.Dijkstra{}
	}
	return &FactoryPathFinder{resolution: resolution, solver: solver, metrics: metrics}, nil
}

func (pf *FactoryPathFinder) Resolution() int    { return pf.resolution }
func (pf *FactoryPathFinder) SolverName() string { return pf.solver.Name() }

// Footprint is the shape tested when mover stands at pos. It covers at least a
// whole cell so walls thinner than the resolution still block the grid.
func (pf *FactoryPathFinder) Footprint(mover Component, pos models.Position) models.Shape {
	s := mover.Shape()
	return models.Rect(pos.X, pos.Y, max(s.BoundsWidth(), pf.resolution), max(s.BoundsHeight(), pf.resolution))
}

func (pf *FactoryPathFinder) FindPath(mover *Robot, target Component) []models.Position {
	if mover == nil || target == nil {
		return nil
	}
	started := time.Now()
	defer func() { pf.metrics.observePath(time.Since(started).Seconds()) }()

	pos := mover.Position()
	start := algorithms.Cell{Col: pos.X / pf.resolution, Row: pos.Y / pf.resolution}
	grid := &factoryGrid{pf: pf, factory: mover.factory, mover: mover, target: target, start: start}

	// already at a goal cell, only the snap onto the grid remains
	if grid.IsGoal(start) && grid.Traversable(start) {
		snapped := grid.position(start)
		if snapped != pos {
			return []models.Position{snapped}
		}
		return nil
	}

	cells := pf.solver.Solve(grid, start)
	if len(cells) == 0 {
		return nil
	}
	path := make([]models.Position, len(cells))
	for i, c := range cells {
		path[i] = grid.position(c)
	}
	return path
}

// factoryGrid adapts a factory to the algorithms.Grid contract for one search.
type factoryGrid struct {
	pf      *FactoryPathFinder
	factory *Factory
	mover   Component
	target  Component
	start   algorithms.Cell
}

func (g *factoryGrid) Size() (int, int) {
	return g.factory.Width() / g.pf.resolution, g.factory.Height() / g.pf.resolution
}

func (g *factoryGrid) position(c algorithms.Cell) models.Position {
	return models.Position{X: c.Col * g.pf.resolution, Y: c.Row * g.pf.resolution}
}

// Traversable treats the mover's own cell as free: a robot that has just
// reached one target still overlaps it while planning towards the next.
func (g *factoryGrid) Traversable(c algorithms.Cell) bool {
	fp := g.pf.Footprint(g.mover, g.position(c))
	if !g.factory.InBounds(fp) {
		return false
	}
	return c == g.start || !g.factory.HasObstacleAt(fp, g.target)
}

// IsGoal uses the mover's own footprint, the same test a robot uses to decide
// it has reached its target.
func (g *factoryGrid) IsGoal(c algorithms.Cell) bool {
	p := g.position(c)
	s := g.mover.Shape()
	return g.target.Shape().Overlaps(models.Rect(p.X, p.Y, s.BoundsWidth(), s.BoundsHeight()))
}
