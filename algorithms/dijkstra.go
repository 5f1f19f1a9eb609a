package algorithms

import "container/heap"

// Dijkstra - hand-rolled Dijkstra over the implicit grid graph
type Dijkstra struct{}

func (Dijkstra) Name() string { return SolverDijkstra }

type node struct {
	cell  Cell
	dist  float64
	seq   int // insertion order, breaks distance ties
	index int // for heap
}

// priorityQueue - min-heap on (dist, seq)
type priorityQueue []*node

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Solve runs Dijkstra from start and stops at the first goal cell settled.
func (Dijkstra) Solve(g Grid, start Cell) []Cell {
	grid := newCachedGrid(g)
	if !grid.Traversable(start) || grid.IsGoal(start) {
		return nil
	}

	dist := map[Cell]float64{start: 0}
	prev := make(map[Cell]Cell)
	settled := make(map[Cell]bool)

	pq := make(priorityQueue, 0)
	heap.Init(&pq)
	heap.Push(&pq, &node{cell: start})
	seq := 0

	for pq.Len() > 0 {
		current := heap.Pop(&pq).(*node)
		if settled[current.cell] {
			continue
		}
		settled[current.cell] = true

		if grid.IsGoal(current.cell) {
			return reconstructPath(prev, start, current.cell)
		}

		for _, e := range grid.neighbors(current.cell) {
			if settled[e.to] {
				continue
			}
			tentative := current.dist + e.weight
			if known, ok := dist[e.to]; ok && tentative >= known {
				continue
			}
			dist[e.to] = tentative
			prev[e.to] = current.cell
			seq++
			heap.Push(&pq, &node{cell: e.to, dist: tentative, seq: seq})
		}
	}

	return nil
}

func reconstructPath(prev map[Cell]Cell, start, goal Cell) []Cell {
	var path []Cell
	for c := goal; c != start; c = prev[c] {
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
