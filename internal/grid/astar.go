package grid

import (
	"container/heap"
	"math"

	"github.com/gabe/mobwatch/internal/models"
)

type neighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{col: 0, row: -1, cost: 1},
	{col: 1, row: 0, cost: 1},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 0, cost: 1},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// FindPath returns world-space waypoints (tile centres) from start to goal,
// both inclusive. The result is empty when either endpoint is off-grid or
// blocked, when no route exists, or when the search exceeds the node cap.
func (g *TileGrid) FindPath(start, goal models.Vec2) []models.Vec2 {
	from, ok := g.Locate(start)
	if !ok || !g.Walkable(from) {
		return nil
	}
	to, ok := g.Locate(goal)
	if !ok || !g.Walkable(to) {
		return nil
	}

	cells, ok := g.astar(from, to)
	if !ok {
		return nil
	}
	path := make([]models.Vec2, len(cells))
	for i, c := range cells {
		path[i] = g.Center(c)
	}
	return path
}

func (g *TileGrid) estimate(a, b Cell) float64 {
	dx := math.Abs(float64(a.Col - b.Col))
	dy := math.Abs(float64(a.Row - b.Row))
	if g.heuristic == HeuristicOctile {
		if dx > dy {
			return dx + (math.Sqrt2-1)*dy
		}
		return dy + (math.Sqrt2-1)*dx
	}
	return dx + dy
}

// canCutCorner rejects diagonal steps that would squeeze between two
// blocked orthogonal neighbours.
func (g *TileGrid) canCutCorner(from Cell, d neighbor) bool {
	if !d.diagonal {
		return true
	}
	return g.Walkable(Cell{Col: from.Col + d.col, Row: from.Row}) &&
		g.Walkable(Cell{Col: from.Col, Row: from.Row + d.row})
}

type pathNode struct {
	cell   Cell
	g      float64
	f      float64
	seq    int
	index  int
	parent *pathNode
}

// pathQueue orders by f, then by insertion so equal scores pop first-in first-out.
type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *TileGrid) astar(start, goal Cell) ([]Cell, bool) {
	open := &pathQueue{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &pathNode{cell: start, f: g.estimate(start, goal), seq: seq})

	gScore := map[int]float64{g.index(start): 0}
	closed := make(map[int]struct{})
	expanded := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		idx := g.index(current.cell)
		if _, seen := closed[idx]; seen {
			continue
		}
		if current.cell == goal {
			return reconstructPath(current), true
		}
		expanded++
		if expanded > g.maxNodes {
			return nil, false
		}
		closed[idx] = struct{}{}

		for _, d := range neighborOffsets {
			next := Cell{Col: current.cell.Col + d.col, Row: current.cell.Row + d.row}
			if !g.Walkable(next) || !g.canCutCorner(current.cell, d) {
				continue
			}
			nIdx := g.index(next)
			if _, seen := closed[nIdx]; seen {
				continue
			}
			tentative := current.g + d.cost
			if prev, ok := gScore[nIdx]; ok && tentative >= prev {
				continue
			}
			gScore[nIdx] = tentative
			seq++
			heap.Push(open, &pathNode{
				cell:   next,
				g:      tentative,
				f:      tentative + g.estimate(next, goal),
				seq:    seq,
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstructPath(end *pathNode) []Cell {
	path := make([]Cell, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.cell)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
