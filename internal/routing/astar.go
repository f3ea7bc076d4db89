package routing

import (
	"container/heap"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
)

type pqItem struct {
	node     int32
	priority float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(pqItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}

// AStar searches v from src to dst using w for edge costs and the haversine
// distance to dst as heuristic. Because costs are length times a factor
// that can fall below 1, the heuristic may overestimate and the path is a
// good route rather than a provably optimal one.
//
// It returns the node path and the number of settled nodes. Nodes rejected
// by v.Contains are never entered.
func AStar(v graph.View, w graph.Weights, src, dst int32) ([]int32, int, error) {
	if !v.Contains(src) || !v.Contains(dst) {
		return nil, 0, ErrNoPathFound
	}

	target := v.Node(dst).Point
	h := func(n int32) float64 {
		return geo.Haversine(v.Node(n).Point, target)
	}

	costSoFar := map[int32]float64{src: 0}
	cameFrom := map[int32]int32{src: -1}
	settled := make(map[int32]struct{})

	pq := &priorityQueue{{node: src, priority: h(src)}}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if _, done := settled[cur.node]; done {
			continue
		}
		settled[cur.node] = struct{}{}

		if cur.node == dst {
			return reconstruct(cameFrom, dst), len(settled), nil
		}

		base := costSoFar[cur.node]
		first, last := v.OutEdges(cur.node)
		for e := first; e < last; e++ {
			next := v.Edge(e).To
			if !v.Contains(next) {
				continue
			}
			if _, done := settled[next]; done {
				continue
			}
			cost := base + w.Cost(e)
			if old, seen := costSoFar[next]; seen && cost >= old {
				continue
			}
			costSoFar[next] = cost
			cameFrom[next] = cur.node
			heap.Push(pq, pqItem{node: next, priority: cost + h(next)})
		}
	}

	return nil, len(settled), ErrNoPathFound
}

func reconstruct(cameFrom map[int32]int32, dst int32) []int32 {
	var path []int32
	for n := dst; n != -1; n = cameFrom[n] {
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
