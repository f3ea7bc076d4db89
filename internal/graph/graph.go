// Package graph holds the immutable road network used for bicycle routing.
//
// The network is a directed multigraph kept in compressed adjacency arrays.
// Per-edge costs for a small set of representative safety levels are
// computed once when the graph is built; other levels are evaluated through
// the weight model on every edge visit.
package graph

import (
	"errors"
	"slices"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// Sentinel errors for graph construction.
var (
	// ErrEmptyGraph indicates a graph without nodes. It is a fatal configuration error.
	ErrEmptyGraph = errors.New("road graph has no nodes")
	// ErrUnknownNode indicates an edge referencing a node that was never added.
	ErrUnknownNode = errors.New("edge references unknown node")
)

// DefaultEdgeLength is used for edges whose length is missing or non-positive.
const DefaultEdgeLength = 10.0

// PrecomputedLevels are the safety levels whose costs are stored on every edge.
var PrecomputedLevels = []weight.Level{1, 3, 5, 7, 10}

// NodeID is the external identifier of a node (an OSM node id for imported graphs).
type NodeID int64

// Node is a graph vertex.
type Node struct {
	ID    NodeID
	Point geo.Point
}

// Edge is a directed edge between two internal node indices.
type Edge struct {
	From      int32
	To        int32
	Length    float64
	IsSafe    bool
	RoadClass string
}

// Graph is an immutable directed multigraph.
type Graph struct {
	nodes   []Node
	index   map[NodeID]int32
	edges   []Edge
	offsets []int32
	model   *weight.Model
	costs   map[weight.Level][]float64
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the edge count, parallel edges included.
func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Node returns the node at internal index i.
func (g *Graph) Node(i int32) Node {
	return g.nodes[i]
}

// Contains reports whether i is a node of the graph.
func (g *Graph) Contains(i int32) bool {
	return i >= 0 && int(i) < len(g.nodes)
}

// OutEdges returns the half-open range [first, last) of edge indices leaving i.
func (g *Graph) OutEdges(i int32) (first, last int32) {
	return g.offsets[i], g.offsets[i+1]
}

// Edge returns the edge at index e.
func (g *Graph) Edge(e int32) Edge {
	return g.edges[e]
}

// Lookup resolves an external node id to its internal index.
func (g *Graph) Lookup(id NodeID) (int32, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Points returns the coordinates of every node in index order.
func (g *Graph) Points() []geo.Point {
	pts := make([]geo.Point, len(g.nodes))
	for i, n := range g.nodes {
		pts[i] = n.Point
	}
	return pts
}

// Model returns the weight model the graph was built with.
func (g *Graph) Model() *weight.Model {
	return g.model
}

// MinEdge returns the shortest edge from u to v.
func (g *Graph) MinEdge(u, v int32) (Edge, bool) {
	var (
		best  Edge
		found bool
	)
	first, last := g.OutEdges(u)
	for e := first; e < last; e++ {
		edge := g.edges[e]
		if edge.To != v {
			continue
		}
		if !found || edge.Length < best.Length {
			best = edge
			found = true
		}
	}
	return best, found
}

// Weights returns the cost source for a safety level. Representative levels
// read the precomputed slab; any other level evaluates the weight model.
func (g *Graph) Weights(level weight.Level) Weights {
	level = g.model.Clamp(level)
	if costs, ok := g.costs[level]; ok {
		return Weights{level: level, costs: costs}
	}
	return Weights{level: level, graph: g}
}

// Stats describes the graph for diagnostics.
type Stats struct {
	Nodes             int            `json:"nodes"`
	Edges             int            `json:"edges"`
	SafeEdges         int            `json:"safeEdges"`
	PrecomputedLevels []weight.Level `json:"precomputedLevels"`
	WeightVersion     weight.Version `json:"weightVersion"`
}

// Stats returns node and edge counts and the precomputed levels.
func (g *Graph) Stats() Stats {
	safe := 0
	for _, e := range g.edges {
		if e.IsSafe {
			safe++
		}
	}
	return Stats{
		Nodes:             len(g.nodes),
		Edges:             len(g.edges),
		SafeEdges:         safe,
		PrecomputedLevels: slices.Clone(PrecomputedLevels),
		WeightVersion:     g.model.Version(),
	}
}

// Weights yields per-edge costs for one safety level.
type Weights struct {
	level weight.Level
	costs []float64
	graph *Graph
}

// Level returns the clamped safety level.
func (w Weights) Level() weight.Level {
	return w.level
}

// Precomputed reports whether costs come from the precomputed slab.
func (w Weights) Precomputed() bool {
	return w.costs != nil
}

// Cost returns the cost of edge e.
func (w Weights) Cost(e int32) float64 {
	if w.costs != nil {
		return w.costs[e]
	}
	edge := w.graph.edges[e]
	return w.graph.model.EdgeCost(edge.Length, edge.IsSafe, edge.RoadClass, w.level)
}
