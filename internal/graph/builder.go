package graph

import (
	"fmt"
	"sort"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/weight"
)

type rawEdge struct {
	from, to  NodeID
	length    float64
	isSafe    bool
	roadClass string
}

// Builder accumulates nodes and edges for a Graph.
type Builder struct {
	nodes []Node
	index map[NodeID]int32
	edges []rawEdge
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[NodeID]int32)}
}

// AddNode adds a node. Adding an existing id replaces its coordinates.
func (b *Builder) AddNode(id NodeID, p geo.Point) {
	if i, ok := b.index[id]; ok {
		b.nodes[i].Point = p
		return
	}
	b.index[id] = int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{ID: id, Point: p})
}

// AddEdge adds a directed edge. Non-positive lengths become DefaultEdgeLength.
func (b *Builder) AddEdge(from, to NodeID, length float64, isSafe bool, roadClass string) {
	if length <= 0 {
		length = DefaultEdgeLength
	}
	b.edges = append(b.edges, rawEdge{
		from:      from,
		to:        to,
		length:    length,
		isSafe:    isSafe,
		roadClass: roadClass,
	})
}

// AddBidirectional adds the edge in both directions.
func (b *Builder) AddBidirectional(a, c NodeID, length float64, isSafe bool, roadClass string) {
	b.AddEdge(a, c, length, isSafe, roadClass)
	b.AddEdge(c, a, length, isSafe, roadClass)
}

// Build freezes the graph and precomputes costs for PrecomputedLevels.
func (b *Builder) Build(model *weight.Model) (*Graph, error) {
	if len(b.nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	if model == nil {
		model = weight.Default()
	}

	edges := make([]Edge, 0, len(b.edges))
	for _, re := range b.edges {
		from, ok := b.index[re.from]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownNode, re.from)
		}
		to, ok := b.index[re.to]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownNode, re.to)
		}
		edges = append(edges, Edge{
			From:      from,
			To:        to,
			Length:    re.length,
			IsSafe:    re.isSafe,
			RoadClass: re.roadClass,
		})
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].From < edges[j].From })

	n := len(b.nodes)
	offsets := make([]int32, n+1)
	for _, e := range edges {
		offsets[e.From+1]++
	}
	for i := 1; i <= n; i++ {
		offsets[i] += offsets[i-1]
	}

	nodes := make([]Node, n)
	copy(nodes, b.nodes)
	index := make(map[NodeID]int32, n)
	for id, i := range b.index {
		index[id] = i
	}

	g := &Graph{
		nodes:   nodes,
		index:   index,
		edges:   edges,
		offsets: offsets,
		model:   model,
	}
	g.precompute()
	return g, nil
}

// precompute fills the cost slab for every representative level.
func (g *Graph) precompute() {
	g.costs = make(map[weight.Level][]float64, len(PrecomputedLevels))
	for _, level := range PrecomputedLevels {
		costs := make([]float64, len(g.edges))
		for i, e := range g.edges {
			costs[i] = g.model.EdgeCost(e.Length, e.IsSafe, e.RoadClass, level)
		}
		g.costs[level] = costs
	}
}
