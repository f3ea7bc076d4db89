package graph

import "github.com/bikenavi/bikenavi/internal/geo"

// View is read access to a graph, possibly restricted to a node subset.
// Edge indices and weights are shared with the underlying Graph.
type View interface {
	NumNodes() int
	Node(i int32) Node
	Contains(i int32) bool
	OutEdges(i int32) (first, last int32)
	Edge(e int32) Edge
}

// BBoxView restricts a Graph to the nodes inside a bounding box.
// Nothing is copied; membership is evaluated on access.
type BBoxView struct {
	*Graph
	box geo.BBox
}

// Restrict returns a view that only admits nodes inside box.
func (g *Graph) Restrict(box geo.BBox) *BBoxView {
	return &BBoxView{Graph: g, box: box}
}

// Contains reports whether node i is in the graph and inside the box.
func (v *BBoxView) Contains(i int32) bool {
	return v.Graph.Contains(i) && v.box.Contains(v.Graph.Node(i).Point)
}

// Box returns the bounding predicate of the view.
func (v *BBoxView) Box() geo.BBox {
	return v.box
}

var (
	_ View = (*Graph)(nil)
	_ View = (*BBoxView)(nil)
)
