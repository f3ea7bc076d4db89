// Package spatial provides exact nearest-point lookups over a fixed point set.
//
// Points are held in an R-tree for candidate pruning, but every answer is
// decided by haversine distance, so results match a linear scan exactly.
package spatial

import (
	"errors"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// ErrEmptyIndex is returned when an index is built over no points.
var ErrEmptyIndex = errors.New("spatial index has no points")

const (
	// R-tree fan-out: 2 dimensions, 25 min and 50 max entries per node.
	treeDims       = 2
	treeMinEntries = 25
	treeMaxEntries = 50

	pointTolerance = 1e-9
	// minSearchRadius keeps search rectangles non-degenerate.
	minSearchRadius = 0.5
)

type entry struct {
	idx int
	loc rtreego.Point
}

func (e *entry) Bounds() rtreego.Rect {
	return e.loc.ToRect(pointTolerance)
}

// Hit is a matched point and its distance from the query, in meters.
type Hit struct {
	Index    int
	Distance float64
}

// Index answers nearest and radius queries over a fixed set of points.
// It is safe for concurrent reads.
type Index struct {
	tree   *rtreego.Rtree
	points []geo.Point
}

// NewIndex builds an index. Indices in results refer to positions in points.
func NewIndex(points []geo.Point) (*Index, error) {
	if len(points) == 0 {
		return nil, ErrEmptyIndex
	}

	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = &entry{idx: i, loc: rtreego.Point{p.Lon, p.Lat}}
	}

	pts := make([]geo.Point, len(points))
	copy(pts, points)

	return &Index{
		tree:   rtreego.NewTree(treeDims, treeMinEntries, treeMaxEntries, objs...),
		points: pts,
	}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return len(ix.points)
}

// Point returns the indexed point i.
func (ix *Index) Point(i int) geo.Point {
	return ix.points[i]
}

// Nearest returns the point with the smallest haversine distance to p.
// Ties resolve to the lowest index.
func (ix *Index) Nearest(p geo.Point) Hit {
	// Planar nearest neighbour in degree space is only a candidate; any
	// closer point must fall inside the box covering its haversine radius.
	cand := ix.tree.NearestNeighbor(rtreego.Point{p.Lon, p.Lat}).(*entry)
	radius := geo.Haversine(p, ix.points[cand.idx])

	best := Hit{Index: cand.idx, Distance: radius}
	for _, i := range ix.candidates(p, radius) {
		d := geo.Haversine(p, ix.points[i])
		if d < best.Distance || (d == best.Distance && i < best.Index) {
			best = Hit{Index: i, Distance: d}
		}
	}
	return best
}

// Within returns every point within radius meters of p, nearest first.
func (ix *Index) Within(p geo.Point, radius float64) []Hit {
	if radius < 0 {
		return nil
	}
	var hits []Hit
	for _, i := range ix.candidates(p, radius) {
		d := geo.Haversine(p, ix.points[i])
		if d <= radius {
			hits = append(hits, Hit{Index: i, Distance: d})
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Index < hits[b].Index
	})
	return hits
}

// NearestWithin returns the nearest point if it lies within radius meters.
func (ix *Index) NearestWithin(p geo.Point, radius float64) (Hit, bool) {
	hits := ix.Within(p, radius)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

// candidates returns indices of points whose R-tree entries intersect the
// box covering radius meters around p.
func (ix *Index) candidates(p geo.Point, radius float64) []int {
	if radius < minSearchRadius {
		radius = minSearchRadius
	}
	// Slack absorbs rounding between the box and the haversine distance.
	box := geo.RadiusBBox(p, radius*(1+1e-6)+minSearchRadius)

	rect, err := rtreego.NewRect(
		rtreego.Point{box.MinLon, box.MinLat},
		[]float64{box.MaxLon - box.MinLon, box.MaxLat - box.MinLat},
	)
	if err != nil {
		return ix.all()
	}

	found := ix.tree.SearchIntersect(rect)
	out := make([]int, len(found))
	for i, s := range found {
		out[i] = s.(*entry).idx
	}
	return out
}

func (ix *Index) all() []int {
	out := make([]int, len(ix.points))
	for i := range out {
		out[i] = i
	}
	return out
}
