// Package osmimport builds graph snapshots from OpenStreetMap extracts.
package osmimport

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
)

// Format is the encoding of an OSM extract.
type Format int

const (
	FormatXML Format = iota
	FormatPBF
)

// FormatFromPath picks PBF for "*.pbf" and XML otherwise.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(path, ".pbf") {
		return FormatPBF
	}
	return FormatXML
}

// Options control an import.
type Options struct {
	// Area drops nodes outside it. Nil keeps everything.
	Area *geo.BBox
	// Progress is called once per scanned OSM object. Optional.
	Progress func()
}

// Stats summarizes an import.
type Stats struct {
	ScannedNodes int
	ScannedWays  int
	KeptWays     int
	Nodes        int
	Edges        int
	SafeEdges    int
}

var bikeHighways = map[string]bool{
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
	"road":           true,
	"track":          true,
	"cycleway":       true,
	"path":           true,
	"pedestrian":     true,
	"footway":        true,
}

var safeHighways = map[string]bool{
	"cycleway":      true,
	"path":          true,
	"living_street": true,
	"pedestrian":    true,
}

// Import scans r and returns the snapshot of the bicycle network. Nodes
// must precede ways, as in every planet extract.
func Import(ctx context.Context, r io.Reader, format Format, opts Options) (*graph.Snapshot, Stats, error) {
	var scanner osm.Scanner
	switch format {
	case FormatPBF:
		scanner = osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1))
	default:
		scanner = osmxml.New(ctx, r)
	}
	defer scanner.Close()

	b := newSnapshotBuilder(opts.Area)
	for scanner.Scan() {
		if opts.Progress != nil {
			opts.Progress()
		}
		switch o := scanner.Object().(type) {
		case *osm.Node:
			b.node(o)
		case *osm.Way:
			b.way(o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, b.stats, fmt.Errorf("scan osm: %w", err)
	}

	return b.snapshot(), b.stats, nil
}

type snapshotBuilder struct {
	area   *geo.BBox
	coords map[osm.NodeID]geo.Point
	used   map[osm.NodeID]bool
	order  []osm.NodeID
	edges  []graph.SnapshotEdge
	stats  Stats
}

func newSnapshotBuilder(area *geo.BBox) *snapshotBuilder {
	return &snapshotBuilder{
		area:   area,
		coords: make(map[osm.NodeID]geo.Point),
		used:   make(map[osm.NodeID]bool),
	}
}

func (b *snapshotBuilder) node(n *osm.Node) {
	b.stats.ScannedNodes++
	p := geo.Point{Lon: n.Lon, Lat: n.Lat}
	if b.area != nil && !b.area.Contains(p) {
		return
	}
	b.coords[n.ID] = p
}

func (b *snapshotBuilder) way(w *osm.Way) {
	b.stats.ScannedWays++
	if !Rideable(w.Tags) {
		return
	}

	forward, backward := directions(w.Tags)
	highway := w.Tags.Find("highway")
	safe := IsSafe(w.Tags)

	kept := false
	for i := 1; i < len(w.Nodes); i++ {
		from, to := w.Nodes[i-1].ID, w.Nodes[i].ID
		pf, okf := b.coords[from]
		pt, okt := b.coords[to]
		if !okf || !okt || from == to {
			continue
		}
		length := geo.Haversine(pf, pt)
		if forward {
			b.edge(from, to, length, safe, highway)
		}
		if backward {
			b.edge(to, from, length, safe, highway)
		}
		kept = true
	}
	if kept {
		b.stats.KeptWays++
	}
}

func (b *snapshotBuilder) edge(from, to osm.NodeID, length float64, safe bool, highway string) {
	for _, id := range [2]osm.NodeID{from, to} {
		if !b.used[id] {
			b.used[id] = true
			b.order = append(b.order, id)
		}
	}
	l := length
	b.edges = append(b.edges, graph.SnapshotEdge{
		From:    int64(from),
		To:      int64(to),
		Length:  &l,
		IsSafe:  safe,
		Highway: highway,
	})
	b.stats.Edges++
	if safe {
		b.stats.SafeEdges++
	}
}

func (b *snapshotBuilder) snapshot() *graph.Snapshot {
	s := &graph.Snapshot{
		Nodes: make([]graph.SnapshotNode, len(b.order)),
		Edges: b.edges,
	}
	for i, id := range b.order {
		p := b.coords[id]
		s.Nodes[i] = graph.SnapshotNode{ID: int64(id), Lon: &p.Lon, Lat: &p.Lat}
	}
	b.stats.Nodes = len(s.Nodes)
	return s
}

// Rideable reports whether a way with tags can be ridden by bicycle.
func Rideable(tags osm.Tags) bool {
	if !bikeHighways[tags.Find("highway")] {
		return false
	}
	switch tags.Find("bicycle") {
	case "no", "dismount":
		return false
	case "yes", "designated", "permissive":
		return true
	}
	switch tags.Find("access") {
	case "no", "private":
		return false
	}
	// Footways need explicit permission.
	return tags.Find("highway") != "footway"
}

// IsSafe reports whether a way is separated from motor traffic.
func IsSafe(tags osm.Tags) bool {
	if safeHighways[tags.Find("highway")] || tags.Find("bicycle") == "designated" {
		return true
	}
	for _, t := range tags {
		if !strings.HasPrefix(t.Key, "cycleway") {
			continue
		}
		switch t.Value {
		case "lane", "track", "opposite_lane", "opposite_track", "separate":
			return true
		}
	}
	return false
}

// directions returns whether the way may be ridden along and against its
// node order.
func directions(tags osm.Tags) (forward, backward bool) {
	if tags.Find("oneway:bicycle") == "no" {
		return true, true
	}
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return true, false
	case "-1", "reverse":
		return false, true
	}
	if tags.Find("junction") == "roundabout" {
		return true, false
	}
	return true, true
}
