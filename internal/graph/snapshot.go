package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DataDog/zstd"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// ErrMissingCoordinates indicates a snapshot node without lon or lat.
var ErrMissingCoordinates = errors.New("node is missing coordinates")

// Snapshot is the on-disk representation of a road graph.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge `json:"edges"`
}

// SnapshotNode is a node record. Coordinates are pointers so that missing
// values can be told apart from zero.
type SnapshotNode struct {
	ID  int64    `json:"id"`
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

// SnapshotEdge is a directed edge record. A missing length falls back to
// DefaultEdgeLength.
type SnapshotEdge struct {
	From    int64    `json:"from"`
	To      int64    `json:"to"`
	Length  *float64 `json:"length,omitempty"`
	IsSafe  bool     `json:"is_safe"`
	Highway string   `json:"highway,omitempty"`
}

// Build converts the snapshot into a Graph.
func (s *Snapshot) Build(model *weight.Model) (*Graph, error) {
	b := NewBuilder()
	for _, n := range s.Nodes {
		if n.Lon == nil || n.Lat == nil {
			return nil, fmt.Errorf("%w: %d", ErrMissingCoordinates, n.ID)
		}
		b.AddNode(NodeID(n.ID), geo.Point{Lon: *n.Lon, Lat: *n.Lat})
	}
	for _, e := range s.Edges {
		length := DefaultEdgeLength
		if e.Length != nil {
			length = *e.Length
		}
		b.AddEdge(NodeID(e.From), NodeID(e.To), length, e.IsSafe, e.Highway)
	}
	return b.Build(model)
}

// Decode reads a JSON snapshot.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode graph snapshot: %w", err)
	}
	return &s, nil
}

// Load reads a snapshot file and builds the graph. Files ending in ".zst"
// are zstd-compressed.
func Load(path string, model *weight.Model) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr := zstd.NewReader(f)
		defer zr.Close()
		r = zr
	}

	snap, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return snap.Build(model)
}

// Save writes a snapshot file, compressing it when path ends in ".zst".
func Save(path string, s *Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		zw := zstd.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	return json.NewEncoder(w).Encode(s)
}
