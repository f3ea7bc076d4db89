package osmimport

import (
	"context"
	"strings"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/weight"
)

const kyotoXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="34.9858" lon="135.7588"/>
  <node id="2" lat="34.9900" lon="135.7590"/>
  <node id="3" lat="34.9950" lon="135.7592"/>
  <node id="4" lat="34.9950" lon="135.7650"/>
  <node id="5" lat="35.6812" lon="139.7671"/>
  <way id="10">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="highway" v="cycleway"/>
  </way>
  <way id="11">
    <nd ref="3"/><nd ref="4"/>
    <tag k="highway" v="primary"/>
    <tag k="oneway" v="yes"/>
  </way>
  <way id="12">
    <nd ref="2"/><nd ref="4"/>
    <tag k="highway" v="motorway"/>
  </way>
  <way id="13">
    <nd ref="4"/><nd ref="5"/>
    <tag k="highway" v="residential"/>
  </way>
</osm>`

func TestImport_XML(t *testing.T) {
	scanned := 0
	snap, stats, err := Import(context.Background(), strings.NewReader(kyotoXML), FormatXML, Options{
		Area:     &geo.KyotoServiceArea,
		Progress: func() { scanned++ },
	})
	require.NoError(t, err)

	assert.Equal(t, 9, scanned)
	assert.Equal(t, 5, stats.ScannedNodes)
	assert.Equal(t, 4, stats.ScannedWays)
	assert.Equal(t, 2, stats.KeptWays)
	assert.Equal(t, 4, stats.Nodes)
	// cycleway 1-2-3 both ways, primary 3->4 one way.
	assert.Equal(t, 5, stats.Edges)
	assert.Equal(t, 4, stats.SafeEdges)
	require.Len(t, snap.Edges, 5)

	e := snap.Edges[0]
	assert.Equal(t, int64(1), e.From)
	assert.Equal(t, int64(2), e.To)
	assert.True(t, e.IsSafe)
	assert.Equal(t, "cycleway", e.Highway)
	require.NotNil(t, e.Length)
	assert.InDelta(t, geo.Haversine(geo.Point{Lon: 135.7588, Lat: 34.9858}, geo.Point{Lon: 135.7590, Lat: 34.9900}), *e.Length, 1e-9)

	last := snap.Edges[4]
	assert.Equal(t, int64(3), last.From)
	assert.Equal(t, int64(4), last.To)
	assert.False(t, last.IsSafe)

	g, err := snap.Build(weight.Default())
	require.NoError(t, err)
	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 5, g.NumEdges())
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatPBF, FormatFromPath("kansai-latest.osm.pbf"))
	assert.Equal(t, FormatXML, FormatFromPath("kyoto.osm"))
}

func TestRideable(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"motorway", osm.Tags{{Key: "highway", Value: "motorway"}}, false},
		{"no highway", osm.Tags{{Key: "railway", Value: "rail"}}, false},
		{"bicycle no", osm.Tags{{Key: "highway", Value: "primary"}, {Key: "bicycle", Value: "no"}}, false},
		{"private", osm.Tags{{Key: "highway", Value: "service"}, {Key: "access", Value: "private"}}, false},
		{"private but bikes allowed", osm.Tags{{Key: "highway", Value: "service"}, {Key: "access", Value: "private"}, {Key: "bicycle", Value: "yes"}}, true},
		{"footway", osm.Tags{{Key: "highway", Value: "footway"}}, false},
		{"footway with bikes", osm.Tags{{Key: "highway", Value: "footway"}, {Key: "bicycle", Value: "designated"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rideable(tt.tags))
		})
	}
}

func TestIsSafe(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"cycleway", osm.Tags{{Key: "highway", Value: "cycleway"}}, true},
		{"living street", osm.Tags{{Key: "highway", Value: "living_street"}}, true},
		{"primary", osm.Tags{{Key: "highway", Value: "primary"}}, false},
		{"primary with lane", osm.Tags{{Key: "highway", Value: "primary"}, {Key: "cycleway:left", Value: "lane"}}, true},
		{"shared lane", osm.Tags{{Key: "highway", Value: "primary"}, {Key: "cycleway", Value: "shared_lane"}}, false},
		{"designated", osm.Tags{{Key: "highway", Value: "footway"}, {Key: "bicycle", Value: "designated"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafe(tt.tags))
		})
	}
}

func TestDirections(t *testing.T) {
	tests := []struct {
		name     string
		tags     osm.Tags
		forward  bool
		backward bool
	}{
		{"two way", osm.Tags{}, true, true},
		{"oneway", osm.Tags{{Key: "oneway", Value: "yes"}}, true, false},
		{"reverse", osm.Tags{{Key: "oneway", Value: "-1"}}, false, true},
		{"contraflow", osm.Tags{{Key: "oneway", Value: "yes"}, {Key: "oneway:bicycle", Value: "no"}}, true, true},
		{"roundabout", osm.Tags{{Key: "junction", Value: "roundabout"}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, b := directions(tt.tags)
			assert.Equal(t, tt.forward, f)
			assert.Equal(t, tt.backward, b)
		})
	}
}
