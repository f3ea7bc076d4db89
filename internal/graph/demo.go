package graph

import (
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// Demo node ids.
const (
	DemoKyotoStation  NodeID = 1
	DemoShijoKarasuma NodeID = 2
	DemoNijoCastle    NodeID = 3
	DemoKinkakuji     NodeID = 4
	DemoKiyomizu      NodeID = 5
)

// DemoPoints are the coordinates of the demo landmarks.
var DemoPoints = map[NodeID]geo.Point{
	DemoKyotoStation:  {Lon: 135.7588, Lat: 34.9858},
	DemoShijoKarasuma: {Lon: 135.7593, Lat: 35.0038},
	DemoNijoCastle:    {Lon: 135.7482, Lat: 35.0142},
	DemoKinkakuji:     {Lon: 135.7292, Lat: 35.0394},
	DemoKiyomizu:      {Lon: 135.7850, Lat: 34.9949},
}

// Demo builds the five-landmark Kyoto graph served when no snapshot is
// available. The direct Kyoto Station to Nijo Castle link is short but unsafe.
func Demo(model *weight.Model) (*Graph, error) {
	b := NewBuilder()
	for _, id := range []NodeID{DemoKyotoStation, DemoShijoKarasuma, DemoNijoCastle, DemoKinkakuji, DemoKiyomizu} {
		b.AddNode(id, DemoPoints[id])
	}

	b.AddBidirectional(DemoKyotoStation, DemoShijoKarasuma, 2000, true, "cycleway")
	b.AddBidirectional(DemoShijoKarasuma, DemoNijoCastle, 1800, false, "primary")
	b.AddBidirectional(DemoNijoCastle, DemoKinkakuji, 3000, true, "cycleway")
	b.AddBidirectional(DemoKyotoStation, DemoKiyomizu, 2500, false, "secondary")
	b.AddBidirectional(DemoShijoKarasuma, DemoKiyomizu, 2200, true, "cycleway")
	b.AddBidirectional(DemoKyotoStation, DemoNijoCastle, 3500, false, "primary")

	return b.Build(model)
}
