// Package routing computes safety-weighted bicycle routes over the road graph.
//
// The Engine resolves endpoints to their nearest graph nodes, runs an A*
// search restricted to a bounding box around the trip (widening to the full
// graph when that fails) and assembles the node path into geometry, distance
// and a safety score.
package routing

import (
	"errors"
	"time"

	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// ErrNoPathFound indicates the endpoints are not connected, even on the full graph.
var ErrNoPathFound = errors.New("no path found between the given points")

// Travel speeds in meters per second.
const (
	// BicycleSpeed is 15 km/h.
	BicycleSpeed = 4.17
	// WalkSpeed is 5 km/h.
	WalkSpeed = 1.4
)

// NeutralSafetyScore is reported for zero-length routes.
const NeutralSafetyScore = 5.0

// ParkingMaxDistance caps the parking search around the destination.
const ParkingMaxDistance = 800.0

// Bounding-box margins for the restricted search.
const (
	DefaultMarginRatio = 0.2
	WideMarginRatio    = 0.5
)

// RouteResult is an assembled bicycle route.
type RouteResult struct {
	NodePath       []graph.NodeID
	Coordinates    []geo.Point
	Distance       float64
	Duration       float64
	SafetyScore    float64
	SafeDistance   float64
	NormalDistance float64
}

// SafeRatio returns the fraction of the distance on safe roads.
func (r *RouteResult) SafeRatio() float64 {
	if r.Distance == 0 {
		return 0
	}
	return r.SafeDistance / r.Distance
}

// ParkingRoute is a ride to a parking lot followed by a walk to the destination.
type ParkingRoute struct {
	Parking       facility.Parking
	BicycleLeg    *RouteResult
	WalkDistance  float64
	WalkDuration  float64
	TotalDistance float64
	TotalDuration float64
}

// SharedBikeRoute is a walk to a rental station, a ride to a return station
// and a walk to the destination.
type SharedBikeRoute struct {
	Borrow          facility.Station
	Return          facility.Station
	WalkToStation   float64
	BicycleLeg      *RouteResult
	WalkFromStation float64
	WalkDuration    float64
	TotalDistance   float64
	TotalDuration   float64
}

// Search stages, in the order they are attempted.
const (
	StageBBox     = "bbox"
	StageWideBBox = "wide_bbox"
	StageFull     = "full"
)

// SearchStats describes one FindPath call.
type SearchStats struct {
	Level       weight.Level
	Precomputed bool
	Stage       string
	Settled     int
	Fallback    bool
	Found       bool
	Duration    time.Duration
}

// SearchObserver receives statistics for every path search.
type SearchObserver interface {
	ObserveSearch(SearchStats)
}

type nopObserver struct{}

func (nopObserver) ObserveSearch(SearchStats) {}
