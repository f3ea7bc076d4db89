package models

import (
	"github.com/paulmach/orb/geojson"
)

// RoutePoint is a segment endpoint.
type RoutePoint struct {
	Type           string      `json:"type"`
	Coordinates    Coordinates `json:"coordinates"`
	Name           string      `json:"name"`
	ID             string      `json:"id,omitempty"`
	FeeDescription string      `json:"feeDescription,omitempty"`
	Operator       string      `json:"operator,omitempty"`
}

// VoiceInstruction is one spoken announcement.
type VoiceInstruction struct {
	DistanceAlongGeometry float64 `json:"distanceAlongGeometry"`
	Announcement          string  `json:"announcement"`
}

// RouteGeometry is the shape and cost of a segment.
type RouteGeometry struct {
	// Geometry is a GeoJSON LineString.
	Geometry *geojson.Geometry `json:"geometry"`
	// Polyline is the same line as an encoded polyline (precision 5).
	Polyline string  `json:"polyline"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	// SafetyScore is null for walk segments.
	SafetyScore *float64 `json:"safetyScore"`
}

// RouteSegment is one leg of a route.
type RouteSegment struct {
	Type              string             `json:"type"`
	From              RoutePoint         `json:"from"`
	To                RoutePoint         `json:"to"`
	Route             RouteGeometry      `json:"route"`
	VoiceInstructions []VoiceInstruction `json:"voiceInstructions"`
	InstructionSource string             `json:"instructionSource,omitempty"`
}

// RouteSummary aggregates the segments.
type RouteSummary struct {
	TotalDistance      float64 `json:"totalDistance"`
	TotalDuration      float64 `json:"totalDuration"`
	BicycleDistance    float64 `json:"bicycleDistance"`
	WalkDistance       float64 `json:"walkDistance"`
	AverageSafetyScore float64 `json:"averageSafetyScore"`
}

// RouteResponse is the body of GET /v1/route.
type RouteResponse struct {
	Mode     string         `json:"mode"`
	Segments []RouteSegment `json:"segments"`
	Summary  RouteSummary   `json:"summary"`
}

// RouteQuery holds the parsed query of GET /v1/route.
type RouteQuery struct {
	Origin      string   `query:"origin" validate:"required,lonlat"`
	Destination string   `query:"destination" validate:"required,lonlat"`
	Mode        string   `query:"mode" validate:"required,oneof=my-cycle share-cycle"`
	Safety      int      `query:"safety" validate:"required,min=1,max=10"`
	NeedParking bool     `query:"needParking"`
	Operators   []string `query:"operators" validate:"omitempty,dive,required"`
}
