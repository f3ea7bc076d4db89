// Package handler provides the HTTP handlers of the navigation API.
package handler

import (
	"context"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/api/validation"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/navigation"
	"github.com/bikenavi/bikenavi/internal/weight"
	"github.com/bikenavi/bikenavi/pkg/polyline"
)

// Planner plans trips. *navigation.Service satisfies it.
type Planner interface {
	Route(ctx context.Context, req navigation.Request) (*navigation.Plan, error)
}

// RouteHandler serves GET /v1/route.
type RouteHandler struct {
	planner  Planner
	validate *validation.Validator
	logger   zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(planner Planner, v *validation.Validator, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{planner: planner, validate: v, logger: logger}
}

// GetRoute handles GET /v1/route.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	q := models.RouteQuery{
		Origin:      p.Get("origin"),
		Destination: p.Get("destination"),
		Mode:        p.Get("mode"),
		Safety:      p.Int("safety", 0),
		NeedParking: p.Bool("needParking", false),
		Operators:   p.List("operators"),
	}
	if errs := p.Errors(h.validate.Struct(q)); len(errs) > 0 {
		response.ValidationFailed(w, r, errs)
		return
	}

	origin, err := validation.ParseLonLat(q.Origin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	destination, err := validation.ParseLonLat(q.Destination)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	plan, err := h.planner.Route(r.Context(), navigation.Request{
		Mode:        navigation.Mode(q.Mode),
		NeedParking: q.NeedParking,
		Origin:      origin,
		Destination: destination,
		Safety:      weight.Level(q.Safety),
		Operators:   q.Operators,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.OK(w, r, NewRouteResponse(plan))
}

// NewRouteResponse converts a plan to its wire form.
func NewRouteResponse(plan *navigation.Plan) models.RouteResponse {
	segments := make([]models.RouteSegment, len(plan.Segments))
	for i, s := range plan.Segments {
		segments[i] = newRouteSegment(s)
	}
	return models.RouteResponse{
		Mode:     string(plan.Mode),
		Segments: segments,
		Summary: models.RouteSummary{
			TotalDistance:      plan.Summary.TotalDistance,
			TotalDuration:      plan.Summary.TotalDuration,
			BicycleDistance:    plan.Summary.BicycleDistance,
			WalkDistance:       plan.Summary.WalkDistance,
			AverageSafetyScore: plan.Summary.AverageSafetyScore,
		},
	}
}

func newRouteSegment(s navigation.Segment) models.RouteSegment {
	instructions := make([]models.VoiceInstruction, len(s.Instructions))
	for i, vi := range s.Instructions {
		instructions[i] = models.VoiceInstruction{
			DistanceAlongGeometry: vi.DistanceAlongGeometry,
			Announcement:          vi.Announcement,
		}
	}

	return models.RouteSegment{
		Type: string(s.Type),
		From: newRoutePoint(s.From),
		To:   newRoutePoint(s.To),
		Route: models.RouteGeometry{
			Geometry:    lineString(s.Geometry),
			Polyline:    polyline.Encode(s.Geometry),
			Distance:    s.Distance,
			Duration:    s.Duration,
			SafetyScore: s.SafetyScore,
		},
		VoiceInstructions: instructions,
		InstructionSource: s.InstructionSource,
	}
}

func newRoutePoint(wp navigation.Waypoint) models.RoutePoint {
	return models.RoutePoint{
		Type:           string(wp.Type),
		Coordinates:    models.NewCoordinates(wp.Location),
		Name:           wp.Name,
		ID:             wp.ID,
		FeeDescription: wp.FeeDescription,
		Operator:       wp.Operator,
	}
}

func lineString(points []geo.Point) *geojson.Geometry {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return geojson.NewGeometry(ls)
}
