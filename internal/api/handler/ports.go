package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/api/validation"
	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/gbfs"
	"github.com/bikenavi/bikenavi/internal/geo"
)

// StationLister lists share-cycle stations. *gbfs.Client satisfies it.
type StationLister interface {
	Stations(ctx context.Context, q gbfs.Query) ([]facility.Station, error)
	Operators() []string
}

// PortHandler serves GET /v1/ports.
type PortHandler struct {
	stations StationLister
	validate *validation.Validator
	logger   zerolog.Logger
	now      func() time.Time
}

// NewPortHandler creates a new PortHandler. stations may be nil when no
// GBFS feed is configured.
func NewPortHandler(stations StationLister, v *validation.Validator, logger zerolog.Logger) *PortHandler {
	return &PortHandler{stations: stations, validate: v, logger: logger, now: time.Now}
}

// ListPorts handles GET /v1/ports.
func (h *PortHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	if h.stations == nil {
		response.Problem(w, r, models.CodeGBFSAPIError, "no share-cycle feed is configured")
		return
	}

	p := newQueryParser(r.URL.Query())
	q := models.PortsQuery{
		Operators: p.List("operators"),
		Near:      p.Get("near"),
		Radius:    p.Int("radius", models.DefaultPortRadius),
		MinBikes:  p.Int("minBikes", models.DefaultPortMinBikes),
		MinDocks:  p.Int("minDocks", models.DefaultPortMinDocks),
	}
	errs := p.Errors(h.validate.Struct(q))
	if unknown := h.unknownOperators(q.Operators); len(unknown) > 0 {
		errs = append(errs, models.FieldError{
			Field:   "operators",
			Message: "unknown operators: " + strings.Join(unknown, ", "),
			Code:    "oneof",
		})
	}
	if len(errs) > 0 {
		response.ValidationFailed(w, r, errs)
		return
	}

	query := gbfs.Query{
		Operators: q.Operators,
		Radius:    float64(q.Radius),
		MinBikes:  q.MinBikes,
		MinDocks:  q.MinDocks,
	}
	var near *geo.Point
	if q.Near != "" {
		pt, err := validation.ParseLonLat(q.Near)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		near = &pt
		query.Near = near
	}

	stations, err := h.stations.Stations(r.Context(), query)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ports := make([]models.Port, len(stations))
	for i, s := range stations {
		ports[i] = newPort(s, near)
	}
	response.OK(w, r, models.PortList{
		Ports:       ports,
		TotalCount:  len(ports),
		LastUpdated: models.Timestamp(h.now()),
	})
}

func (h *PortHandler) unknownOperators(operators []string) []string {
	known := h.stations.Operators()
	var unknown []string
	for _, op := range operators {
		if !slices.Contains(known, op) {
			unknown = append(unknown, op)
		}
	}
	return unknown
}

func newPort(s facility.Station, near *geo.Point) models.Port {
	port := models.Port{
		ID:             s.ID,
		Name:           s.Name,
		Operator:       s.Operator,
		Coordinates:    models.NewCoordinates(s.Location),
		BikesAvailable: s.BikesAvailable,
		DocksAvailable: s.DocksAvailable,
		IsRenting:      s.IsRenting,
		IsReturning:    s.IsReturning,
	}
	if near != nil {
		d := geo.Haversine(*near, s.Location)
		port.Distance = &d
	}
	if !s.LastReported.IsZero() && s.LastReported.Unix() > 0 {
		ts := models.Timestamp(s.LastReported)
		port.LastReported = &ts
	}
	return port
}
