package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/gbfs"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/routing"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// Flag keys read by the service. They match the featureflags package keys.
const (
	FlagInstructionProviderDisabled = "instruction_provider_disabled"
	FlagShareCycleDisabled          = "share_cycle_disabled"
)

// Router computes the bicycle part of each mode. *routing.Engine satisfies it.
type Router interface {
	ComputeDirectRoute(ctx context.Context, origin, destination geo.Point, level weight.Level) (*routing.RouteResult, error)
	ComputeRouteViaParking(ctx context.Context, origin, destination geo.Point, level weight.Level) (*routing.ParkingRoute, error)
	ComputeSharedBikeRoute(ctx context.Context, origin, destination geo.Point, level weight.Level, stations []facility.Station) (*routing.SharedBikeRoute, error)
}

// StationSource lists share-cycle stations. *gbfs.Client satisfies it.
type StationSource interface {
	Stations(ctx context.Context, q gbfs.Query) ([]facility.Station, error)
}

// FlagChecker evaluates boolean feature flags.
type FlagChecker interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the navigation service.
type ServiceConfig struct {
	Router   Router
	Stations StationSource

	// Instructions is the configured guidance source. Nil means self-computed.
	Instructions guidance.InstructionSource
	// Generator backs the self-computed source used when the provider is
	// disabled by flag.
	Generator *guidance.Generator
	Flags     FlagChecker

	// Area rejects endpoints outside it. Nil disables the check.
	Area *geo.BBox

	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheResolution int

	Logger zerolog.Logger
}

// Service plans trips.
type Service struct {
	router   Router
	stations StationSource
	source   guidance.InstructionSource
	self     guidance.InstructionSource
	flags    FlagChecker
	area     *geo.BBox
	cache    *planCache
	logger   zerolog.Logger
}

// NewService creates a navigation service.
func NewService(cfg ServiceConfig) *Service {
	gen := cfg.Generator
	if gen == nil {
		gen = guidance.NewGenerator(nil)
	}
	self := guidance.NewSelfSource(gen)

	source := cfg.Instructions
	if source == nil {
		source = self
	}

	return &Service{
		router:   cfg.Router,
		stations: cfg.Stations,
		source:   source,
		self:     self,
		flags:    cfg.Flags,
		area:     cfg.Area,
		cache:    newPlanCache(cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheResolution),
		logger:   cfg.Logger,
	}
}

// Route plans req. Share-cycle plans are never cached.
func (s *Service) Route(ctx context.Context, req Request) (*Plan, error) {
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}
	if err := s.checkArea(req); err != nil {
		return nil, err
	}

	source := s.instructionSource(ctx)

	if req.Mode == ModeShareCycle {
		return s.planShareCycle(ctx, req, source)
	}

	key := s.cache.key(req, source.Name())
	if plan, ok := s.cache.get(key); ok {
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for plan")
		return forRequest(plan, req), nil
	}

	var (
		plan *Plan
		err  error
	)
	if req.NeedParking {
		plan, err = s.planViaParking(ctx, req, source)
	} else {
		plan, err = s.planDirect(ctx, req, source)
	}
	if err != nil {
		return nil, err
	}

	s.cache.put(key, plan)
	return plan, nil
}

// InvalidateCache clears all cached plans.
func (s *Service) InvalidateCache() {
	s.cache.invalidate()
}

// CacheStats returns plan cache statistics.
func (s *Service) CacheStats() CacheStats {
	return s.cache.stats()
}

// InstructionSourceName is the source used for requests right now.
func (s *Service) InstructionSourceName(ctx context.Context) string {
	return s.instructionSource(ctx).Name()
}

func (s *Service) instructionSource(ctx context.Context) guidance.InstructionSource {
	if s.flags != nil && s.flags.IsEnabled(ctx, FlagInstructionProviderDisabled) {
		return s.self
	}
	return s.source
}

func (s *Service) checkArea(req Request) error {
	if s.area == nil {
		return nil
	}
	if !s.area.Contains(req.Origin) {
		return fmt.Errorf("%w: origin %s", ErrOutOfServiceArea, req.Origin)
	}
	if !s.area.Contains(req.Destination) {
		return fmt.Errorf("%w: destination %s", ErrOutOfServiceArea, req.Destination)
	}
	return nil
}

func (s *Service) planDirect(ctx context.Context, req Request, source guidance.InstructionSource) (*Plan, error) {
	leg, err := s.router.ComputeDirectRoute(ctx, req.Origin, req.Destination, req.Safety)
	if err != nil {
		return nil, err
	}

	ride, err := s.bicycleSegment(ctx, source, originPoint(req.Origin), destinationPoint(req.Destination), leg)
	if err != nil {
		return nil, err
	}
	return newPlan(ModeMyCycle, ride), nil
}

func (s *Service) planViaParking(ctx context.Context, req Request, source guidance.InstructionSource) (*Plan, error) {
	route, err := s.router.ComputeRouteViaParking(ctx, req.Origin, req.Destination, req.Safety)
	if err != nil {
		return nil, err
	}

	parking := Waypoint{
		Type:           PointParking,
		Location:       route.Parking.Location,
		Name:           route.Parking.Name,
		ID:             route.Parking.ID,
		FeeDescription: route.Parking.FeeDescription,
	}

	ride, err := s.bicycleSegment(ctx, source, originPoint(req.Origin), parking, route.BicycleLeg)
	if err != nil {
		return nil, err
	}
	walk := walkSegment(parking, destinationPoint(req.Destination), route.WalkDistance, route.WalkDuration)

	return newPlan(ModeMyCycle, ride, walk), nil
}

func (s *Service) planShareCycle(ctx context.Context, req Request, source guidance.InstructionSource) (*Plan, error) {
	if s.stations == nil || (s.flags != nil && s.flags.IsEnabled(ctx, FlagShareCycleDisabled)) {
		return nil, ErrShareCycleDisabled
	}

	operators := req.Operators
	if len(operators) == 0 {
		operators = DefaultOperators
	}

	// Availability thresholds are applied per side by the pair selection:
	// a return port needs docks, not bikes.
	stations, err := s.stations.Stations(ctx, gbfs.Query{Operators: operators})
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: operators %v", ErrNoPortAvailable, operators)
	}

	route, err := s.router.ComputeSharedBikeRoute(ctx, req.Origin, req.Destination, req.Safety, stations)
	if err != nil {
		if errors.Is(err, facility.ErrNoStationAvailable) {
			return nil, fmt.Errorf("%w: %w", ErrNoPortAvailable, err)
		}
		return nil, err
	}

	borrow := portPoint(route.Borrow)
	ret := portPoint(route.Return)
	origin := originPoint(req.Origin)
	dest := destinationPoint(req.Destination)

	ride, err := s.bicycleSegment(ctx, source, borrow, ret, route.BicycleLeg)
	if err != nil {
		return nil, err
	}
	walkTo := walkSegment(origin, borrow, route.WalkToStation, route.WalkToStation/routing.WalkSpeed)
	walkFrom := walkSegment(ret, dest, route.WalkFromStation, route.WalkFromStation/routing.WalkSpeed)

	s.logger.Debug().
		Str("borrow", route.Borrow.ID).
		Str("return", route.Return.ID).
		Int("candidates", len(stations)).
		Msg("planned share-cycle trip")

	return newPlan(ModeShareCycle, walkTo, ride, walkFrom), nil
}

func (s *Service) bicycleSegment(ctx context.Context, source guidance.InstructionSource, from, to Waypoint, leg *routing.RouteResult) (Segment, error) {
	score := leg.SafetyScore
	seg := Segment{
		Type:        SegmentBicycle,
		From:        from,
		To:          to,
		Geometry:    leg.Coordinates,
		Distance:    leg.Distance,
		Duration:    leg.Duration,
		SafetyScore: &score,
	}

	g, err := source.Instructions(ctx, leg.Coordinates)
	if err != nil {
		s.logger.Error().Err(err).
			Str("source", source.Name()).
			Int("coordinates", len(leg.Coordinates)).
			Msg("failed to produce voice instructions")
		return Segment{}, err
	}

	seg.Instructions = g.Instructions
	seg.InstructionSource = g.Source
	if g.Replaced {
		seg.Geometry = g.Geometry
		if g.Distance > 0 {
			seg.Distance = g.Distance
		}
		if g.Duration > 0 {
			seg.Duration = g.Duration
		}
	}
	return seg, nil
}

func walkSegment(from, to Waypoint, distance, duration float64) Segment {
	return Segment{
		Type:     SegmentWalk,
		From:     from,
		To:       to,
		Geometry: []geo.Point{from.Location, to.Location},
		Distance: distance,
		Duration: duration,
	}
}

func newPlan(mode Mode, segments ...Segment) *Plan {
	return &Plan{Mode: mode, Segments: segments, Summary: summarize(segments)}
}

func originPoint(p geo.Point) Waypoint {
	return Waypoint{Type: PointOrigin, Location: p, Name: OriginName}
}

func destinationPoint(p geo.Point) Waypoint {
	return Waypoint{Type: PointDestination, Location: p, Name: DestinationName}
}

func portPoint(st facility.Station) Waypoint {
	return Waypoint{
		Type:     PointPort,
		Location: st.Location,
		Name:     st.Name,
		ID:       st.ID,
		Operator: st.Operator,
	}
}

// forRequest returns a copy of a cached plan fitted to req. The bicycle
// leg and the chosen parking are reused; the trip endpoints become the exact
// request points and a trailing walk leg is recomputed to the request's
// destination.
func forRequest(plan *Plan, req Request) *Plan {
	out := *plan
	out.Segments = make([]Segment, len(plan.Segments))
	copy(out.Segments, plan.Segments)

	n := len(out.Segments)
	if n == 0 {
		return &out
	}
	out.Segments[0].From.Location = req.Origin

	last := &out.Segments[n-1]
	if last.Type == SegmentWalk {
		distance := geo.Haversine(last.From.Location, req.Destination)
		*last = walkSegment(last.From, destinationPoint(req.Destination), distance, distance/routing.WalkSpeed)
	} else {
		last.To.Location = req.Destination
	}
	out.Summary = summarize(out.Segments)
	return &out
}
