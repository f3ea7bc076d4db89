package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
	"github.com/bikenavi/bikenavi/internal/spatial"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// EngineConfig holds configuration for the route engine.
type EngineConfig struct {
	// Graph is the road network. Required.
	Graph *graph.Graph

	// Parkings is used for routes that end at a parking lot. Optional.
	Parkings *facility.ParkingMatcher

	// Observer receives search statistics. Optional.
	Observer SearchObserver

	// Logger for engine operations.
	Logger zerolog.Logger
}

// Engine computes bicycle routes. It is read-only after construction and
// safe for concurrent use.
type Engine struct {
	graph    *graph.Graph
	nodes    *spatial.Index
	parkings *facility.ParkingMatcher
	observer SearchObserver
	logger   zerolog.Logger
}

// NewEngine builds the nearest-node index and returns a ready engine.
// An empty graph is a configuration error.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Graph == nil || cfg.Graph.NumNodes() == 0 {
		return nil, graph.ErrEmptyGraph
	}

	nodes, err := spatial.NewIndex(cfg.Graph.Points())
	if err != nil {
		return nil, fmt.Errorf("build node index: %w", err)
	}

	parkings := cfg.Parkings
	if parkings == nil {
		parkings = facility.NewParkingMatcher(nil)
	}

	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	cfg.Logger.Info().
		Int("nodes", cfg.Graph.NumNodes()).
		Int("edges", cfg.Graph.NumEdges()).
		Int("parkings", parkings.Len()).
		Str("weight_version", string(cfg.Graph.Model().Version())).
		Msg("route engine initialized")

	return &Engine{
		graph:    cfg.Graph,
		nodes:    nodes,
		parkings: parkings,
		observer: observer,
		logger:   cfg.Logger,
	}, nil
}

// Graph returns the underlying road graph.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// NearestNode returns the graph node closest to p.
func (e *Engine) NearestNode(p geo.Point) graph.Node {
	return e.graph.Node(int32(e.nodes.Nearest(p).Index)) //nolint:gosec // index is bounded by node count
}

// FindPath returns the internal node path from the node nearest origin to
// the node nearest destination.
func (e *Engine) FindPath(ctx context.Context, origin, destination geo.Point, level weight.Level) ([]int32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	src := int32(e.nodes.Nearest(origin).Index)      //nolint:gosec // index is bounded by node count
	dst := int32(e.nodes.Nearest(destination).Index) //nolint:gosec // index is bounded by node count
	weights := e.graph.Weights(level)

	stats := SearchStats{
		Level:       weights.Level(),
		Precomputed: weights.Precomputed(),
		Stage:       StageBBox,
	}
	defer func() {
		stats.Duration = time.Since(start)
		e.observer.ObserveSearch(stats)
	}()

	view := e.graph.Restrict(geo.ExpandedBBox(origin, destination, DefaultMarginRatio))
	if !view.Contains(src) || !view.Contains(dst) {
		stats.Stage = StageWideBBox
		view = e.graph.Restrict(geo.ExpandedBBox(origin, destination, WideMarginRatio))
	}

	var (
		path    []int32
		settled int
		err     = ErrNoPathFound
	)
	if view.Contains(src) && view.Contains(dst) {
		path, settled, err = AStar(view, weights, src, dst)
		stats.Settled = settled
	}
	if errors.Is(err, ErrNoPathFound) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Debug().
			Str("stage", stats.Stage).
			Float64("origin_lon", origin.Lon).
			Float64("origin_lat", origin.Lat).
			Float64("dest_lon", destination.Lon).
			Float64("dest_lat", destination.Lat).
			Msg("restricted search failed, falling back to full graph")

		stats.Stage = StageFull
		stats.Fallback = true
		path, settled, err = AStar(e.graph, weights, src, dst)
		stats.Settled += settled
	}
	if err != nil {
		return nil, err
	}

	stats.Found = true
	return path, nil
}

// Assemble converts a node path into a RouteResult. Between consecutive
// nodes the shortest parallel edge is used.
func (e *Engine) Assemble(path []int32) *RouteResult {
	res := &RouteResult{
		NodePath:    make([]graph.NodeID, len(path)),
		Coordinates: make([]geo.Point, len(path)),
	}
	for i, n := range path {
		node := e.graph.Node(n)
		res.NodePath[i] = node.ID
		res.Coordinates[i] = node.Point
	}

	for i := 1; i < len(path); i++ {
		edge, ok := e.graph.MinEdge(path[i-1], path[i])
		if !ok {
			continue
		}
		res.Distance += edge.Length
		if edge.IsSafe {
			res.SafeDistance += edge.Length
		} else {
			res.NormalDistance += edge.Length
		}
	}

	res.SafetyScore = safetyScore(res.SafeDistance, res.Distance)
	res.Duration = res.Distance / BicycleSpeed
	return res
}

// ComputeDirectRoute returns the bicycle route between two points.
func (e *Engine) ComputeDirectRoute(ctx context.Context, origin, destination geo.Point, level weight.Level) (*RouteResult, error) {
	path, err := e.FindPath(ctx, origin, destination, level)
	if err != nil {
		return nil, err
	}
	return e.Assemble(path), nil
}

// ComputeRouteViaParking rides to the parking lot nearest the destination
// (within ParkingMaxDistance) and walks the rest.
func (e *Engine) ComputeRouteViaParking(ctx context.Context, origin, destination geo.Point, level weight.Level) (*ParkingRoute, error) {
	parking, _, err := e.parkings.Nearest(destination, ParkingMaxDistance)
	if err != nil {
		return nil, err
	}

	leg, err := e.ComputeDirectRoute(ctx, origin, parking.Location, level)
	if err != nil {
		return nil, err
	}

	walk := geo.Haversine(parking.Location, destination)
	walkDuration := walk / WalkSpeed

	return &ParkingRoute{
		Parking:       parking,
		BicycleLeg:    leg,
		WalkDistance:  walk,
		WalkDuration:  walkDuration,
		TotalDistance: leg.Distance + walk,
		TotalDuration: leg.Duration + walkDuration,
	}, nil
}

// ComputeSharedBikeRoute picks a borrow/return station pair from stations
// and routes between them, walking to and from the stations.
func (e *Engine) ComputeSharedBikeRoute(ctx context.Context, origin, destination geo.Point, level weight.Level, stations []facility.Station) (*SharedBikeRoute, error) {
	pair, err := facility.SelectRentalPair(stations, origin, destination, facility.PairOptions{})
	if err != nil {
		return nil, err
	}

	walkTo := geo.Haversine(origin, pair.Borrow.Location)
	leg, err := e.ComputeDirectRoute(ctx, pair.Borrow.Location, pair.Return.Location, level)
	if err != nil {
		return nil, err
	}
	walkFrom := geo.Haversine(pair.Return.Location, destination)
	walkDuration := (walkTo + walkFrom) / WalkSpeed

	return &SharedBikeRoute{
		Borrow:          pair.Borrow,
		Return:          pair.Return,
		WalkToStation:   walkTo,
		BicycleLeg:      leg,
		WalkFromStation: walkFrom,
		WalkDuration:    walkDuration,
		TotalDistance:   walkTo + leg.Distance + walkFrom,
		TotalDuration:   walkDuration + leg.Duration,
	}, nil
}

func safetyScore(safe, total float64) float64 {
	if total <= 0 {
		return NeutralSafetyScore
	}
	return math.Round(safe/total*10*10) / 10
}
