package routing

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
	"github.com/bikenavi/bikenavi/internal/weight"
)

type recordingObserver struct {
	mu    sync.Mutex
	stats []SearchStats
}

func (o *recordingObserver) ObserveSearch(s SearchStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, s)
}

func (o *recordingObserver) last() SearchStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats[len(o.stats)-1]
}

func newDemoEngine(t *testing.T, parkings ...facility.Parking) (*Engine, *recordingObserver) {
	t.Helper()

	g, err := graph.Demo(weight.Default())
	require.NoError(t, err)

	obs := &recordingObserver{}
	e, err := NewEngine(EngineConfig{
		Graph:    g,
		Parkings: facility.NewParkingMatcher(parkings),
		Observer: obs,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return e, obs
}

var (
	kyotoStation = graph.DemoPoints[graph.DemoKyotoStation]
	nijoCastle   = graph.DemoPoints[graph.DemoNijoCastle]
)

func TestNewEngine_NilGraph(t *testing.T) {
	_, err := NewEngine(EngineConfig{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, graph.ErrEmptyGraph)
}

func TestComputeDirectRoute_Demo(t *testing.T) {
	e, obs := newDemoEngine(t)

	res, err := e.ComputeDirectRoute(context.Background(), kyotoStation, nijoCastle, 5)
	require.NoError(t, err)

	require.NotEmpty(t, res.NodePath)
	assert.Equal(t, graph.DemoKyotoStation, res.NodePath[0])
	assert.Equal(t, graph.DemoNijoCastle, res.NodePath[len(res.NodePath)-1])
	assert.Greater(t, res.Distance, 0.0)
	assert.GreaterOrEqual(t, res.SafetyScore, 0.0)
	assert.LessOrEqual(t, res.SafetyScore, 10.0)

	// The detour through Shijo Karasuma rides 2000 m of cycleway.
	assert.Equal(t, []graph.NodeID{graph.DemoKyotoStation, graph.DemoShijoKarasuma, graph.DemoNijoCastle}, res.NodePath)
	assert.InDelta(t, 3800.0, res.Distance, 1e-9)
	assert.InDelta(t, 5.3, res.SafetyScore, 1e-9)

	stats := obs.last()
	assert.True(t, stats.Found)
	assert.Equal(t, StageBBox, stats.Stage)
	assert.True(t, stats.Precomputed)
	assert.False(t, stats.Fallback)
}

func TestComputeDirectRoute_SafetyLevelsOnDemo(t *testing.T) {
	e, _ := newDemoEngine(t)
	ctx := context.Background()

	low, err := e.ComputeDirectRoute(ctx, kyotoStation, nijoCastle, 1)
	require.NoError(t, err)
	high, err := e.ComputeDirectRoute(ctx, kyotoStation, nijoCastle, 10)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, high.SafeRatio(), low.SafeRatio())
}

// A short unsafe link competes with a longer all-cycleway detour.
func detourGraph(t *testing.T) *graph.Graph {
	t.Helper()

	b := graph.NewBuilder()
	b.AddNode(1, geo.Point{Lon: 135.750, Lat: 35.000})
	b.AddNode(2, geo.Point{Lon: 135.760, Lat: 35.000})
	b.AddNode(3, geo.Point{Lon: 135.755, Lat: 35.003})
	b.AddEdge(1, 2, 1000, false, "primary")
	b.AddEdge(1, 3, 900, true, "cycleway")
	b.AddEdge(3, 2, 900, true, "cycleway")

	g, err := b.Build(weight.Default())
	require.NoError(t, err)
	return g
}

func TestComputeDirectRoute_SafetyLevelChangesChoice(t *testing.T) {
	g := detourGraph(t)
	e, err := NewEngine(EngineConfig{Graph: g, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	i1, _ := g.Lookup(1)
	i2, _ := g.Lookup(2)
	from, to := g.Node(i1).Point, g.Node(i2).Point

	low, err := e.ComputeDirectRoute(ctx, from, to, 1)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{1, 2}, low.NodePath)
	assert.Equal(t, 0.0, low.SafeRatio())

	high, err := e.ComputeDirectRoute(ctx, from, to, 10)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{1, 3, 2}, high.NodePath)
	assert.Equal(t, 1.0, high.SafeRatio())
	assert.Equal(t, 10.0, high.SafetyScore)
}

func TestFindPath_FallsBackToFullGraph(t *testing.T) {
	b := graph.NewBuilder()
	b.AddNode(1, geo.Point{Lon: 135.750, Lat: 35.000})
	b.AddNode(2, geo.Point{Lon: 135.760, Lat: 35.000})
	// The only connection leaves every bounding box around 1 and 2.
	b.AddNode(3, geo.Point{Lon: 135.850, Lat: 35.100})
	b.AddEdge(1, 3, 15000, false, "")
	b.AddEdge(3, 2, 15000, false, "")

	g, err := b.Build(nil)
	require.NoError(t, err)

	obs := &recordingObserver{}
	e, err := NewEngine(EngineConfig{Graph: g, Observer: obs, Logger: zerolog.Nop()})
	require.NoError(t, err)

	i1, _ := g.Lookup(1)
	i2, _ := g.Lookup(2)
	res, err := e.ComputeDirectRoute(context.Background(), g.Node(i1).Point, g.Node(i2).Point, 5)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{1, 3, 2}, res.NodePath)

	stats := obs.last()
	assert.True(t, stats.Fallback)
	assert.Equal(t, StageFull, stats.Stage)
	assert.True(t, stats.Found)
}

func TestFindPath_Disconnected(t *testing.T) {
	b := graph.NewBuilder()
	b.AddNode(1, geo.Point{Lon: 135.750, Lat: 35.000})
	b.AddNode(2, geo.Point{Lon: 135.760, Lat: 35.000})
	b.AddEdge(2, 1, 100, true, "")

	g, err := b.Build(nil)
	require.NoError(t, err)

	obs := &recordingObserver{}
	e, err := NewEngine(EngineConfig{Graph: g, Observer: obs, Logger: zerolog.Nop()})
	require.NoError(t, err)

	i1, _ := g.Lookup(1)
	i2, _ := g.Lookup(2)
	_, err = e.FindPath(context.Background(), g.Node(i1).Point, g.Node(i2).Point, 5)
	assert.ErrorIs(t, err, ErrNoPathFound)
	assert.False(t, obs.last().Found)
}

func TestFindPath_CanceledContext(t *testing.T) {
	e, _ := newDemoEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.FindPath(ctx, kyotoStation, nijoCastle, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_Consistency(t *testing.T) {
	e, _ := newDemoEngine(t)

	for _, level := range []weight.Level{1, 4, 5, 10} {
		res, err := e.ComputeDirectRoute(context.Background(), kyotoStation, graph.DemoPoints[graph.DemoKinkakuji], level)
		require.NoError(t, err)

		assert.Len(t, res.Coordinates, len(res.NodePath))
		assert.InDelta(t, res.Distance, res.SafeDistance+res.NormalDistance, 1e-6)
		assert.InDelta(t, res.Distance/BicycleSpeed, res.Duration, 1e-9)
	}
}

func TestAssemble_ZeroLength(t *testing.T) {
	e, _ := newDemoEngine(t)

	res, err := e.ComputeDirectRoute(context.Background(), kyotoStation, kyotoStation, 5)
	require.NoError(t, err)
	assert.Len(t, res.NodePath, 1)
	assert.Equal(t, 0.0, res.Distance)
	assert.Equal(t, NeutralSafetyScore, res.SafetyScore)
}

func TestComputeRouteViaParking(t *testing.T) {
	parking := facility.Parking{
		ID:             "nijo-east",
		Name:           "Nijo Castle East",
		Location:       geo.Point{Lon: 135.7500, Lat: 35.0140},
		FeeDescription: "150 yen",
	}
	e, _ := newDemoEngine(t, parking)

	res, err := e.ComputeRouteViaParking(context.Background(), kyotoStation, nijoCastle, 5)
	require.NoError(t, err)

	assert.Equal(t, "nijo-east", res.Parking.ID)
	assert.InDelta(t, geo.Haversine(parking.Location, nijoCastle), res.WalkDistance, 1e-9)
	assert.InDelta(t, res.WalkDistance/WalkSpeed, res.WalkDuration, 1e-9)
	assert.InDelta(t, res.BicycleLeg.Distance+res.WalkDistance, res.TotalDistance, 1e-9)
	assert.InDelta(t, res.BicycleLeg.Duration+res.WalkDuration, res.TotalDuration, 1e-9)
}

func TestComputeRouteViaParking_NoneNearby(t *testing.T) {
	e, _ := newDemoEngine(t, facility.Parking{ID: "station", Location: kyotoStation})

	_, err := e.ComputeRouteViaParking(context.Background(), kyotoStation, graph.DemoPoints[graph.DemoKinkakuji], 5)
	assert.ErrorIs(t, err, facility.ErrNoParkingFound)
}

func TestComputeSharedBikeRoute(t *testing.T) {
	e, _ := newDemoEngine(t)

	stations := []facility.Station{
		{ID: "docomo_ks", Operator: "docomo", Location: geo.Point{Lon: 135.7590, Lat: 34.9860}, BikesAvailable: 3, DocksAvailable: 0},
		{ID: "docomo_nijo", Operator: "docomo", Location: geo.Point{Lon: 135.7485, Lat: 35.0140}, BikesAvailable: 0, DocksAvailable: 5},
	}

	res, err := e.ComputeSharedBikeRoute(context.Background(), kyotoStation, nijoCastle, 5, stations)
	require.NoError(t, err)

	assert.Equal(t, "docomo_ks", res.Borrow.ID)
	assert.Equal(t, "docomo_nijo", res.Return.ID)
	assert.Greater(t, res.BicycleLeg.Distance, 0.0)
	assert.InDelta(t, res.WalkToStation+res.BicycleLeg.Distance+res.WalkFromStation, res.TotalDistance, 1e-9)
	assert.InDelta(t, (res.WalkToStation+res.WalkFromStation)/WalkSpeed, res.WalkDuration, 1e-9)
}

func TestComputeSharedBikeRoute_NoStations(t *testing.T) {
	e, _ := newDemoEngine(t)

	_, err := e.ComputeSharedBikeRoute(context.Background(), kyotoStation, nijoCastle, 5, nil)
	assert.ErrorIs(t, err, facility.ErrNoStationAvailable)
}
