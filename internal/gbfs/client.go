package gbfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the GBFS client.
type ClientConfig struct {
	// Feeds to read. Defaults to DefaultFeeds.
	Feeds []Feed

	// HTTPClient is shared by every feed (optional). If nil, each operator
	// gets its own resilient client named after the operator.
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Observer records feed call latency and outcome (optional).
	Observer resilience.CallObserver

	// Store keeps station_information snapshots across restarts (optional).
	Store *Store

	// Area limits stations to a bounding box. Defaults to the Kyoto service area.
	Area *geo.BBox

	// InfoTTL is how long station_information is cached (default: 24 hours).
	InfoTTL time.Duration

	// StatusTTL is how long station_status is cached (default: 1 minute).
	StatusTTL time.Duration

	// StaleIfErrorTTL allows serving stale status on feed errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Query selects stations.
type Query struct {
	// Operators to include. Empty means every configured operator.
	Operators []string

	// Near, when set, restricts results to Radius meters around it and
	// orders them by distance.
	Near   *geo.Point
	Radius float64

	MinBikes int
	MinDocks int
}

// Client reads and caches GBFS feeds. It is safe for concurrent use.
type Client struct {
	feeds     map[string]Feed
	operators []string
	http      map[string]HTTPDoer
	store     *Store
	area      geo.BBox
	logger    zerolog.Logger

	infoTTL         time.Duration
	statusTTL       time.Duration
	staleIfErrorTTL time.Duration

	// infoFetch and statusFetch serialize feed requests per operator. Their
	// maps are fixed at construction.
	infoFetch   map[string]*sync.Mutex
	statusFetch map[string]*sync.Mutex

	mu     sync.RWMutex
	info   map[string]*cachedInfo
	status map[string]*cachedStatus
}

type cachedInfo struct {
	stations  map[string]StationInfo
	fetchedAt time.Time
	expiresAt time.Time
}

type cachedStatus struct {
	statuses  map[string]StationStatus
	fetchedAt time.Time
	expiresAt time.Time
}

// NewClient creates a new GBFS client.
func NewClient(cfg ClientConfig) *Client {
	feeds := cfg.Feeds
	if len(feeds) == 0 {
		feeds = DefaultFeeds()
	}

	area := geo.KyotoServiceArea
	if cfg.Area != nil {
		area = *cfg.Area
	}

	infoTTL := cfg.InfoTTL
	if infoTTL == 0 {
		infoTTL = DefaultInfoTTL
	}
	statusTTL := cfg.StatusTTL
	if statusTTL == 0 {
		statusTTL = DefaultStatusTTL
	}
	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = DefaultStaleIfErrorTTL
	}

	c := &Client{
		feeds:           make(map[string]Feed, len(feeds)),
		http:            make(map[string]HTTPDoer, len(feeds)),
		store:           cfg.Store,
		area:            area,
		logger:          cfg.Logger,
		infoTTL:         infoTTL,
		statusTTL:       statusTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		infoFetch:       make(map[string]*sync.Mutex, len(feeds)),
		statusFetch:     make(map[string]*sync.Mutex, len(feeds)),
		info:            make(map[string]*cachedInfo),
		status:          make(map[string]*cachedStatus),
	}

	for _, f := range feeds {
		c.feeds[f.Operator] = f
		c.operators = append(c.operators, f.Operator)
		c.infoFetch[f.Operator] = &sync.Mutex{}
		c.statusFetch[f.Operator] = &sync.Mutex{}

		if cfg.HTTPClient != nil {
			c.http[f.Operator] = cfg.HTTPClient
			continue
		}
		clientCfg := resilience.DefaultClientConfig(f.Operator)
		clientCfg.Registry = cfg.Registry
		clientCfg.Observer = cfg.Observer
		clientCfg.Logger = cfg.Logger
		c.http[f.Operator] = resilience.NewClient(clientCfg)
	}

	return c
}

// Operators returns the configured operators in configuration order.
func (c *Client) Operators() []string {
	return append([]string(nil), c.operators...)
}

// Initialize loads station_information for every operator. A failing
// operator is logged and skipped.
func (c *Client) Initialize(ctx context.Context) {
	for _, op := range c.operators {
		info, err := c.stationInfo(ctx, op)
		if err != nil {
			c.logger.Warn().Err(err).Str("operator", op).Msg("failed to load station information")
			continue
		}
		c.logger.Info().
			Str("operator", op).
			Int("stations", len(info)).
			Msg("loaded station information")
	}
}

// Stations joins station information with status and applies q.
func (c *Client) Stations(ctx context.Context, q Query) ([]facility.Station, error) {
	operators := q.Operators
	if len(operators) == 0 {
		operators = c.operators
	}

	var (
		out       []facility.Station
		attempted int
		failed    int
		lastErr   error
	)
	for _, op := range operators {
		if _, ok := c.feeds[op]; !ok {
			c.logger.Debug().Str("operator", op).Msg("skipping unknown operator")
			continue
		}
		attempted++

		stations, err := c.operatorStations(ctx, op, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failed++
			lastErr = err
			c.logger.Error().Err(err).Str("operator", op).Msg("failed to read stations")
			continue
		}
		out = append(out, stations...)
	}

	if attempted > 0 && failed == attempted {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, lastErr)
	}

	if q.Near != nil {
		return nearest(out, *q.Near, q.Radius), nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Client) operatorStations(ctx context.Context, op string, q Query) ([]facility.Station, error) {
	info, err := c.stationInfo(ctx, op)
	if err != nil {
		return nil, err
	}
	statuses, err := c.stationStatus(ctx, op)
	if err != nil {
		return nil, err
	}

	var out []facility.Station
	for id, si := range info {
		st, ok := statuses[id]
		if !ok {
			continue
		}
		if st.NumBikesAvailable < q.MinBikes || st.NumDocksAvailable < q.MinDocks {
			continue
		}

		s := facility.Station{
			ID:             op + "_" + id,
			Name:           si.Name,
			Operator:       op,
			Location:       geo.Point{Lon: si.Lon, Lat: si.Lat},
			BikesAvailable: st.NumBikesAvailable,
			DocksAvailable: st.NumDocksAvailable,
			IsRenting:      st.Renting(),
			IsReturning:    st.Returning(),
			LastReported:   time.Unix(st.LastReported, 0).UTC(),
		}
		if si.Capacity != nil {
			s.Capacity = *si.Capacity
		}
		out = append(out, s)
	}
	return out, nil
}

// nearest keeps stations within radius of center (all when radius <= 0),
// ordered by distance.
func nearest(stations []facility.Station, center geo.Point, radius float64) []facility.Station {
	type hit struct {
		station  facility.Station
		distance float64
	}

	hits := make([]hit, 0, len(stations))
	for _, s := range stations {
		d := geo.Haversine(center, s.Location)
		if radius > 0 && d > radius {
			continue
		}
		hits = append(hits, hit{station: s, distance: d})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].station.ID < hits[j].station.ID
	})

	out := make([]facility.Station, len(hits))
	for i, h := range hits {
		out[i] = h.station
	}
	return out
}

// Refresh refetches station_status of op regardless of its cache age.
func (c *Client) Refresh(ctx context.Context, op string) error {
	if _, ok := c.feeds[op]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	if _, err := c.stationInfo(ctx, op); err != nil {
		return err
	}

	c.mu.Lock()
	if cached, ok := c.status[op]; ok {
		cached.expiresAt = time.Time{}
	}
	c.mu.Unlock()

	_, err := c.stationStatus(ctx, op)
	return err
}

// stationInfo returns the in-area stations of op keyed by station id.
func (c *Client) stationInfo(ctx context.Context, op string) (map[string]StationInfo, error) {
	if cached, ok := c.infoEntry(op); ok && time.Now().Before(cached.expiresAt) {
		return cached.stations, nil
	}

	fetchMu := c.infoFetch[op]
	fetchMu.Lock()
	defer fetchMu.Unlock()

	// Another caller may have fetched while we waited.
	if cached, ok := c.infoEntry(op); ok && time.Now().Before(cached.expiresAt) {
		return cached.stations, nil
	}

	var env envelope[StationInfo]
	err := c.fetch(ctx, op, "station_information", c.feeds[op].StationInformationURL, &env)
	if err != nil {
		if cached, ok := c.infoEntry(op); ok {
			c.logger.Warn().
				Err(err).
				Str("operator", op).
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale station information due to feed error")
			return cached.stations, nil
		}
		if stations, ok := c.loadSnapshot(op); ok {
			return stations, nil
		}
		return nil, err
	}

	now := time.Now()
	inArea := make([]StationInfo, 0, len(env.Data.Stations))
	stations := make(map[string]StationInfo, len(env.Data.Stations))
	for _, s := range env.Data.Stations {
		if s.StationID == "" || !c.area.Contains(geo.Point{Lon: s.Lon, Lat: s.Lat}) {
			continue
		}
		stations[s.StationID] = s
		inArea = append(inArea, s)
	}

	c.mu.Lock()
	c.info[op] = &cachedInfo{stations: stations, fetchedAt: now, expiresAt: now.Add(c.infoTTL)}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveStations(op, inArea, now); err != nil {
			c.logger.Warn().Err(err).Str("operator", op).Msg("failed to persist station snapshot")
		}
	}

	return stations, nil
}

func (c *Client) infoEntry(op string) (*cachedInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.info[op]
	return cached, ok
}

func (c *Client) statusEntry(op string) (*cachedStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.status[op]
	return cached, ok
}

// loadSnapshot fills the info cache of op from the store.
func (c *Client) loadSnapshot(op string) (map[string]StationInfo, bool) {
	if c.store == nil {
		return nil, false
	}

	list, fetchedAt, err := c.store.LoadStations(op)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			c.logger.Warn().Err(err).Str("operator", op).Msg("failed to read station snapshot")
		}
		return nil, false
	}

	stations := make(map[string]StationInfo, len(list))
	for _, s := range list {
		stations[s.StationID] = s
	}
	// Retry the live feed on the status cadence.
	c.mu.Lock()
	c.info[op] = &cachedInfo{stations: stations, fetchedAt: fetchedAt, expiresAt: time.Now().Add(c.statusTTL)}
	c.mu.Unlock()

	c.logger.Warn().
		Str("operator", op).
		Time("fetched_at", fetchedAt).
		Int("stations", len(stations)).
		Msg("using persisted station snapshot")
	return stations, true
}

// stationStatus returns the status of op's in-area stations keyed by id.
func (c *Client) stationStatus(ctx context.Context, op string) (map[string]StationStatus, error) {
	if statuses, ok := c.freshStatus(op); ok {
		return statuses, nil
	}

	fetchMu := c.statusFetch[op]
	fetchMu.Lock()
	defer fetchMu.Unlock()

	if statuses, ok := c.freshStatus(op); ok {
		return statuses, nil
	}

	var env envelope[StationStatus]
	err := c.fetch(ctx, op, "station_status", c.feeds[op].StationStatusURL, &env)
	if err != nil {
		if cached, ok := c.statusEntry(op); ok && time.Now().Before(cached.fetchedAt.Add(c.staleIfErrorTTL)) {
			c.logger.Warn().
				Err(err).
				Str("operator", op).
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale station status due to feed error")
			return cached.statuses, nil
		}
		return nil, err
	}

	var known map[string]StationInfo
	if cached, ok := c.infoEntry(op); ok {
		known = cached.stations
	}

	statuses := make(map[string]StationStatus, len(known))
	for _, s := range env.Data.Stations {
		if _, ok := known[s.StationID]; !ok {
			continue
		}
		statuses[s.StationID] = s
	}

	now := time.Now()
	c.mu.Lock()
	c.status[op] = &cachedStatus{statuses: statuses, fetchedAt: now, expiresAt: now.Add(c.statusTTL)}
	c.mu.Unlock()

	c.logger.Debug().
		Str("operator", op).
		Int("stations", len(statuses)).
		Msg("cached station status")

	return statuses, nil
}

// freshStatus returns the cached status of op if it has not expired.
func (c *Client) freshStatus(op string) (map[string]StationStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cached, ok := c.status[op]; ok && time.Now().Before(cached.expiresAt) {
		return cached.statuses, true
	}
	return nil, false
}

func (c *Client) fetch(ctx context.Context, op, feed, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return &FeedError{Operator: op, Feed: feed, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http[op].Do(req)
	if err != nil {
		return &FeedError{Operator: op, Feed: feed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FeedError{Operator: op, Feed: feed, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FeedError{Operator: op, Feed: feed, Err: fmt.Errorf("decoding: %w", err)}
	}
	return nil
}
