package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/navigation"
	"github.com/bikenavi/bikenavi/internal/routing"
	"github.com/bikenavi/bikenavi/internal/weight"
	"github.com/bikenavi/bikenavi/pkg/polyline"
)

// Endpoints of GET /debug/test-route: Kyoto Station to Nijo Castle.
var (
	testRouteOrigin      = geo.Point{Lon: 135.7588, Lat: 34.9858}
	testRouteDestination = geo.Point{Lon: 135.7482, Lat: 35.0142}
)

// DirectRouter computes a plain bicycle route. *routing.Engine satisfies it.
type DirectRouter interface {
	ComputeDirectRoute(ctx context.Context, origin, destination geo.Point, level weight.Level) (*routing.RouteResult, error)
}

// PlanCache exposes the plan cache. *navigation.Service satisfies it.
type PlanCache interface {
	CacheStats() navigation.CacheStats
	InvalidateCache()
	InstructionSourceName(ctx context.Context) string
}

// RefreshReporter reports station status refresh statistics.
// *worker.RefreshJob satisfies it.
type RefreshReporter interface {
	MetricsSnapshot() map[string]interface{}
}

// DebugConfig holds the dependencies of DebugHandler.
type DebugConfig struct {
	Model    *weight.Model
	Router   DirectRouter
	Cache    PlanCache
	Refresh  RefreshReporter
	Settings models.DebugConfig
	Logger   zerolog.Logger
}

// DebugHandler serves /debug endpoints.
type DebugHandler struct {
	cfg DebugConfig
}

// NewDebugHandler creates a new DebugHandler.
func NewDebugHandler(cfg DebugConfig) *DebugHandler {
	return &DebugHandler{cfg: cfg}
}

// WeightFactors handles GET /debug/weight-factors.
func (h *DebugHandler) WeightFactors(w http.ResponseWriter, r *http.Request) {
	rows := h.cfg.Model.Table()
	levels := make([]models.WeightLevel, len(rows))
	for i, row := range rows {
		levels[i] = models.WeightLevel{
			Level:          int(row.Level),
			SafeFactor:     row.SafeFactor,
			NormalFactor:   row.NormalFactor,
			Safe100mCost:   row.Safe100mCost,
			Normal100mCost: row.Normal100mCost,
		}
	}
	response.OK(w, r, models.WeightFactors{
		Version:          string(h.cfg.Model.Version()),
		RoadClassPenalty: h.cfg.Model.RoadClassPenalty(),
		Levels:           levels,
	})
}

// Config handles GET /debug/config.
func (h *DebugHandler) Config(w http.ResponseWriter, r *http.Request) {
	settings := h.cfg.Settings
	if h.cfg.Cache != nil {
		settings.InstructionSource = h.cfg.Cache.InstructionSourceName(r.Context())
	}
	response.OK(w, r, settings)
}

// TestRoute handles GET /debug/test-route?safety=. Routing failures are
// reported in the body with status 200.
func (h *DebugHandler) TestRoute(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	safety := p.Int("safety", 5)
	if errs := p.Errors(nil); len(errs) > 0 {
		response.ValidationFailed(w, r, errs)
		return
	}
	level := h.cfg.Model.Clamp(weight.Level(safety))

	out := models.TestRoute{
		Origin:      "京都駅",
		Destination: "二条城",
		Safety:      int(level),
	}

	res, err := h.cfg.Router.ComputeDirectRoute(r.Context(), testRouteOrigin, testRouteDestination, level)
	if err != nil {
		msg := err.Error()
		out.Error = &msg
		h.cfg.Logger.Warn().Err(err).Int("safety", int(level)).Msg("test route failed")
		response.OK(w, r, out)
		return
	}

	out.Distance = res.Distance
	out.Duration = res.Duration
	out.SafetyScore = res.SafetyScore
	out.SafeRoadRatio = res.SafeRatio()
	out.NodeCount = len(res.NodePath)
	out.Polyline = polyline.Encode(res.Coordinates)
	response.OK(w, r, out)
}

// CacheStats handles GET /debug/cache.
func (h *DebugHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	st := h.cfg.Cache.CacheStats()
	response.OK(w, r, models.CacheInfo{
		TotalEntries: st.TotalEntries,
		FreshEntries: st.FreshEntries,
		Hits:         st.Hits,
		Misses:       st.Misses,
	})
}

// InvalidateCache handles POST /debug/cache/invalidate.
func (h *DebugHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	before := h.cfg.Cache.CacheStats().TotalEntries
	h.cfg.Cache.InvalidateCache()
	h.cfg.Logger.Info().Int("entries", before).Msg("plan cache invalidated")
	response.JSON(w, r, http.StatusNoContent, nil)
}

// RefreshStatus handles GET /debug/refresh.
func (h *DebugHandler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, h.cfg.Refresh.MetricsSnapshot())
}
