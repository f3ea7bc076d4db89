package handler

import (
	"net/http"
	"time"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
)

// GraphStats reports on the loaded road graph. *graph.Graph satisfies it.
type GraphStats interface {
	Stats() graph.Stats
}

// OpsConfig holds the dependencies of OpsHandler.
type OpsConfig struct {
	Version     string
	BuildTime   string
	Graph       GraphStats
	GraphSource string
	Area        geo.BBox
	Registry    *resilience.Registry
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /ready. An empty graph fails the check with
// 503; an open provider circuit degrades it but the API still answers
// with self-computed guidance.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ready := models.Readiness{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Graph:     h.graphInfo(),
		Providers: h.providerStatuses(),
	}

	for _, p := range ready.Providers {
		if p.Status != models.HealthStatusOK {
			ready.Status = models.HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if ready.Graph.Nodes == 0 {
		ready.Status = models.HealthStatusFail
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, ready)
}

// GraphInfo handles GET /debug/graph-info.
func (h *OpsHandler) GraphInfo(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, h.graphInfo())
}

func (h *OpsHandler) graphInfo() models.GraphInfo {
	a := h.cfg.Area
	info := models.GraphInfo{
		Source:      h.cfg.GraphSource,
		ServiceArea: [4]float64{a.MinLon, a.MinLat, a.MaxLon, a.MaxLat},
	}
	if h.cfg.Graph == nil {
		return info
	}

	st := h.cfg.Graph.Stats()
	info.Nodes = st.Nodes
	info.Edges = st.Edges
	info.SafeEdges = st.SafeEdges
	info.WeightVersion = string(st.WeightVersion)
	info.PrecomputedLevels = make([]int, len(st.PrecomputedLevels))
	for i, l := range st.PrecomputedLevels {
		info.PrecomputedLevels[i] = int(l)
	}
	return info
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.cfg.Registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		ps := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        ph.CircuitState.String(),
			ConsecutiveFailures: int(ph.Counts.ConsecutiveFailures),
			Trips:               ph.Trips,
			LastSuccessAt:       timestampPtr(ph.LastSuccessAt),
			LastFailureAt:       timestampPtr(ph.LastFailureAt),
			StateChangedAt:      timestampPtr(ph.StateChangedAt),
		}
		switch {
		case ph.IsUnhealthy():
			ps.Status = models.HealthStatusFail
		case ph.IsDegraded():
			ps.Status = models.HealthStatusDegraded
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
