package handler

import (
	"context"
	"net/http"

	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/featureflags"
)

// FlagLister lists feature flags. *featureflags.Service satisfies it.
type FlagLister interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
	InvalidateCache()
}

// FeatureFlagsHandler exposes feature flags read-only.
type FeatureFlagsHandler struct {
	flags FlagLister
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(flags FlagLister) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{flags: flags}
}

// ListFeatureFlags handles GET /debug/flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, featureflags.NewFlagList(h.flags.GetAllFlags(r.Context())))
}

// InvalidateCache handles POST /debug/flags/invalidate so a flag changed in
// the database takes effect before the cache TTL.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.flags.InvalidateCache()
	response.JSON(w, r, http.StatusNoContent, nil)
}
