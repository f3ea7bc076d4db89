// Package api assembles the HTTP API of the navigation service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api/handler"
	"github.com/bikenavi/bikenavi/internal/api/middleware"
	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/api/validation"
	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/metrics"
	"github.com/bikenavi/bikenavi/internal/navigation"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
	"github.com/bikenavi/bikenavi/internal/routing"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	Navigation *navigation.Service
	Engine     *routing.Engine
	Stations   handler.StationLister
	Parkings   facility.Repository
	Flags      handler.FlagLister
	Registry   *resilience.Registry
	Model      *weight.Model
	// Refresh reports station status refreshes at /debug/refresh (optional).
	Refresh    handler.RefreshReporter

	GraphSource string
	Area        geo.BBox
	Settings    models.DebugConfig

	// HTTPMetrics records otel HTTP metrics (optional).
	HTTPMetrics *middleware.Metrics
	// Metrics serves /metrics (optional).
	Metrics *metrics.Metrics

	CORSOrigins []string
	RequireTLS  bool
	// Debug mounts /debug endpoints.
	Debug bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "bikenavi-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware())
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ContentTypeJSON)

	v := validation.New()
	graphStats := handler.GraphStats(nil)
	if cfg.Engine != nil {
		graphStats = cfg.Engine.Graph()
	}

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:     cfg.Version,
		BuildTime:   cfg.BuildTime,
		Graph:       graphStats,
		GraphSource: cfg.GraphSource,
		Area:        cfg.Area,
		Registry:    cfg.Registry,
	})
	routeHandler := handler.NewRouteHandler(cfg.Navigation, v, cfg.Logger)
	portHandler := handler.NewPortHandler(cfg.Stations, v, cfg.Logger)
	parkingHandler := handler.NewParkingHandler(cfg.Parkings, cfg.Logger)

	r.Get("/health", opsHandler.HealthCheck)
	r.Get("/ready", opsHandler.ReadinessCheck)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/route", routeHandler.GetRoute)
		r.Get("/ports", portHandler.ListPorts)
		r.Route("/parkings", func(r chi.Router) {
			r.Get("/", parkingHandler.ListParkings)
			r.Get("/{id}", parkingHandler.GetParking)
		})
	})

	if cfg.Debug {
		debugHandler := handler.NewDebugHandler(handler.DebugConfig{
			Model:    cfg.Model,
			Router:   cfg.Engine,
			Cache:    cfg.Navigation,
			Refresh:  cfg.Refresh,
			Settings: cfg.Settings,
			Logger:   cfg.Logger,
		})

		r.Route("/debug", func(r chi.Router) {
			r.Get("/weight-factors", debugHandler.WeightFactors)
			r.Get("/graph-info", opsHandler.GraphInfo)
			r.Get("/config", debugHandler.Config)
			r.Get("/test-route", debugHandler.TestRoute)
			r.Get("/cache", debugHandler.CacheStats)
			r.Post("/cache/invalidate", debugHandler.InvalidateCache)
			if cfg.Refresh != nil {
				r.Get("/refresh", debugHandler.RefreshStatus)
			}
			if cfg.Flags != nil {
				flagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags)
				r.Get("/flags", flagsHandler.ListFeatureFlags)
				r.Post("/flags/invalidate", flagsHandler.InvalidateCache)
			}
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint: "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Problem(w, r, models.CodeMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
	})

	return r
}
