// Package metrics exposes route search and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bikenavi/bikenavi/internal/routing"
)

const namespace = "bikenavi"

// Metrics holds the collectors of the service and the registry serving them.
type Metrics struct {
	registry *prometheus.Registry

	searches        *prometheus.CounterVec
	searchFallbacks prometheus.Counter
	searchSettled   prometheus.Histogram
	searchDuration  *prometheus.HistogramVec

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_searches_total",
			Help:      "Path searches by final stage and outcome.",
		}, []string{"stage", "outcome"}),
		searchFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_search_fallbacks_total",
			Help:      "Path searches that fell back to the full graph.",
		}),
		searchSettled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_search_settled_nodes",
			Help:      "Nodes settled per path search.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_search_duration_seconds",
			Help:      "Path search latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"precomputed"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.searches, m.searchFallbacks, m.searchSettled, m.searchDuration,
		m.httpDuration, m.httpRequests,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch implements routing.SearchObserver.
func (m *Metrics) ObserveSearch(s routing.SearchStats) {
	outcome := "found"
	if !s.Found {
		outcome = "not_found"
	}
	m.searches.WithLabelValues(s.Stage, outcome).Inc()
	if s.Fallback {
		m.searchFallbacks.Inc()
	}
	m.searchSettled.Observe(float64(s.Settled))
	m.searchDuration.WithLabelValues(strconv.FormatBool(s.Precomputed)).Observe(s.Duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request latency and status per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}
