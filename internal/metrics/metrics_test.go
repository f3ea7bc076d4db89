package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/routing"
)

func TestObserveSearch(t *testing.T) {
	m := New()

	m.ObserveSearch(routing.SearchStats{Stage: routing.StageBBox, Found: true, Settled: 40, Duration: time.Millisecond})
	m.ObserveSearch(routing.SearchStats{Stage: routing.StageFull, Found: true, Fallback: true, Settled: 900})
	m.ObserveSearch(routing.SearchStats{Stage: routing.StageFull, Found: false, Fallback: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(routing.StageBBox, "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(routing.StageFull, "not_found")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.searchFallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.searchSettled))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/parkings/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/parkings/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/parkings/{id}", "404")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSearch(routing.SearchStats{Stage: routing.StageBBox, Found: true})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bikenavi_route_searches_total")
}
