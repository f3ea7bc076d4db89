package mapbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
)

var trace = []geo.Point{
	{Lon: 135.7588, Lat: 34.9858},
	{Lon: 135.7593, Lat: 35.0038},
	{Lon: 135.7482, Lat: 35.0142},
}

// mockHTTPClient wraps http.Client to implement HTTPDoer interface.
type mockHTTPClient struct {
	client *http.Client
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

// mockFailingClient simulates network errors.
type mockFailingClient struct{}

func (m *mockFailingClient) Do(_ *http.Request) (*http.Response, error) {
	return nil, errors.New("network error")
}

func fixtureServer(t *testing.T, status int, fixture string, check func(r *http.Request)) *httptest.Server {
	t.Helper()

	body, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientConfig{
		AccessToken: "pk.test",
		BaseURL:     server.URL,
		HTTPClient:  &mockHTTPClient{client: server.Client()},
		Logger:      zerolog.Nop(),
	})
}

func TestClient_MapMatch_Success(t *testing.T) {
	server := fixtureServer(t, http.StatusOK, "testdata/matching_response.json", func(r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/matching/v5/mapbox/cycling/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if n := strings.Count(r.URL.Path, ";"); n != len(trace)-1 {
			t.Errorf("expected %d coordinate separators, got %d", len(trace)-1, n)
		}

		q := r.URL.Query()
		want := map[string]string{
			"access_token":        "pk.test",
			"geometries":          "geojson",
			"overview":            "full",
			"steps":               "true",
			"voice_instructions":  "true",
			"banner_instructions": "true",
			"language":            "ja",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("expected %s=%s, got %q", k, v, q.Get(k))
			}
		}
	})

	m, err := newTestClient(server).MapMatch(context.Background(), trace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Distance != 3812.4 {
		t.Errorf("expected distance 3812.4, got %f", m.Distance)
	}
	if m.Duration != 905.1 {
		t.Errorf("expected duration 905.1, got %f", m.Duration)
	}
	if len(m.Geometry) != 5 {
		t.Fatalf("expected 5 geometry points, got %d", len(m.Geometry))
	}
	if m.Geometry[4] != (geo.Point{Lon: 135.7482, Lat: 35.0142}) {
		t.Errorf("unexpected last point %+v", m.Geometry[4])
	}

	// Empty announcements are dropped; offsets accumulate across steps and legs.
	wantDistances := []float64{0, 1900, 3801}
	if len(m.Instructions) != len(wantDistances) {
		t.Fatalf("expected %d instructions, got %d", len(wantDistances), len(m.Instructions))
	}
	for i, d := range wantDistances {
		if got := m.Instructions[i].DistanceAlongGeometry; got != d {
			t.Errorf("instruction %d: expected distance %f, got %f", i, d, got)
		}
	}
	if m.Instructions[2].Announcement != "目的地に到着しました" {
		t.Errorf("unexpected announcement %q", m.Instructions[2].Announcement)
	}
}

func TestClient_MapMatch_DownsamplesLongTraces(t *testing.T) {
	var separators int
	server := fixtureServer(t, http.StatusOK, "testdata/matching_response.json", func(r *http.Request) {
		separators = strings.Count(r.URL.Path, ";")
	})

	long := make([]geo.Point, 350)
	for i := range long {
		long[i] = geo.Point{Lon: 135.75, Lat: 35.0 + float64(i)*0.0001}
	}

	if _, err := newTestClient(server).MapMatch(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if separators+1 > guidance.MaxMatchCoordinates {
		t.Errorf("expected at most %d coordinates, sent %d", guidance.MaxMatchCoordinates, separators+1)
	}
}

func TestClient_MapMatch_NoMatch(t *testing.T) {
	server := fixtureServer(t, http.StatusOK, "testdata/nomatch_response.json", nil)

	_, err := newTestClient(server).MapMatch(context.Background(), trace)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var provErr *guidance.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected guidance.ProviderError, got %T", err)
	}
	if !errors.Is(err, guidance.ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", provErr.Err)
	}
	if provErr.Code != codeNoMatch {
		t.Errorf("expected code %s, got %s", codeNoMatch, provErr.Code)
	}
}

func TestClient_Directions_Success(t *testing.T) {
	server := fixtureServer(t, http.StatusOK, "testdata/directions_response.json", func(r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/directions/v5/mapbox/cycling/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if n := strings.Count(r.URL.Path, ";"); n != 1 {
			t.Errorf("expected origin and destination only, got %d separators", n)
		}
	})

	m, err := newTestClient(server).Directions(context.Background(), trace[0], trace[2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Geometry) != 3 {
		t.Errorf("expected 3 geometry points, got %d", len(m.Geometry))
	}
	if len(m.Instructions) != 1 || m.Instructions[0].Announcement != "Head north" {
		t.Errorf("unexpected instructions %+v", m.Instructions)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"message":"Too Many Requests"}`, guidance.ErrRateLimitExceeded},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Not Authorized - Invalid Token"}`, guidance.ErrProviderUnavailable},
		{"no match", http.StatusUnprocessableEntity, `{"code":"NoMatch","message":"Could not match"}`, guidance.ErrNoMatch},
		{"invalid input", http.StatusUnprocessableEntity, `{"code":"InvalidInput","message":"bad coordinates"}`, guidance.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, `{"message":"Internal"}`, guidance.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server).MapMatch(context.Background(), trace)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient(ClientConfig{
		AccessToken: "pk.test",
		HTTPClient:  &mockFailingClient{},
		Logger:      zerolog.Nop(),
	})

	_, err := client.Directions(context.Background(), trace[0], trace[2])

	var provErr *guidance.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected guidance.ProviderError, got %T", err)
	}
	if !provErr.IsRetryable() {
		t.Error("network errors should be retryable")
	}
}

func TestClient_InvalidCoordinates(t *testing.T) {
	client := NewClient(ClientConfig{AccessToken: "pk.test", HTTPClient: &mockFailingClient{}, Logger: zerolog.Nop()})

	_, err := client.Directions(context.Background(), geo.Point{Lon: 135.75, Lat: 91}, trace[2])
	if !errors.Is(err, guidance.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}

	_, err = client.MapMatch(context.Background(), trace[:1])
	if !errors.Is(err, guidance.ErrTooFewCoordinates) {
		t.Errorf("expected ErrTooFewCoordinates, got %v", err)
	}
}

func TestClient_RegistersWithRegistry(t *testing.T) {
	registry := resilience.NewRegistry()
	client := NewClient(ClientConfig{AccessToken: "pk.test", Registry: registry, Logger: zerolog.Nop()})

	if client.Name() != ProviderName {
		t.Errorf("expected %s, got %s", ProviderName, client.Name())
	}
	if registry.GetHealth(ProviderName) == nil {
		t.Error("expected the default HTTP client to register with the registry")
	}
}

func TestFormatCoordinates(t *testing.T) {
	got := formatCoordinates(trace[:2])
	want := "135.758800,34.985800;135.759300,35.003800"
	if got != want {
		t.Errorf("formatCoordinates() = %s, want %s", got, want)
	}
}
