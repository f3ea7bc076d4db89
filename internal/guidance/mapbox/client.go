// Package mapbox provides a client for the Mapbox Map Matching and
// Directions APIs, used as an external turn-by-turn instruction provider.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
)

const (
	// ProviderName identifies this instruction provider.
	ProviderName = "mapbox"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultProfile is the routing profile used for bicycle legs.
	DefaultProfile = "cycling"

	// DefaultLanguage is the announcement language.
	DefaultLanguage = "ja"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Mapbox client.
type ClientConfig struct {
	// AccessToken is the Mapbox access token (required).
	AccessToken string

	// BaseURL is the API base URL (optional, defaults to the Mapbox API).
	BaseURL string

	// Profile is the Mapbox routing profile (optional, defaults to cycling).
	Profile string

	// Language of the voice announcements (optional, defaults to ja).
	Language string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Observer records call latency and outcome (optional).
	Observer resilience.CallObserver

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Mapbox API client. It implements guidance.Provider.
type Client struct {
	accessToken string
	baseURL     string
	profile     string
	language    string
	httpClient  HTTPDoer
	logger      zerolog.Logger
}

var _ guidance.Provider = (*Client)(nil)

// NewClient creates a new Mapbox client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		clientCfg.Observer = cfg.Observer
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
		profile:     profile,
		language:    language,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// MapMatch snaps coords to the road network and returns the first matching.
func (c *Client) MapMatch(ctx context.Context, coords []geo.Point) (*guidance.Match, error) {
	if len(coords) < 2 {
		return nil, guidance.ErrTooFewCoordinates
	}
	if len(coords) > guidance.MaxMatchCoordinates {
		coords = guidance.Downsample(coords, guidance.MaxMatchCoordinates)
	}

	var resp matchingResponse
	if err := c.get(ctx, "/matching/v5/mapbox", coords, &resp); err != nil {
		return nil, err
	}
	if resp.Code != codeOK || len(resp.Matchings) == 0 {
		return nil, noMatch(resp.Code, resp.Message)
	}

	return toMatch(&resp.Matchings[0]), nil
}

// Directions routes from origin to destination and returns the first route.
func (c *Client) Directions(ctx context.Context, origin, destination geo.Point) (*guidance.Match, error) {
	var resp directionsResponse
	if err := c.get(ctx, "/directions/v5/mapbox", []geo.Point{origin, destination}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != codeOK || len(resp.Routes) == 0 {
		return nil, noMatch(resp.Code, resp.Message)
	}

	return toMatch(&resp.Routes[0]), nil
}

func (c *Client) get(ctx context.Context, api string, coords []geo.Point, out any) error {
	for _, p := range coords {
		if err := validateCoordinates(p); err != nil {
			return &guidance.ProviderError{
				Provider: ProviderName,
				Code:     "INVALID_COORDINATES",
				Message:  err.Error(),
				Err:      guidance.ErrInvalidRequest,
			}
		}
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	params.Set("steps", "true")
	params.Set("voice_instructions", "true")
	params.Set("banner_instructions", "true")
	params.Set("language", c.language)

	endpoint := fmt.Sprintf("%s%s/%s/%s?%s", c.baseURL, api, c.profile, formatCoordinates(coords), params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("api", api).
		Str("profile", c.profile).
		Int("coordinates", len(coords)).
		Msg("requesting guidance from Mapbox")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &guidance.ProviderError{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach instruction provider",
			Err:      guidance.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// handleErrorResponse maps Mapbox error responses to provider errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var mbErr errorResponse
	_ = json.Unmarshal(body, &mbErr)

	message := mbErr.Message
	if message == "" {
		message = fmt.Sprintf("instruction provider returned status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &guidance.ProviderError{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      guidance.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &guidance.ProviderError{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check access token configuration",
			Err:      guidance.ErrProviderUnavailable,
		}
	case statusCode == http.StatusUnprocessableEntity && (mbErr.Code == codeNoMatch || mbErr.Code == codeNoRoute):
		return noMatch(mbErr.Code, mbErr.Message)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return &guidance.ProviderError{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      guidance.ErrInvalidRequest,
		}
	case statusCode >= 500:
		return &guidance.ProviderError{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "instruction provider is temporarily unavailable",
			Err:      guidance.ErrProviderUnavailable,
		}
	default:
		return &guidance.ProviderError{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      guidance.ErrProviderUnavailable,
		}
	}
}

func noMatch(code, message string) error {
	if code == "" {
		code = codeNoMatch
	}
	if message == "" {
		message = "no matching found for the route geometry"
	}
	return &guidance.ProviderError{
		Provider: ProviderName,
		Code:     code,
		Message:  message,
		Err:      guidance.ErrNoMatch,
	}
}

// toMatch converts a Mapbox route into the provider-neutral Match. Voice
// instruction offsets are made absolute by adding the distance of the
// preceding steps.
func toMatch(r *route) *guidance.Match {
	m := &guidance.Match{
		Distance: r.Distance,
		Duration: r.Duration,
	}

	if r.Geometry != nil {
		if ls, ok := r.Geometry.Geometry().(orb.LineString); ok {
			m.Geometry = make([]geo.Point, len(ls))
			for i, p := range ls {
				m.Geometry[i] = geo.Point{Lon: p.Lon(), Lat: p.Lat()}
			}
		}
	}

	var cumulative float64
	for _, l := range r.Legs {
		for _, s := range l.Steps {
			for _, vi := range s.VoiceInstructions {
				if vi.Announcement == "" {
					continue
				}
				m.Instructions = append(m.Instructions, guidance.VoiceInstruction{
					DistanceAlongGeometry: cumulative + vi.DistanceAlongGeometry,
					Announcement:          vi.Announcement,
				})
			}
			cumulative += s.Distance
		}
	}

	return m
}

// formatCoordinates renders coords as "lon,lat;lon,lat".
func formatCoordinates(coords []geo.Point) string {
	var b strings.Builder
	for i, p := range coords {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', 6, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', 6, 64))
	}
	return b.String()
}

// validateCoordinates checks if coordinates are within valid ranges.
func validateCoordinates(p geo.Point) error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", p.Lon)
	}
	return nil
}
