package guidance

import (
	"context"
	"errors"
	"fmt"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// Predefined errors for instruction providers.
var (
	// ErrProviderUnavailable indicates the turn-by-turn provider could not be reached.
	ErrProviderUnavailable = errors.New("instruction provider unavailable")

	// ErrRateLimitExceeded indicates the provider rejected the call for quota reasons.
	ErrRateLimitExceeded = errors.New("instruction provider rate limit exceeded")

	// ErrNoMatch indicates the provider could not match or route the geometry.
	ErrNoMatch = errors.New("no match found for route geometry")

	// ErrInvalidRequest indicates the provider rejected the request parameters.
	ErrInvalidRequest = errors.New("invalid instruction provider request")

	// ErrProviderNotConfigured is returned when a provider-backed source has no provider.
	ErrProviderNotConfigured = errors.New("instruction provider not configured")

	// ErrTooFewCoordinates is returned for geometries a provider cannot accept.
	ErrTooFewCoordinates = errors.New("at least two coordinates are required")

	// ErrUnknownSource is returned for an unsupported instruction source kind.
	ErrUnknownSource = errors.New("unknown instruction source")
)

// ProviderError provides detailed error information from an instruction provider.
type ProviderError struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *ProviderError) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// Match is a provider's answer: snapped geometry, announcements and the
// provider's own distance and duration.
type Match struct {
	Geometry     []geo.Point
	Instructions []VoiceInstruction
	Distance     float64
	Duration     float64
}

// Provider is an external turn-by-turn service.
type Provider interface {
	Name() string
	// Directions routes between two points.
	Directions(ctx context.Context, origin, destination geo.Point) (*Match, error)
	// MapMatch snaps a trace of at most MaxMatchCoordinates points.
	MapMatch(ctx context.Context, coords []geo.Point) (*Match, error)
}

// Guidance is the result of an InstructionSource.
type Guidance struct {
	// Source names the source that produced the guidance.
	Source string

	Instructions []VoiceInstruction

	// Replaced is set when Geometry, Distance and Duration come from the
	// provider and supersede the computed route.
	Replaced bool
	Geometry []geo.Point
	Distance float64
	Duration float64
}

// InstructionSource produces guidance for a computed bicycle geometry.
type InstructionSource interface {
	Name() string
	Instructions(ctx context.Context, coords []geo.Point) (*Guidance, error)
}

// Source kinds.
const (
	SourceSelf     = "self"
	SourceProvider = "provider"
	SourceHybrid   = "hybrid"
)

// NewSource returns the source of the given kind. provider is required for
// the provider and hybrid kinds.
func NewSource(kind string, gen *Generator, provider Provider) (InstructionSource, error) {
	switch kind {
	case "", SourceSelf:
		return NewSelfSource(gen), nil
	case SourceProvider:
		if provider == nil {
			return nil, ErrProviderNotConfigured
		}
		return NewProviderSource(provider), nil
	case SourceHybrid:
		if provider == nil {
			return nil, ErrProviderNotConfigured
		}
		return NewHybridSource(provider), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}

// SelfSource generates instructions locally.
type SelfSource struct {
	gen *Generator
}

// NewSelfSource wraps gen. A nil generator speaks English.
func NewSelfSource(gen *Generator) *SelfSource {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	return &SelfSource{gen: gen}
}

func (s *SelfSource) Name() string { return SourceSelf }

// Instructions never fails.
func (s *SelfSource) Instructions(_ context.Context, coords []geo.Point) (*Guidance, error) {
	return &Guidance{
		Source:       SourceSelf,
		Instructions: s.gen.Generate(coords),
	}, nil
}

// ProviderSource asks the provider for directions between the endpoints of
// the computed geometry and adopts the provider's route.
type ProviderSource struct {
	provider Provider
}

// NewProviderSource creates a provider-backed source.
func NewProviderSource(p Provider) *ProviderSource {
	return &ProviderSource{provider: p}
}

func (s *ProviderSource) Name() string { return SourceProvider }

func (s *ProviderSource) Instructions(ctx context.Context, coords []geo.Point) (*Guidance, error) {
	if len(coords) < 2 {
		return nil, ErrTooFewCoordinates
	}
	m, err := s.provider.Directions(ctx, coords[0], coords[len(coords)-1])
	if err != nil {
		return nil, err
	}
	return fromMatch(SourceProvider, m), nil
}

// HybridSource submits the down-sampled computed geometry to the provider's
// map matching so the safety-weighted path is kept.
type HybridSource struct {
	provider Provider
}

// NewHybridSource creates a map-matching source.
func NewHybridSource(p Provider) *HybridSource {
	return &HybridSource{provider: p}
}

func (s *HybridSource) Name() string { return SourceHybrid }

func (s *HybridSource) Instructions(ctx context.Context, coords []geo.Point) (*Guidance, error) {
	if len(coords) < 2 {
		return nil, ErrTooFewCoordinates
	}
	m, err := s.provider.MapMatch(ctx, Downsample(coords, MaxMatchCoordinates))
	if err != nil {
		return nil, err
	}
	return fromMatch(SourceHybrid, m), nil
}

func fromMatch(source string, m *Match) *Guidance {
	return &Guidance{
		Source:       source,
		Instructions: m.Instructions,
		Replaced:     len(m.Geometry) > 0,
		Geometry:     m.Geometry,
		Distance:     m.Distance,
		Duration:     m.Duration,
	}
}

// MaxMatchCoordinates is the map matching coordinate limit.
const MaxMatchCoordinates = 100

// Downsample keeps every step-th coordinate, step = len/limit + 1, and
// always keeps the last one. The result never exceeds limit points.
func Downsample(coords []geo.Point, limit int) []geo.Point {
	if limit < 2 || len(coords) <= limit {
		return append([]geo.Point(nil), coords...)
	}

	step := len(coords)/limit + 1
	out := make([]geo.Point, 0, limit)
	for i := 0; i < len(coords); i += step {
		out = append(out, coords[i])
	}

	last := coords[len(coords)-1]
	if (len(coords)-1)%step != 0 {
		if len(out) == limit {
			out[limit-1] = last
		} else {
			out = append(out, last)
		}
	}
	return out
}
