// Package resilience wraps calls to upstream feeds and APIs (GBFS operators,
// Mapbox) with retries, a circuit breaker per upstream and a health registry.
package resilience

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Breaker defaults. Station status is polled every minute, so an open
// circuit is retried within one polling period.
const (
	DefaultBreakerTimeout          = 45 * time.Second
	DefaultTripConsecutiveFailures = 3
	DefaultTripMinRequests         = 5
	DefaultTripFailureRatio        = 0.5
)

// CircuitBreakerConfig holds configuration for the circuit breaker of one
// upstream.
type CircuitBreakerConfig struct {
	// Name identifies the upstream. It is the key reported to the registry.
	Name string

	// MaxRequests is the number of requests allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero never clears.
	Interval time.Duration

	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration

	// ReadyToTrip decides when to open. Nil uses DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called after the registry and log have seen a
	// transition (optional).
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker used for feeds and APIs.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     DefaultBreakerTimeout,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens after DefaultTripConsecutiveFailures failures in
// a row, or once DefaultTripMinRequests requests have been made with at least
// half of them failing.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= DefaultTripConsecutiveFailures {
		return true
	}
	if counts.Requests < DefaultTripMinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= DefaultTripFailureRatio
}

// newCircuitBreaker builds the breaker of a client. Transitions are recorded
// in registry (when set) and logged before cfg.OnStateChange runs.
func newCircuitBreaker(cfg CircuitBreakerConfig, registry *Registry, logger zerolog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if registry != nil {
				registry.RecordStateChange(name, from, to)
			}
			logStateChange(logger, name, from, to)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})
}

func logStateChange(logger zerolog.Logger, name string, from, to gobreaker.State) {
	var event *zerolog.Event
	switch to {
	case gobreaker.StateOpen:
		event = logger.Warn()
	case gobreaker.StateClosed:
		event = logger.Info()
	default:
		event = logger.Debug()
	}
	event.
		Str("provider", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("circuit breaker state changed")
}
