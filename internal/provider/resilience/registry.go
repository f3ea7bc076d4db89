package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth represents the health status of a provider.
type ProviderHealth struct {
	// Name is the provider identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful request.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed request.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string

	// Trips counts transitions into the open state.
	Trips int

	// StateChangedAt is the time of the last circuit transition.
	StateChangedAt *time.Time
}

// IsHealthy returns true if the provider is considered healthy.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the provider is in a degraded state (half-open).
func (h *ProviderHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the provider is unhealthy (circuit open).
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks upstream providers (Mapbox, GBFS operators) and their
// circuit state for the readiness endpoint.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registeredProvider
}

type registeredProvider struct {
	client         *Client
	lastSuccessAt  *time.Time
	lastFailureAt  *time.Time
	lastError      string
	trips          int
	stateChangedAt *time.Time
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*registeredProvider),
	}
}

// Register adds a provider client to the registry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &registeredProvider{
		client: client,
	}
}

// Unregister removes a provider from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// RecordSuccess records a successful request for a provider.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request for a provider.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// RecordStateChange records a circuit breaker transition for a provider.
func (r *Registry) RecordStateChange(name string, _, to gobreaker.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.stateChangedAt = &now
		if to == gobreaker.StateOpen {
			p.trips++
		}
	}
}

// GetHealth returns the health status of a specific provider.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	p, ok := r.providers[name]
	var h ProviderHealth
	if ok {
		h = p.snapshot(name)
	}
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	// Breaker state is read outside r.mu: transitions call back into the
	// registry while holding the breaker lock.
	h.CircuitState = p.client.CircuitBreakerState()
	h.Counts = p.client.CircuitBreakerCounts()
	return &h
}

// GetAllHealth returns the health status of all registered providers,
// ordered by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	health := make([]*ProviderHealth, 0, len(r.providers))
	clients := make([]*Client, 0, len(r.providers))
	for name, p := range r.providers {
		h := p.snapshot(name)
		health = append(health, &h)
		clients = append(clients, p.client)
	}
	r.mu.RUnlock()

	for i, h := range health {
		h.CircuitState = clients[i].CircuitBreakerState()
		h.Counts = clients[i].CircuitBreakerCounts()
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })

	return health
}

func (p *registeredProvider) snapshot(name string) ProviderHealth {
	return ProviderHealth{
		Name:           name,
		LastSuccessAt:  p.lastSuccessAt,
		LastFailureAt:  p.lastFailureAt,
		LastError:      p.lastError,
		Trips:          p.trips,
		StateChangedAt: p.stateChangedAt,
	}
}

// Unhealthy returns the names of providers whose circuit is open.
func (r *Registry) Unhealthy() []string {
	var names []string
	for _, h := range r.GetAllHealth() {
		if h.IsUnhealthy() {
			names = append(names, h.Name)
		}
	}
	return names
}

// GetProviderNames returns the names of all registered providers.
func (r *Registry) GetProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
