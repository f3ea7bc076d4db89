package facility

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository, seeded
// from a static list such as a YAML file.
type InMemoryRepository struct {
	mu       sync.RWMutex
	parkings map[string]Parking
}

// NewInMemoryRepository creates a repository holding the given parking lots.
func NewInMemoryRepository(parkings ...Parking) *InMemoryRepository {
	r := &InMemoryRepository{parkings: make(map[string]Parking, len(parkings))}
	for _, p := range parkings {
		r.parkings[p.ID] = p
	}
	return r
}

// List returns every parking lot ordered by ID.
func (r *InMemoryRepository) List(_ context.Context) ([]Parking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Parking, 0, len(r.parkings))
	for _, p := range r.parkings {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get retrieves a parking lot by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Parking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parkings[id]
	if !ok {
		return nil, ErrParkingNotFound
	}
	return &p, nil
}

// Put inserts or replaces a parking lot.
func (r *InMemoryRepository) Put(_ context.Context, p Parking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parkings[p.ID] = p
	return nil
}
