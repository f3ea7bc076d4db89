package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps flags in process memory. Used when no database
// is configured and in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

// NewInMemoryRepository creates a repository holding flags.
func NewInMemoryRepository(flags ...Flag) *InMemoryRepository {
	r := &InMemoryRepository{flags: make(map[string]Flag, len(flags))}
	for _, f := range flags {
		r.flags[f.Key] = f
	}
	return r
}

func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return &f, nil
}

func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.flags))
	for k, f := range r.flags {
		f := f
		out[k] = &f
	}
	return out, nil
}

func (r *InMemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, f := range flags {
		r.flags[f.Key] = Flag{Key: f.Key, Value: f.Value, UpdatedAt: now}
	}
	return nil
}

func (r *InMemoryRepository) DeleteFlag(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flags, key)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
