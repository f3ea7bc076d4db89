package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository   Repository
	Logger       zerolog.Logger
	CacheTTL     time.Duration // How long to cache flags in memory
	DefaultFlags map[string]*Flag
}

// Service evaluates flags with an in-memory cache and falls back to defaults
// when the repository fails. Safe for concurrent use.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu    sync.RWMutex
	cache map[string]cachedFlag
}

type cachedFlag struct {
	flag      *Flag
	expiresAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository()
	}

	return &Service{
		repo:         repo,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
		cache:        make(map[string]cachedFlag),
	}
}

// GetFlag returns the flag for key, or nil when neither the repository nor
// the defaults know it.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag, ok := s.getCached(key); ok {
		return flag
	}

	flag, err := s.repo.GetFlag(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrFlagNotFound):
		flag = s.defaultFlags[key]
	default:
		s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
		// Do not cache: the next call retries the repository.
		return s.defaultFlags[key]
	}

	s.setCached(key, flag)
	return flag
}

// GetAllFlags returns the stored flags merged over the defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	result := make(map[string]*Flag, len(s.defaultFlags))
	for k, v := range s.defaultFlags {
		result[k] = v
	}

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}
	for k, v := range flags {
		result[k] = v
	}

	s.mu.Lock()
	expiresAt := time.Now().Add(s.cacheTTL)
	for k, v := range result {
		s.cache[k] = cachedFlag{flag: v, expiresAt: expiresAt}
	}
	s.mu.Unlock()

	return result
}

// SetFlags stores flags and refreshes the cache.
func (s *Service) SetFlags(ctx context.Context, flags ...*Flag) error {
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	s.mu.Lock()
	for _, f := range flags {
		delete(s.cache, f.Key)
	}
	s.mu.Unlock()

	s.logger.Info().Int("count", len(flags)).Msg("feature flags updated")
	return nil
}

// InvalidateCache clears the cached flags, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cachedFlag)
}

// IsEnabled reports whether the boolean flag key is on. Unknown flags are off.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

func (s *Service) getCached(key string) (*Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cache[key]
	if !ok || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.flag, true
}

func (s *Service) setCached(key string, flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cachedFlag{flag: flag, expiresAt: time.Now().Add(s.cacheTTL)}
}
