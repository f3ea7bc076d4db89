package navigation

import (
	"fmt"
	"sync"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// Cache defaults.
const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 1000
	DefaultCacheResolution = 10
)

type cachedPlan struct {
	plan      *Plan
	expiresAt time.Time
}

// planCache holds plans keyed by H3 cells of the trip endpoints.
type planCache struct {
	ttl             time.Duration
	maxEntries      int
	resolution      int
	cleanupInterval time.Duration

	mu          sync.RWMutex
	entries     map[string]*cachedPlan
	lastCleanup time.Time
	hits        uint64
	misses      uint64
}

func newPlanCache(ttl time.Duration, maxEntries, resolution int) *planCache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries == 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if resolution == 0 {
		resolution = DefaultCacheResolution
	}
	return &planCache{
		ttl:             ttl,
		maxEntries:      maxEntries,
		resolution:      resolution,
		cleanupInterval: ttl,
		entries:         make(map[string]*cachedPlan),
	}
}

func (c *planCache) cell(p geo.Point) string {
	return h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), c.resolution).String()
}

// key format: {source}:{mode}:{parking}:{safety}:{originCell}:{destinationCell}.
func (c *planCache) key(req Request, source string) string {
	return fmt.Sprintf("%s:%s:%t:%d:%s:%s",
		source, req.Mode, req.NeedParking, req.Safety,
		c.cell(req.Origin), c.cell(req.Destination),
	)
}

func (c *planCache) get(key string) (*Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.entries[key]; ok && time.Now().Before(cached.expiresAt) {
		c.hits++
		return cached.plan, true
	}
	c.misses++
	return nil, false
}

func (c *planCache) put(key string, plan *Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.cleanupIfNeeded(now)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &cachedPlan{plan: plan, expiresAt: now.Add(c.ttl)}
}

func (c *planCache) cleanupIfNeeded(now time.Time) {
	if now.Sub(c.lastCleanup) < c.cleanupInterval {
		return
	}
	c.lastCleanup = now
	for key, cached := range c.entries {
		if now.After(cached.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictOldest drops the entry closest to expiry.
func (c *planCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, cached := range c.entries {
		if oldestKey == "" || cached.expiresAt.Before(oldest) {
			oldestKey, oldest = key, cached.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func (c *planCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedPlan)
}

// CacheStats contains plan cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	Hits         uint64
	Misses       uint64
}

func (c *planCache) stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, cached := range c.entries {
		if now.Before(cached.expiresAt) {
			fresh++
		}
	}
	return CacheStats{
		TotalEntries: len(c.entries),
		FreshEntries: fresh,
		Hits:         c.hits,
		Misses:       c.misses,
	}
}
