package mapping

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL is how long a resolved mapping stays cached.
const DefaultCacheTTL = time.Hour

// Cache is an in-process, time-expiring map from (brand, source column, raw
// value) to a resolved catalog entity id. It is an optimization only: the
// persisted value-mapping table stays authoritative, so per-process caches
// need no cross-process coordination. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	hits    uint64
	misses  uint64
	stop    chan struct{}

	now func() time.Time // overridable in tests
}

type cacheEntry struct {
	targetID  uuid.UUID
	createdAt time.Time
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"` // 0.0-1.0; 0 when no lookups yet
}

// NewCache creates a cache with the given TTL. A non-positive TTL falls back
// to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey folds case and whitespace on the raw value so lookup variants of
// the same value share an entry.
func cacheKey(brandID uuid.UUID, column, rawValue string) string {
	return brandID.String() + "|" + column + "|" + Fold(rawValue)
}

// Get returns the cached target id for (brand, column, value). An entry whose
// age has reached the TTL is evicted and reported as a miss.
func (c *Cache) Get(brandID uuid.UUID, column, rawValue string) (uuid.UUID, bool) {
	key := cacheKey(brandID, column, rawValue)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return uuid.Nil, false
	}

	if c.now().Sub(entry.createdAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		return uuid.Nil, false
	}

	c.hits++
	return entry.targetID, true
}

// Put inserts or overwrites the entry for (brand, column, value) with the
// current timestamp.
func (c *Cache) Put(brandID uuid.UUID, column, rawValue string, targetID uuid.UUID) {
	key := cacheKey(brandID, column, rawValue)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{targetID: targetID, createdAt: c.now()}
}

// Sweep removes all expired entries and returns the number removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Stats returns the current size and hit rate.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{Size: len(c.entries), HitRate: rate}
}

// StartSweeper starts a background goroutine that sweeps expired entries at
// the given interval. A non-positive interval disables the sweeper; expired
// entries are then evicted lazily on Get. Call Stop to terminate it.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper, if running.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
