package resolver

import (
	"container/list"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/county-api/internal/metrics"
)

// Cache is a concurrent-safe LRU cache of resolved points with TTL
// expiration. Keys are the exact coordinate bits, so two distinct points
// never share an entry.
type Cache struct {
	mu         sync.Mutex
	entries    map[pointKey]*list.Element
	order      *list.List // front=newest, back=oldest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type pointKey struct {
	lat, lon uint64
}

type cacheEntry struct {
	key       pointKey
	result    Result
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Enabled    bool    `json:"enabled"`
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache creates a Cache with the given capacity and TTL. A non-positive
// TTL never expires entries.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		entries:    make(map[pointKey]*list.Element),
		order:      list.New(),
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
	}
}

func cacheKey(lat, lon float64) pointKey {
	return pointKey{lat: math.Float64bits(lat), lon: math.Float64bits(lon)}
}

// Get retrieves a cached result.
func (c *Cache) Get(lat, lon float64) (Result, bool) {
	key := cacheKey(lat, lon)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.miss()
		return Result{}, false
	}

	entry := el.Value.(*cacheEntry)
	if c.ttl > 0 && time.Since(entry.createdAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		c.miss()
		return Result{}, false
	}

	c.order.MoveToFront(el)
	c.hits.Add(1)
	metrics.CacheHitsTotal.Inc()
	return entry.result, true
}

func (c *Cache) miss() {
	c.misses.Add(1)
	metrics.CacheMissesTotal.Inc()
}

// Put stores a result, evicting the least recently used entry if at
// capacity.
func (c *Cache) Put(lat, lon float64, r Result) {
	key := cacheKey(lat, lon)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &cacheEntry{key: key, result: r, createdAt: time.Now()}
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: r, createdAt: time.Now()})
}

// Purge drops every entry and resets the counters.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[pointKey]*list.Element)
	c.order.Init()
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache performance statistics. A nil cache reports itself as
// disabled.
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Enabled:    true,
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}
