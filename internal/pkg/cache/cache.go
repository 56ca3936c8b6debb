// Package cache provides an in-process TTL cache with a size cap. When the
// cap is reached the least recently accessed entry is evicted; a background
// sweeper drops expired entries between reads.
package cache

import (
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

type entry[V any] struct {
	value        V
	expiresAt    time.Time
	lastAccessed time.Time
	accessCount  int
}

// Options configure one cache instance. Zero values fall back to 500
// entries, a 5 minute TTL and a 5 minute sweep interval.
type Options struct {
	MaxEntries    int
	TTL           time.Duration
	SweepInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = 500
	}
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
	return o
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
}

// Cache is a TTL cache safe for concurrent use. The mutex is held only
// across map operations, never across caller code.
type Cache[V any] struct {
	name string
	opts Options

	mu      sync.Mutex
	entries map[string]*entry[V]

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a named cache and starts its background sweeper. Call Stop
// when done with it.
func New[V any](name string, opts Options) *Cache[V] {
	c := &Cache[V]{
		name:    name,
		opts:    opts.withDefaults(),
		entries: make(map[string]*entry[V]),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the cached value for key. A present but expired entry is
// removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if time.Now().Before(e.expiresAt) {
			e.accessCount++
			e.lastAccessed = time.Now()
			c.hits++
			return e.value, true
		}
		delete(c.entries, key)
		c.expirations++
	}
	c.misses++
	var zero V
	return zero, false
}

// Set stores value under key for the cache TTL. Inserting into a full cache
// evicts the least recently accessed entry first.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.MaxEntries {
		c.evictOldest()
	}
	now := time.Now()
	c.entries[key] = &entry[V]{
		value:        value,
		expiresAt:    now.Add(c.opts.TTL),
		lastAccessed: now,
	}
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len reports the number of entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Size:        len(c.entries),
		MaxSize:     c.opts.MaxEntries,
		Hits:        c.hits,
		Misses:      c.misses,
		HitRate:     rate,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// Stop terminates the background sweeper. Safe to call more than once.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictOldest removes the least recently accessed entry. Caller holds the
// lock. The linear scan is fine at the configured sizes.
func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccessed.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccessed
		}
	}
	if oldestKey == "" {
		return
	}
	delete(c.entries, oldestKey)
	c.evictions++
	slog.Debug("evicted cache entry", "cache", c.name, "key", oldestKey)
}

func (c *Cache[V]) sweep() {
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			removed := 0
			for key, e := range c.entries {
				if !now.Before(e.expiresAt) {
					delete(c.entries, key)
					removed++
				}
			}
			c.expirations += uint64(removed)
			c.mu.Unlock()
			if removed > 0 {
				slog.Debug("swept expired cache entries", "cache", c.name, "removed", removed)
			}
		}
	}
}

// Key builds a stable cache key from an operation name and its arguments.
func Key(op string, args ...any) string {
	h := fnv.New64a()
	io.WriteString(h, op)
	for _, arg := range args {
		io.WriteString(h, "|")
		fmt.Fprint(h, arg)
	}
	return op + ":" + strconv.FormatUint(h.Sum64(), 16)
}
