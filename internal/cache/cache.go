// Package cache implements a bounded, time-expiring response cache.
//
// TTLCache holds at most maxSize entries. Entries expire lazily: an expired
// entry is removed by the Get that finds it, never by a background sweep.
// When a new key is inserted into a full cache, the entry with the oldest
// store time is evicted first, whether it has expired or not.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
)

// ErrInvalidConfig is returned by New for a non-positive size or TTL.
var ErrInvalidConfig = errors.New("cache: invalid configuration")

type entry[V any] struct {
	value    V
	storedAt time.Time
	seq      uint64 // insertion order, breaks storedAt ties
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Entries     int    `json:"entries"`
}

// TTLCache is a string-keyed cache with a fixed capacity and a fixed TTL.
// Safe for concurrent use: every method runs under one exclusive lock.
type TTLCache[V any] struct {
	name     string
	maxSize  int
	ttl      time.Duration
	clock    clock.Clock
	observer Observer

	mu      sync.Mutex
	entries map[string]*entry[V]
	seq     uint64
	stats   Stats
}

// New creates a cache holding at most maxSize entries, each valid for ttl.
func New[V any](maxSize int, ttl time.Duration, opts ...Option) (*TTLCache[V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidConfig, maxSize)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, ttl)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &TTLCache[V]{
		name:     o.name,
		maxSize:  maxSize,
		ttl:      ttl,
		clock:    o.clock,
		observer: o.observer,
		entries:  make(map[string]*entry[V], maxSize),
	}, nil
}

// Get returns the value stored under key if it is present and younger than
// the TTL. An expired entry is deleted and reported as a miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		c.observer.OnMiss(c.name)
		return zero, false
	}
	if c.clock.Since(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		c.stats.Misses++
		c.stats.Expirations++
		size := len(c.entries)
		c.mu.Unlock()

		c.observer.OnExpire(c.name)
		c.observer.OnMiss(c.name)
		c.observer.OnSize(c.name, size)
		return zero, false
	}
	v := e.value
	c.stats.Hits++
	c.mu.Unlock()

	c.observer.OnHit(c.name)
	return v, true
}

// peek is Get without counters, observers or expiry removal.
func (c *TTLCache[V]) peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.clock.Since(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamping it with the current time.
// Overwriting an existing key never evicts. Inserting a new key into a full
// cache first evicts the single entry with the oldest store time.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()

	now := c.clock.Now()
	evicted := false
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
		evicted = true
	}

	c.seq++
	c.entries[key] = &entry[V]{value: value, storedAt: now, seq: c.seq}
	size := len(c.entries)
	c.mu.Unlock()

	if evicted {
		c.observer.OnEvict(c.name)
	}
	c.observer.OnSize(c.name, size)
}

// evictOldestLocked removes the entry with the smallest storedAt, falling back
// to insertion order on ties. Must be called with c.mu held.
func (c *TTLCache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    *entry[V]
	)
	for k, e := range c.entries {
		if oldest == nil || e.storedAt.Before(oldest.storedAt) ||
			(e.storedAt.Equal(oldest.storedAt) && e.seq < oldest.seq) {
			oldestKey, oldest = k, e
		}
	}
	if oldest != nil {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// Invalidate removes key. It is a no-op when key is absent.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	size := len(c.entries)
	c.mu.Unlock()

	c.observer.OnSize(c.name, size)
}

// Clear removes every entry. Counters are kept.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()

	c.observer.OnSize(c.name, 0)
}

// Len returns the number of stored entries, including expired ones that
// have not been looked up since they expired.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// MaxSize returns the configured capacity.
func (c *TTLCache[V]) MaxSize() int { return c.maxSize }

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }
