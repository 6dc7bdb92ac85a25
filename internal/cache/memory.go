package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// memEntry is one stored value. Values are copied on the way in and
// out so callers can't mutate cached bytes.
type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the in-process Cacher backend. A single RWMutex
// guards the entry map; hit counters are atomics so reads stay on the
// shared lock.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	bytes   int64

	ttl        time.Duration
	maxEntries int

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	stats struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// MemoryCacheOptions tunes the in-process backend.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int           // entry cap, 0 means unlimited
	CleanupInterval time.Duration // janitor period, 0 disables the janitor
}

// NewMemoryCache creates a memory cache. When CleanupInterval is set a
// janitor goroutine sweeps expired entries until Close.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]memEntry),
		ttl:        opts.DefaultTTL,
		maxEntries: opts.MaxSize,
		done:       make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.janitor(opts.CleanupInterval)
	}
	return c
}

// NewSimpleMemoryCache creates an unbounded memory cache with the
// given TTL and a one-minute janitor.
func NewSimpleMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      ttl,
		CleanupInterval: time.Minute,
	})
}

// Get retrieves a value. Expired entries count as misses and are
// dropped lazily.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.stats.misses.Add(1)
		return nil, ErrCacheMiss
	}
	if time.Now().After(e.expiresAt) {
		c.evict(key)
		c.stats.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.stats.hits.Add(1)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value. A zero ttl falls back to the default. When the
// entry cap is reached, expired entries are swept before inserting.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.sweepLocked(time.Now())
		}
	}
	if old, ok := c.entries[key]; ok {
		c.bytes -= int64(len(old.value))
	}
	c.entries[key] = memEntry{value: stored, expiresAt: time.Now().Add(ttl)}
	c.bytes += int64(len(stored))

	c.stats.sets.Add(1)
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.evict(key)
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.mu.Lock()
	c.entries = make(map[string]memEntry)
	c.bytes = 0
	c.mu.Unlock()
	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(e.expiresAt) {
		c.evict(key)
		return false, nil
	}
	return true, nil
}

// DeleteByPrefix removes every key under the given prefix.
func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.mu.Lock()
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			c.bytes -= int64(len(e.value))
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// Keys lists every stored key, expired entries included.
func (c *MemoryCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Close stops the janitor. Further calls on the cache return
// ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
	return nil
}

// Stats returns the counters since start or the last reset.
func (c *MemoryCache) Stats() Stats {
	hits, misses := c.stats.hits.Load(), c.stats.misses.Load()
	var rate float64
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses) * 100
	}

	c.mu.RLock()
	items := len(c.entries)
	bytes := c.bytes
	c.mu.RUnlock()

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.stats.sets.Load(),
		Items:   items,
		HitRate: rate,
		Size:    bytes,
	}
}

// ResetStats zeroes the hit/miss/set counters.
func (c *MemoryCache) ResetStats() {
	c.stats.hits.Store(0)
	c.stats.misses.Store(0)
	c.stats.sets.Store(0)
}

func (c *MemoryCache) evict(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.bytes -= int64(len(e.value))
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// sweepLocked drops expired entries. Callers hold the write lock.
func (c *MemoryCache) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			c.bytes -= int64(len(e.value))
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.mu.Lock()
			c.sweepLocked(time.Now())
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

var (
	_ Cacher        = (*MemoryCache)(nil)
	_ PrefixDeleter = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
