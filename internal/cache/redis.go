package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the Cacher interface with a shared Redis instance
// so several app replicas see the same entries. Hit counters are kept
// locally; Redis has no per-prefix stats.
type RedisCache struct {
	rdb    *redis.Client
	ns     string
	ttl    time.Duration
	closed atomic.Bool

	stats struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisCacheOptions tunes the Redis backend.
type RedisCacheOptions struct {
	// URL is the connection URL, redis://host:port/db.
	URL string

	// Prefix namespaces every key so one Redis can serve several apps.
	Prefix string

	// DefaultTTL applies when Set is called with a zero ttl.
	DefaultTTL time.Duration

	// PoolSize caps connections; zero keeps the client default.
	PoolSize int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultRedisCacheOptions returns the baseline tuning.
func DefaultRedisCacheOptions() RedisCacheOptions {
	return RedisCacheOptions{
		Prefix:         "gal:",
		DefaultTTL:     time.Hour,
		PoolSize:       10,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
	}
}

// clientOptions translates the cache options into go-redis options,
// leaving client defaults in place for anything unset.
func (o RedisCacheOptions) clientOptions() (*redis.Options, error) {
	parsed, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, err
	}
	if o.PoolSize > 0 {
		parsed.PoolSize = o.PoolSize
	}
	if o.ConnectTimeout > 0 {
		parsed.DialTimeout = o.ConnectTimeout
	}
	if o.ReadTimeout > 0 {
		parsed.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout > 0 {
		parsed.WriteTimeout = o.WriteTimeout
	}
	return parsed, nil
}

// NewRedisCache connects and pings before returning, so a bad URL or
// unreachable server fails at startup rather than on first use.
func NewRedisCache(opts RedisCacheOptions) (*RedisCache, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	copts, err := opts.clientOptions()
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(copts)
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	c := &RedisCache{rdb: rdb, ns: opts.Prefix, ttl: opts.DefaultTTL}
	return c, nil
}

// NewRedisCacheFromURL builds a cache from a URL with default tuning.
func NewRedisCacheFromURL(url string, prefix string, defaultTTL time.Duration) (*RedisCache, error) {
	opts := DefaultRedisCacheOptions()
	opts.URL = url
	if prefix != "" {
		opts.Prefix = prefix
	}
	if defaultTTL > 0 {
		opts.DefaultTTL = defaultTTL
	}
	return NewRedisCache(opts)
}

// alive guards every operation against use after Close.
func (c *RedisCache) alive() error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return nil
}

func (c *RedisCache) key(k string) string {
	return c.ns + k
}

// Get retrieves a value. redis.Nil maps to ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}

	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.stats.misses.Add(1)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}

	c.stats.hits.Add(1)
	return val, nil
}

// Set stores a value. A zero ttl falls back to the default.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.alive(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return err
	}
	c.stats.sets.Add(1)
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, c.key(key)).Err()
}

// Has reports whether the key exists.
func (c *RedisCache) Has(ctx context.Context, key string) (bool, error) {
	if err := c.alive(); err != nil {
		return false, err
	}
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every key under the cache prefix. SCAN keeps the
// server responsive; KEYS would block it on a large keyspace.
func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.deleteMatching(ctx, c.ns+"*")
}

// DeleteByPrefix removes keys under prefix, relative to the cache's
// own namespace.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.deleteMatching(ctx, c.ns+prefix+"*")
}

// deleteMatching walks a SCAN cursor and deletes what it finds in
// batches.
func (c *RedisCache) deleteMatching(ctx context.Context, pattern string) error {
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.rdb.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return flush()
}

// Ping probes the connection; the health endpoint reports it.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

// Close shuts the client down. Safe to call twice.
func (c *RedisCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.rdb.Close()
	}
	return nil
}

// Stats returns local counters plus an approximate item count from a
// bounded SCAN.
func (c *RedisCache) Stats() Stats {
	hits, misses := c.stats.hits.Load(), c.stats.misses.Load()
	var rate float64
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses) * 100
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	items := 0
	iter := c.rdb.Scan(ctx, 0, c.ns+"*", 1000).Iterator()
	for iter.Next(ctx) {
		items++
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.stats.sets.Load(),
		Items:   items,
		HitRate: rate,
	}
}

// ResetStats zeroes the local counters.
func (c *RedisCache) ResetStats() {
	c.stats.hits.Store(0)
	c.stats.misses.Store(0)
	c.stats.sets.Store(0)
}

var (
	_ Cacher        = (*RedisCache)(nil)
	_ PrefixDeleter = (*RedisCache)(nil)
	_ StatsProvider = (*RedisCache)(nil)
)
