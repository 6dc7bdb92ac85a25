package cache

import (
	"net/url"
	"time"
)

// Config selects and tunes the cache backend. A non-empty RedisURL picks
// Redis; everything else runs on the in-process memory cache.
type Config struct {
	// RedisURL is a redis:// connection string, e.g. redis://localhost:6379/0.
	RedisURL string

	// Prefix namespaces every key written to Redis.
	Prefix string

	// DefaultTTL applies to Set calls that pass a zero TTL.
	DefaultTTL time.Duration

	// MaxSize bounds the memory cache entry count. Zero means unbounded.
	MaxSize int

	// CleanupInterval controls how often the memory cache sweeps out
	// expired entries.
	CleanupInterval time.Duration
}

// DefaultConfig returns the memory-backed defaults used when no cache
// settings are present in the environment.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      time.Hour,
		MaxSize:         10000,
		CleanupInterval: time.Minute,
	}
}

// New builds the cache described by cfg. Redis connection errors are
// returned, not downgraded to a memory fallback.
func New(cfg Config) (Cacher, error) {
	if cfg.RedisURL != "" {
		return NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	}), nil
}

// SanitizeRedisURL replaces the password component of rawURL with "***"
// so connection strings can be logged.
func SanitizeRedisURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid URL]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
