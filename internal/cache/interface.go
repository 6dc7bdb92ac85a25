// Package cache provides caching infrastructure for Galleria.
package cache

import (
	"context"
	"time"
)

// Error is a sentinel error string.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss means the key is absent or expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed means the cache was closed and can no longer
	// serve requests.
	ErrCacheClosed Error = "cache closed"
)

// Cacher is the backend contract shared by the memory and Redis
// implementations. Values travel as []byte; TypedCache layers JSON on
// top. Implementations must be safe for concurrent use.
type Cacher interface {
	// Get returns the stored value, or ErrCacheMiss when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Has reports whether a live entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// PrefixDeleter is implemented by backends that can drop a whole key
// namespace in one call. The Manager uses it for entity invalidation.
type PrefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// StatsProvider is implemented by backends that track hit counters.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Stats is the counter snapshot surfaced on the health endpoint.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
	Size    int64   `json:"size_bytes,omitempty"` // memory backend only
}
