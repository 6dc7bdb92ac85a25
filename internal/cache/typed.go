package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TypedCache wraps a Cacher with JSON encoding for one value type, so
// call sites work with *T instead of raw bytes. The permission
// snapshot, feed, and dashboard caches are each a TypedCache over the
// shared backend.
type TypedCache[T any] struct {
	backend    Cacher
	defaultTTL time.Duration
}

// NewTypedCache wraps backend with the given default TTL.
func NewTypedCache[T any](backend Cacher, defaultTTL time.Duration) *TypedCache[T] {
	return &TypedCache[T]{backend: backend, defaultTTL: defaultTTL}
}

// Get returns the decoded value and true on a hit. Decode failures
// read as misses so a schema change just repopulates the entry.
func (t *TypedCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	raw, err := t.backend.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set stores value under the default TTL.
func (t *TypedCache[T]) Set(ctx context.Context, key string, value *T) error {
	return t.SetWithTTL(ctx, key, value, t.defaultTTL)
}

// SetWithTTL stores value with an explicit TTL.
func (t *TypedCache[T]) SetWithTTL(ctx context.Context, key string, value *T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.backend.Set(ctx, key, raw, ttl)
}

// Delete removes a key.
func (t *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return t.backend.Delete(ctx, key)
}

// Has reports whether a live entry exists.
func (t *TypedCache[T]) Has(ctx context.Context, key string) bool {
	ok, _ := t.backend.Has(ctx, key)
	return ok
}

// GetOrSet returns the cached value or fills the entry from fn under
// the default TTL.
func (t *TypedCache[T]) GetOrSet(ctx context.Context, key string, fn func() (*T, error)) (*T, error) {
	return t.GetOrSetWithTTL(ctx, key, t.defaultTTL, fn)
}

// GetOrSetWithTTL returns the cached value, or computes it with fn and
// stores it. A failed store is ignored; the computed value is still
// good for this caller and the next miss recomputes.
func (t *TypedCache[T]) GetOrSetWithTTL(ctx context.Context, key string, ttl time.Duration, fn func() (*T, error)) (*T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	_ = t.SetWithTTL(ctx, key, v, ttl)
	return v, nil
}
