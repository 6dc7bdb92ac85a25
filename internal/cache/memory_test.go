package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemCache(t *testing.T, opts MemoryCacheOptions) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(opts)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	if err := c.Set(ctx, "dashboard:summary", []byte(`{"published":3}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "dashboard:summary")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"published":3}` {
		t.Errorf("Get = %q", got)
	}

	ok, err := c.Has(ctx, "dashboard:summary")
	if err != nil || !ok {
		t.Errorf("Has = %v, %v; want true", ok, err)
	}

	if err := c.Delete(ctx, "dashboard:summary"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "dashboard:summary"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}

	if _, err := c.Get(ctx, "never-set"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get unknown = %v, want ErrCacheMiss", err)
	}
	if ok, _ := c.Has(ctx, "never-set"); ok {
		t.Error("Has unknown = true")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	// One short-lived entry, one on the default TTL.
	if err := c.Set(ctx, "feed:whats-on", []byte("payload"), 40*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "perm:user:7", []byte("snapshot"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := c.Get(ctx, "feed:whats-on"); err != nil {
		t.Fatalf("fresh entry should hit: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := c.Get(ctx, "feed:whats-on"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired Get = %v, want ErrCacheMiss", err)
	}
	if ok, _ := c.Has(ctx, "feed:whats-on"); ok {
		t.Error("Has reports an expired entry")
	}
	if _, err := c.Get(ctx, "perm:user:7"); err != nil {
		t.Errorf("default-TTL entry should survive: %v", err)
	}
}

func TestMemoryCacheCapacitySweep(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 2})
	ctx := context.Background()

	_ = c.Set(ctx, "old:1", []byte("a"), 20*time.Millisecond)
	_ = c.Set(ctx, "old:2", []byte("b"), 20*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	// At the cap, inserting a new key drops the dead entries first.
	if err := c.Set(ctx, "fresh", []byte("c"), 0); err != nil {
		t.Fatalf("Set at capacity: %v", err)
	}
	if got := c.Stats().Items; got != 1 {
		t.Errorf("Items after sweep = %d, want 1", got)
	}
	if _, err := c.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh entry lost: %v", err)
	}
}

func TestMemoryCacheClearAndPrefix(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	seed := map[string]string{
		"perm:user:1":    "a",
		"perm:user:2":    "b",
		"feed:whats-on":  "c",
		"dashboard:main": "d",
	}
	for k, v := range seed {
		_ = c.Set(ctx, k, []byte(v), 0)
	}

	if err := c.DeleteByPrefix(ctx, "perm:user:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	for _, k := range []string{"perm:user:1", "perm:user:2"} {
		if _, err := c.Get(ctx, k); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("%s survived prefix delete: %v", k, err)
		}
	}
	if _, err := c.Get(ctx, "feed:whats-on"); err != nil {
		t.Errorf("unrelated key dropped: %v", err)
	}

	if got := len(c.Keys()); got != 2 {
		t.Errorf("Keys() len = %d, want 2", got)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := c.Stats().Items; got != 0 {
		t.Errorf("Items after Clear = %d, want 0", got)
	}
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	src := []byte("original")
	_ = c.Set(ctx, "k", src, 0)
	src[0] = 'X'

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("stored bytes aliased the caller's slice: %q", got)
	}

	got[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("returned bytes aliased the stored slice: %q", again)
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	_ = c.Set(ctx, "hit", []byte("value"), 0)
	_, _ = c.Get(ctx, "hit")
	_, _ = c.Get(ctx, "miss-1")
	_, _ = c.Get(ctx, "miss-2")
	_, _ = c.Get(ctx, "miss-3")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 3 || s.Sets != 1 {
		t.Errorf("stats = hits %d misses %d sets %d, want 1/3/1", s.Hits, s.Misses, s.Sets)
	}
	if s.Items != 1 {
		t.Errorf("Items = %d, want 1", s.Items)
	}
	if s.HitRate != 25 {
		t.Errorf("HitRate = %.1f, want 25.0", s.HitRate)
	}
	if s.Size != int64(len("value")) {
		t.Errorf("Size = %d, want %d", s.Size, len("value"))
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 || s.Sets != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewSimpleMemoryCache(time.Hour)
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after Close = %v, want ErrCacheClosed", err)
	}
	if err := c.Delete(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Delete after Close = %v, want ErrCacheClosed", err)
	}
}

func TestMemoryCacheConcurrent(t *testing.T) {
	c := newTestMemCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("perm:user:%d:%d", w, i)
				_ = c.Set(ctx, key, []byte("snapshot"), 0)
				_, _ = c.Get(ctx, key)
				if i%3 == 0 {
					_ = c.Delete(ctx, key)
				}
			}
		}(w)
	}
	wg.Wait()

	if s := c.Stats(); s.Sets != 8*200 {
		t.Errorf("Sets = %d, want %d", s.Sets, 8*200)
	}
}
