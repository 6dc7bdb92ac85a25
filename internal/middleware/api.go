// Package middleware provides the HTTP middleware for Galleria:
// session auth, permission gates, API key checks, rate limiting, and
// the request hardening applied to every route.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
)

// ContextKeyAPIKey is the context key for delivery API key data.
const ContextKeyAPIKey ContextKey = "api_key"

// APIError is the JSON error envelope shared by every middleware
// rejection.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError encodes an APIError with the given status.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	var body APIError
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Details = details

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// bearerToken pulls the raw key out of the Authorization header. The
// second return is a client-facing failure message, empty on success.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Authorization header required"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", "Authorization header must be of the form: Bearer <api_key>"
	}
	if token == "" {
		return "", "API key is empty"
	}
	return token, ""
}

// APIKeyAuth authenticates delivery requests by their Bearer key. The
// matched key lands in the request context for the permission and rate
// limit layers downstream.
func APIKeyAuth(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, failure := bearerToken(r)
			if failure != "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", failure, nil)
				return
			}

			key, err := queries.GetAPIKeyByHash(r.Context(), model.HashAPIKey(token))
			switch {
			case errors.Is(err, sql.ErrNoRows):
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key", nil)
				return
			case err != nil:
				slog.Error("failed to validate API key", "error", err)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Could not validate API key", nil)
				return
			}

			// GetAPIKeyByHash only matches active keys; expiry is checked here.
			if key.IsExpired() {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "API key expired", nil)
				return
			}

			touchAPIKeyLastUsed(queries, key.ID)

			ctx := context.WithValue(r.Context(), ContextKeyAPIKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey returns the authenticated delivery key, or nil when
// APIKeyAuth did not run.
func GetAPIKey(r *http.Request) *model.APIKey {
	key, ok := r.Context().Value(ContextKeyAPIKey).(model.APIKey)
	if !ok {
		return nil
	}
	return &key
}

// touchAPIKeyLastUsed records key usage in a bounded background goroutine
// so delivery requests never wait on the write.
func touchAPIKeyLastUsed(queries *store.Queries, keyID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queries.TouchAPIKeyLastUsed(ctx, keyID, time.Now().UTC())
	}()
}

// RequireKeyPermission gates a delivery route on the key carrying the
// module.action permission. Mount after APIKeyAuth.
func RequireKeyPermission(module, action string) func(http.Handler) http.Handler {
	permission := model.PermissionName(module, action)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r)
			switch {
			case key == nil:
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "API key required", nil)
			case !key.HasPermission(permission):
				WriteAPIError(w, http.StatusForbidden, "forbidden", "API key is missing the "+permission+" permission", nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// bucketMap hands out one token bucket per key, created lazily.
type bucketMap[K comparable] struct {
	mu    sync.RWMutex
	m     map[K]*rate.Limiter
	limit rate.Limit
	burst int
}

func newBucketMap[K comparable](rps float64, burst int) *bucketMap[K] {
	return &bucketMap[K]{
		m:     make(map[K]*rate.Limiter),
		limit: rate.Limit(rps),
		burst: burst,
	}
}

func (bm *bucketMap[K]) get(key K) *rate.Limiter {
	bm.mu.RLock()
	lim, ok := bm.m[key]
	bm.mu.RUnlock()
	if ok {
		return lim
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	if lim, ok := bm.m[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(bm.limit, bm.burst)
	bm.m[key] = lim
	return lim
}

// resetIfOver empties the map once it grows past maxEntries, keeping
// memory bounded on long runs. Reports whether a reset happened.
func (bm *bucketMap[K]) resetIfOver(maxEntries int) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if len(bm.m) <= maxEntries {
		return false
	}
	bm.m = make(map[K]*rate.Limiter)
	return true
}

// APIRateLimit throttles delivery requests per API key at rps with the
// given burst.
func APIRateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	buckets := newBucketMap[int64](rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r)
			if key == nil {
				// No key in context means APIKeyAuth did not run; the
				// per-IP limiter covers unauthenticated traffic.
				next.ServeHTTP(w, r)
				return
			}

			if !buckets.get(key.ID).Allow() {
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Request rate for this API key exceeded", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GlobalRateLimiter throttles unauthenticated traffic per client IP.
type GlobalRateLimiter struct {
	buckets *bucketMap[string]
}

func NewGlobalRateLimiter(rps float64, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{buckets: newBucketMap[string](rps, burst)}
}

// Middleware returns the per-IP rate limiting handler wrapper.
func (rl *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !rl.buckets.get(ip).Allow() {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Request rate for this address exceeded", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
