// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/testutil"
)

// simpleOKHandler answers 200 to anything that reaches it.
var simpleOKHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// executeAuthRequest sends a delivery request carrying authHeader
// through handler.
func executeAuthRequest(handler http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// executeWithAPIKey sends a delivery request with apiKey already bound
// to the context, as APIKeyAuth would leave it.
func executeWithAPIKey(handler http.Handler, apiKey model.APIKey) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	ctx := context.WithValue(req.Context(), ContextKeyAPIKey, apiKey)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// insertTestAPIKey creates a delivery key through the store and returns
// the raw key and the stored row.
func insertTestAPIKey(t *testing.T, q *store.Queries, name string, permissions []string, isActive bool, expiresAt *time.Time) (string, model.APIKey) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	user, err := q.CreateUser(ctx, store.CreateUserParams{
		Email:        name + "@example.com",
		PasswordHash: "x",
		Name:         "Key Owner",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("create key owner: %v", err)
	}

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate API key: %v", err)
	}

	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	stored, err := q.CreateAPIKey(ctx, store.CreateAPIKeyParams{
		UUID:        uuid.NewString(),
		Name:        name,
		KeyHash:     model.HashAPIKey(rawKey),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(permissions),
		IsActive:    isActive,
		ExpiresAt:   expires,
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("create API key: %v", err)
	}

	return rawKey, stored
}

func TestWriteAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, http.StatusBadRequest, "validation_error", "Floor is out of range", map[string]string{
		"floor": "must be between -2 and 4",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Error.Code != "validation_error" {
		t.Errorf("Code = %q, want validation_error", resp.Error.Code)
	}
	if resp.Error.Message != "Floor is out of range" {
		t.Errorf("Message = %q, want %q", resp.Error.Message, "Floor is out of range")
	}
	if resp.Error.Details["floor"] == "" {
		t.Errorf("Details = %v, want a floor entry", resp.Error.Details)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)

	rawKey, _ := insertTestAPIKey(t, q, "delivery", []string{"events.read"}, true, nil)

	var capturedKey *model.APIKey
	handler := APIKeyAuth(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedKey = GetAPIKey(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc123", http.StatusUnauthorized},
		{"empty key", "Bearer ", http.StatusUnauthorized},
		{"unknown key", "Bearer not-a-real-key", http.StatusUnauthorized},
		{"valid key", "Bearer " + rawKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capturedKey = nil
			rr := executeAuthRequest(handler, tt.authHeader)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if capturedKey == nil {
					t.Fatal("no API key bound to request context")
				}
				if capturedKey.Name != "delivery" {
					t.Errorf("key name = %q, want delivery", capturedKey.Name)
				}
			}
		})
	}
}

func TestAPIKeyAuth_InactiveKey(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)

	rawKey, _ := insertTestAPIKey(t, q, "inactive", []string{"events.read"}, false, nil)

	handler := APIKeyAuth(db)(simpleOKHandler)
	rr := executeAuthRequest(handler, "Bearer "+rawKey)

	// Inactive keys never match the hash lookup.
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for inactive key", rr.Code)
	}
}

func TestAPIKeyAuth_ExpiredKey(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)

	expired := time.Now().UTC().Add(-time.Hour)
	rawKey, _ := insertTestAPIKey(t, q, "expired", []string{"events.read"}, true, &expired)

	handler := APIKeyAuth(db)(simpleOKHandler)
	rr := executeAuthRequest(handler, "Bearer "+rawKey)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for expired key", rr.Code)
	}

	var resp APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Error.Message != "API key expired" {
		t.Errorf("message = %q, want expiry message", resp.Error.Message)
	}
}

func TestRequireKeyPermission(t *testing.T) {
	readKey := model.APIKey{ID: 1, Permissions: `["events.read"]`, IsActive: true}

	t.Run("granted", func(t *testing.T) {
		rr := executeWithAPIKey(RequireKeyPermission("events", "read")(simpleOKHandler), readKey)
		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rr.Code)
		}
	})

	t.Run("missing permission", func(t *testing.T) {
		rr := executeWithAPIKey(RequireKeyPermission("promotions", "read")(simpleOKHandler), readKey)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rr.Code)
		}
	})

	t.Run("no key in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		rr := httptest.NewRecorder()
		RequireKeyPermission("events", "read")(simpleOKHandler).ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})
}

func TestBucketMap(t *testing.T) {
	bm := newBucketMap[string](1.0, 1)

	// Same key returns the same limiter
	first := bm.get("a")
	if bm.get("a") != first {
		t.Error("get(a) twice should hand back one limiter")
	}

	// Different keys get independent limiters
	if bm.get("b") == first {
		t.Error("get(b) should not share limiter with get(a)")
	}

	if bm.resetIfOver(10) {
		t.Error("map below threshold should not reset")
	}
	if !bm.resetIfOver(1) {
		t.Error("map above threshold should reset")
	}
	if len(bm.m) != 0 {
		t.Errorf("len(bm.m) = %d after reset, want 0", len(bm.m))
	}
}

func TestAPIRateLimit(t *testing.T) {
	// 1 rps with burst 2: third immediate request is rejected
	handler := APIRateLimit(1.0, 2)(simpleOKHandler)
	key := model.APIKey{ID: 7, IsActive: true}

	for i := 0; i < 2; i++ {
		if rr := executeWithAPIKey(handler, key); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rr.Code)
		}
	}

	rr := executeWithAPIKey(handler, key)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after burst", rr.Code)
	}

	var resp APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Error.Code != "rate_limit_exceeded" {
		t.Errorf("error code = %q, want rate_limit_exceeded", resp.Error.Code)
	}

	// A different key is unaffected
	if rr := executeWithAPIKey(handler, model.APIKey{ID: 8, IsActive: true}); rr.Code != http.StatusOK {
		t.Errorf("other key should pass, got %d", rr.Code)
	}
}

func TestAPIRateLimit_NoKeySkips(t *testing.T) {
	handler := APIRateLimit(1.0, 1)(simpleOKHandler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("keyless request %d: status = %d, want 200", i+1, rr.Code)
		}
	}
}

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(1.0, 1)
	handler := rl.Middleware()(simpleOKHandler)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.Header.Set("X-Real-IP", ip)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", code)
	}
	if code := send("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", code)
	}
	// Other IPs keep their own budget
	if code := send("203.0.113.2"); code != http.StatusOK {
		t.Fatalf("other IP: status = %d, want 200", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"x-real-ip preferred", "1.2.3.4", "5.6.7.8", "9.9.9.9:1234", "1.2.3.4"},
		{"x-forwarded-for fallback", "", "5.6.7.8", "9.9.9.9:1234", "5.6.7.8"},
		{"remote addr fallback", "", "", "9.9.9.9:1234", "9.9.9.9:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
