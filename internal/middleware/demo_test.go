// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// resetDemo clears the latched demo flag between tests.
func resetDemo() {
	demoEnabled = false
	demoOnce = sync.Once{}
}

func TestIsDemoMode(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"enabled", "true", true},
		{"disabled", "false", false},
		{"empty", "", false},
		{"not a boolean", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetDemo()
			t.Cleanup(resetDemo)
			t.Setenv("GALLERIA_DEMO_MODE", tt.env)

			if got := IsDemoMode(); got != tt.want {
				t.Errorf("IsDemoMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDemoModeMessageDetailed(t *testing.T) {
	if msg := DemoModeMessageDetailed(RestrictionAPIKeys); msg != "API key management is disabled in demo mode" {
		t.Errorf("unexpected message: %q", msg)
	}
	if msg := DemoModeMessageDetailed(DemoRestriction("unknown")); msg != DemoModeMessage {
		t.Errorf("unknown restriction should fall back to default, got %q", msg)
	}
}

func TestBlockInDemoMode(t *testing.T) {
	handler := BlockInDemoMode(RestrictionManageUsers)(simpleOKHandler)

	send := func(t *testing.T, env, method, path string) int {
		t.Helper()
		resetDemo()
		t.Cleanup(resetDemo)
		t.Setenv("GALLERIA_DEMO_MODE", env)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
		return rr.Code
	}

	t.Run("writes blocked in demo mode", func(t *testing.T) {
		if code := send(t, "true", http.MethodPost, "/admin/api/v1/users"); code != http.StatusForbidden {
			t.Fatalf("expected 403 in demo mode, got %d", code)
		}
	})

	t.Run("reads pass in demo mode", func(t *testing.T) {
		if code := send(t, "true", http.MethodGet, "/admin/api/v1/users"); code != http.StatusOK {
			t.Fatalf("expected 200 for GET in demo mode, got %d", code)
		}
	})

	t.Run("writes pass outside demo mode", func(t *testing.T) {
		if code := send(t, "", http.MethodDelete, "/admin/api/v1/users/1"); code != http.StatusOK {
			t.Fatalf("expected 200 outside demo mode, got %d", code)
		}
	})
}
