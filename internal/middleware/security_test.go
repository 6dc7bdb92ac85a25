// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	handler := SecurityHeaders(cfg)(simpleOKHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/events", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	checks := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range checks {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	csp := rr.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP should deny by default, got %q", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("CSP should block framing, got %q", csp)
	}

	if pp := rr.Header().Get("Permissions-Policy"); !strings.Contains(pp, "camera=()") {
		t.Errorf("Permissions-Policy should restrict camera, got %q", pp)
	}
}

func TestSecurityHeadersHSTS(t *testing.T) {
	t.Run("production enables HSTS", func(t *testing.T) {
		cfg := DefaultSecurityHeadersConfig(false)
		handler := SecurityHeaders(cfg)(simpleOKHandler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		hsts := rr.Header().Get("Strict-Transport-Security")
		if !strings.Contains(hsts, "max-age=31536000") {
			t.Errorf("HSTS max-age missing, got %q", hsts)
		}
		if !strings.Contains(hsts, "includeSubDomains") {
			t.Errorf("HSTS includeSubDomains missing, got %q", hsts)
		}
	})

	t.Run("development disables HSTS", func(t *testing.T) {
		cfg := DefaultSecurityHeadersConfig(true)
		handler := SecurityHeaders(cfg)(simpleOKHandler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if hsts := rr.Header().Get("Strict-Transport-Security"); hsts != "" {
			t.Errorf("expected no HSTS in development, got %q", hsts)
		}
	})

	t.Run("preload flag", func(t *testing.T) {
		cfg := DefaultSecurityHeadersConfig(false)
		cfg.HSTSPreload = true
		handler := SecurityHeaders(cfg)(simpleOKHandler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if hsts := rr.Header().Get("Strict-Transport-Security"); !strings.Contains(hsts, "preload") {
			t.Errorf("expected preload directive, got %q", hsts)
		}
	})
}

func TestFormatCSP(t *testing.T) {
	csp := formatCSP(map[string]string{
		"default-src": "'none'",
		"img-src":     "'self'",
		"custom-src":  "'self'",
	})

	// Known directives come first in declaration order
	if !strings.HasPrefix(csp, "default-src 'none'") {
		t.Errorf("default-src should lead, got %q", csp)
	}
	if !strings.Contains(csp, "img-src 'self'") {
		t.Errorf("img-src missing, got %q", csp)
	}
	// Unknown directives are appended
	if !strings.Contains(csp, "custom-src 'self'") {
		t.Errorf("custom directive missing, got %q", csp)
	}
}

func TestFormatPermissionsPolicy(t *testing.T) {
	pp := formatPermissionsPolicy(map[string]string{"camera": "()"})
	if pp != "camera=()" {
		t.Errorf("formatPermissionsPolicy = %q, want camera=()", pp)
	}
}
