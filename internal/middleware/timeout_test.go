// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutNormalRequest(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
	if body := rr.Body.String(); body != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
}

func TestTimeoutSlowRequest(t *testing.T) {
	handler := Timeout(50*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}

	var resp APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("timeout response should be JSON: %v", err)
	}
	if resp.Error.Message != "Request timed out" {
		t.Errorf("message = %q, want timeout message", resp.Error.Message)
	}
}

func TestGuardedWriterWriteHeaderOnce(t *testing.T) {
	rr := httptest.NewRecorder()
	gw := &guardedWriter{ResponseWriter: rr}

	gw.WriteHeader(http.StatusAccepted)
	gw.WriteHeader(http.StatusInternalServerError)

	if rr.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 (first write wins)", rr.Code)
	}
}

func TestGuardedWriterImplicitHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	gw := &guardedWriter{ResponseWriter: rr}

	if _, err := gw.Write([]byte("body")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 from implicit header", rr.Code)
	}
	if !gw.started {
		t.Error("writer should record that the response started")
	}
}
