// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	t.Run("meta omitted when nil", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteSuccess(rec, map[string]string{"title": "Spring Gala"}, nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var body map[string]json.RawMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if _, ok := body["data"]; !ok {
			t.Error("expected data key")
		}
		if _, ok := body["meta"]; ok {
			t.Error("meta should be omitted when nil")
		}
	})

	t.Run("meta carried when set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteSuccess(rec, []string{"a"}, ListMeta(41, 2, 20))

		var body struct {
			Meta Meta `json:"meta"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body.Meta.Total != 41 || body.Meta.Page != 2 || body.Meta.PerPage != 20 {
			t.Errorf("meta = %+v, want total 41 page 2 per_page 20", body.Meta)
		}
		if body.Meta.Pages != 3 {
			t.Errorf("Pages = %d, want 3", body.Meta.Pages)
		}
	})
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, map[string]string{"title": "Title is required"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Errorf("code = %q, want validation_error", body.Error.Code)
	}
	if body.Error.Details["title"] != "Title is required" {
		t.Errorf("details = %v, missing title message", body.Error.Details)
	}

	rec = httptest.NewRecorder()
	WriteNotFound(rec, "Event not found")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["error"]["details"]; ok {
		t.Error("details should be omitted when empty")
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Gold"}`))
	if !DecodeJSON(rec, req, &dst) {
		t.Fatal("DecodeJSON rejected valid body")
	}
	if dst.Name != "Gold" {
		t.Errorf("Name = %q, want Gold", dst.Name)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	if DecodeJSON(rec, req, &dst) {
		t.Fatal("DecodeJSON accepted truncated body")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
