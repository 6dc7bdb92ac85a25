// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestNullInt64FromPtr(t *testing.T) {
	tests := []struct {
		name  string
		input *int64
		want  sql.NullInt64
	}{
		{"nil pointer", nil, sql.NullInt64{}},
		{"positive value", ptr(int64(42)), sql.NullInt64{Int64: 42, Valid: true}},
		{"zero value", ptr(int64(0)), sql.NullInt64{Int64: 0, Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NullInt64FromPtr(tt.input); got != tt.want {
				t.Errorf("NullInt64FromPtr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseNullInt64Positive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  sql.NullInt64
	}{
		{"empty string", "", sql.NullInt64{}},
		{"zero rejected", "0", sql.NullInt64{}},
		{"positive number", "42", sql.NullInt64{Int64: 42, Valid: true}},
		{"negative rejected", "-5", sql.NullInt64{}},
		{"non-numeric", "abc", sql.NullInt64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseNullInt64Positive(tt.input); got != tt.want {
				t.Errorf("ParseNullInt64Positive(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNullStringConversions(t *testing.T) {
	t.Run("from value", func(t *testing.T) {
		if got := NullStringFromValue(""); got.Valid {
			t.Errorf("empty string should map to invalid, got %v", got)
		}
		if got := NullStringFromValue("atrium"); got != (sql.NullString{String: "atrium", Valid: true}) {
			t.Errorf("NullStringFromValue(atrium) = %v", got)
		}
		if got := NullStringFromValue("  "); !got.Valid {
			t.Errorf("whitespace is a value, got %v", got)
		}
	})

	t.Run("from pointer", func(t *testing.T) {
		if got := NullStringFromPtr(nil); got.Valid {
			t.Errorf("nil pointer should map to invalid, got %v", got)
		}
		if got := NullStringFromPtr(ptr("atrium")); got != (sql.NullString{String: "atrium", Valid: true}) {
			t.Errorf("NullStringFromPtr(atrium) = %v", got)
		}
		// A pointer to "" is deliberate, unlike the bare zero value.
		if got := NullStringFromPtr(ptr("")); !got.Valid {
			t.Errorf("pointer to empty string should be valid, got %v", got)
		}
	})
}

func TestNullTimeConversions(t *testing.T) {
	now := time.Now()

	if got := NullTimeFromPtr(nil); got.Valid {
		t.Errorf("NullTimeFromPtr(nil) = %v, want invalid", got)
	}
	if got := NullTimeFromPtr(&now); !got.Valid || !got.Time.Equal(now) {
		t.Errorf("NullTimeFromPtr(&now) = %v", got)
	}

	if got := NullTimeFromValue(time.Time{}); got.Valid {
		t.Errorf("zero time should map to invalid, got %v", got)
	}
	if got := NullTimeFromValue(now); !got.Valid || !got.Time.Equal(now) {
		t.Errorf("NullTimeFromValue(now) = %v", got)
	}

	if got := TimePtrFromNull(sql.NullTime{}); got != nil {
		t.Errorf("TimePtrFromNull(invalid) = %v, want nil", got)
	}
	if got := TimePtrFromNull(sql.NullTime{Time: now, Valid: true}); got == nil || !got.Equal(now) {
		t.Errorf("TimePtrFromNull(valid) = %v", got)
	}
}

func TestInt64PtrFromNull(t *testing.T) {
	if got := Int64PtrFromNull(sql.NullInt64{}); got != nil {
		t.Errorf("Int64PtrFromNull(invalid) = %v, want nil", got)
	}
	if got := Int64PtrFromNull(sql.NullInt64{Int64: 7, Valid: true}); got == nil || *got != 7 {
		t.Errorf("Int64PtrFromNull(valid) = %v, want 7", got)
	}
}

func TestStringFromNull(t *testing.T) {
	if got := StringFromNull(sql.NullString{}); got != "" {
		t.Errorf("StringFromNull(invalid) = %q, want empty", got)
	}
	if got := StringFromNull(sql.NullString{String: "SG", Valid: true}); got != "SG" {
		t.Errorf("StringFromNull(valid) = %q, want SG", got)
	}
}
