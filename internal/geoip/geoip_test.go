// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"path/filepath"
	"testing"
)

func TestInit_EmptyPathDisables(t *testing.T) {
	g := NewLookup()
	if err := g.Init(""); err != nil {
		t.Fatalf("Init(\"\"): %v", err)
	}
	if g.IsEnabled() {
		t.Error("lookup enabled without a database path")
	}
	if got := g.LookupCountry("8.8.8.8"); got != "" {
		t.Errorf("LookupCountry(public) = %q, want empty when disabled", got)
	}
}

func TestInit_MissingFile(t *testing.T) {
	g := NewLookup()
	path := filepath.Join(t.TempDir(), "missing.mmdb")
	if err := g.Init(path); err == nil {
		t.Fatal("Init with missing file should fail")
	}
	if g.IsEnabled() {
		t.Error("lookup enabled after failed Init")
	}
}

func TestLookupCountry_Uninitialized(t *testing.T) {
	g := NewLookup()
	if got := g.LookupCountry("192.168.1.1"); got != "" {
		t.Errorf("LookupCountry before Init = %q, want empty", got)
	}
}

func TestLookupCountry_LocalRanges(t *testing.T) {
	g := NewLookup()
	if err := g.Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Public addresses answer empty with no database loaded, as do
	// unparseable inputs.
	tests := []struct {
		ip   string
		want string
	}{
		{"10.0.0.5", "LOCAL"},
		{"172.16.1.1", "LOCAL"},
		{"192.168.1.10", "LOCAL"},
		{"127.0.0.1", "LOCAL"},
		{"::1", "LOCAL"},
		{"fe80::1", "LOCAL"},
		{"fc00::1", "LOCAL"},
		{"8.8.8.8", ""},
		{"203.0.113.99", ""},
		{"not-an-ip", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := g.LookupCountry(tt.ip); got != tt.want {
			t.Errorf("LookupCountry(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestClose_WithoutDatabase(t *testing.T) {
	g := NewLookup()
	if err := g.Close(); err != nil {
		t.Errorf("Close without database: %v", err)
	}
}

func TestReload_NoPath(t *testing.T) {
	g := NewLookup()
	if err := g.Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := g.Reload(); err != nil {
		t.Errorf("Reload with no path: %v", err)
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"US", "United States"},
		{"SG", "Singapore"},
		{"LOCAL", "Local Network"},
		{"", "Unknown"},
		{"ZZ", "ZZ"},
	}

	for _, tt := range tests {
		if got := CountryName(tt.code); got != tt.want {
			t.Errorf("CountryName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
