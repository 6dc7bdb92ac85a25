// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves request IPs to ISO country codes using a
// MaxMind GeoLite2-Country database. Lookups degrade gracefully: with
// no database configured every lookup answers empty.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// Lookup answers IP-to-country queries against a GeoLite2 database.
type Lookup struct {
	mu      sync.RWMutex
	reader  *maxminddb.Reader
	path    string
	modTime time.Time
	ready   bool
	enabled bool
}

// countryRecord matches the GeoLite2-Country database structure.
type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// NewLookup creates an empty lookup. Call Init before use.
func NewLookup() *Lookup {
	return &Lookup{}
}

// Init loads the database at dbPath. An empty path disables lookups
// without error; a missing or unreadable file returns an error and
// leaves lookups disabled.
func (g *Lookup) Init(dbPath string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ready = true
	g.path = dbPath
	if dbPath == "" {
		g.enabled = false
		return nil
	}
	return g.refresh()
}

// refresh opens the database file unless the already open reader is
// current. Caller must hold g.mu for writing.
func (g *Lookup) refresh() error {
	info, err := os.Stat(g.path)
	if err != nil {
		g.enabled = false
		if os.IsNotExist(err) {
			return fmt.Errorf("geoip database missing: %s", g.path)
		}
		return fmt.Errorf("stat geoip database: %w", err)
	}
	if g.reader != nil && info.ModTime().Equal(g.modTime) {
		return nil
	}

	reader, err := maxminddb.Open(g.path)
	if err != nil {
		g.enabled = false
		return fmt.Errorf("open geoip database: %w", err)
	}

	if g.reader != nil {
		_ = g.reader.Close()
	}
	g.reader = reader
	g.modTime = info.ModTime()
	g.enabled = true
	return nil
}

// Reload picks up a replaced database file. Safe to call periodically;
// a no-op when the file has not changed or no path is configured.
func (g *Lookup) Reload() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.path == "" {
		return nil
	}
	return g.refresh()
}

// LookupCountry returns the two-letter ISO country code for an IP
// address, "LOCAL" for private, loopback and link-local addresses, and
// an empty string when the IP is invalid or the country is unknown.
func (g *Lookup) LookupCountry(ip string) string {
	addr := net.ParseIP(ip)
	if addr == nil {
		return ""
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.ready {
		return ""
	}
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() {
		return "LOCAL"
	}
	if !g.enabled || g.reader == nil {
		return ""
	}

	var rec countryRecord
	if g.reader.Lookup(addr, &rec) != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// IsEnabled reports whether a database is loaded and lookups can
// resolve countries.
func (g *Lookup) IsEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// Close releases the database reader.
func (g *Lookup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reader == nil {
		return nil
	}
	err := g.reader.Close()
	g.reader = nil
	g.enabled = false
	return err
}

// countryNames maps the codes LookupCountry can answer to display
// names for the audit views. Codes without an entry display as-is.
var countryNames = map[string]string{
	"LOCAL": "Local Network",
	"AE":    "United Arab Emirates",
	"AU":    "Australia",
	"BR":    "Brazil",
	"CA":    "Canada",
	"CH":    "Switzerland",
	"CN":    "China",
	"DE":    "Germany",
	"ES":    "Spain",
	"FR":    "France",
	"GB":    "United Kingdom",
	"HK":    "Hong Kong",
	"ID":    "Indonesia",
	"IN":    "India",
	"IT":    "Italy",
	"JP":    "Japan",
	"KR":    "South Korea",
	"KW":    "Kuwait",
	"MY":    "Malaysia",
	"NL":    "Netherlands",
	"NZ":    "New Zealand",
	"PH":    "Philippines",
	"QA":    "Qatar",
	"SA":    "Saudi Arabia",
	"SG":    "Singapore",
	"TH":    "Thailand",
	"TR":    "Turkey",
	"TW":    "Taiwan",
	"US":    "United States",
	"VN":    "Vietnam",
}

// CountryName returns the display name for a country code.
func CountryName(code string) string {
	if code == "" {
		return "Unknown"
	}
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}
