// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretLength is the floor for the session secret. AES-256
// needs 32 bytes of key material.
const MinSessionSecretLength = 32

// knownWeakSecrets are the placeholder values shipped in example env
// files. They are rejected outright.
var knownWeakSecrets = []string{
	"galleria-change-this-32b-secret!",
	"INSERT_32_BYTES_OF_RANDOM_HERE!!",
}

// Config is everything the process reads from its environment.
type Config struct {
	DBPath        string `env:"GALLERIA_DB_PATH" envDefault:"./data/galleria.db"`
	SessionSecret string `env:"GALLERIA_SESSION_SECRET,required"`
	ServerHost    string `env:"GALLERIA_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"GALLERIA_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"GALLERIA_ENV" envDefault:"development"`
	LogLevel      string `env:"GALLERIA_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"GALLERIA_REDIS_URL"`                         // optional, enables the Redis backend
	CachePrefix  string `env:"GALLERIA_CACHE_PREFIX" envDefault:"gal:"`    // Redis key prefix
	CacheTTL     int    `env:"GALLERIA_CACHE_TTL" envDefault:"3600"`       // default TTL in seconds
	CacheMaxSize int    `env:"GALLERIA_CACHE_MAX_SIZE" envDefault:"10000"` // memory cache entry cap

	// Dashboard configuration
	DashboardWindowDays int `env:"GALLERIA_DASHBOARD_WINDOW_DAYS" envDefault:"14"` // trailing window for day histograms

	// Activity log configuration
	ActivityRetentionDays int `env:"GALLERIA_ACTIVITY_RETENTION_DAYS" envDefault:"90"` // audit entries older than this are purged

	// GeoIP configuration
	GeoIPDBPath string `env:"GALLERIA_GEOIP_DB_PATH"` // path to GeoLite2-Country.mmdb
}

// IsDevelopment reports whether the app runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the listen address in host:port form.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache reports whether a Redis URL was configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled reports whether a GeoIP database was configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// Load parses the environment into a Config and validates the session
// secret.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validateSessionSecret(cfg.SessionSecret); err != nil {
		return nil, err
	}
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("GALLERIA_SESSION_SECRET has low character diversity; " +
			"regenerate it with openssl rand -base64 32")
	}

	return cfg, nil
}

func validateSessionSecret(secret string) error {
	if len(secret) < MinSessionSecretLength {
		return fmt.Errorf("GALLERIA_SESSION_SECRET must be at least %d bytes, got %d; "+
			"generate one with openssl rand -base64 32",
			MinSessionSecretLength, len(secret))
	}
	if slices.Contains(knownWeakSecrets, secret) {
		return fmt.Errorf("GALLERIA_SESSION_SECRET matches a published default; " +
			"generate one with openssl rand -base64 32")
	}
	return nil
}

// hasMinimumEntropy requires at least three of the four character
// classes. It catches copy-pasted words, not much more.
func hasMinimumEntropy(s string) bool {
	classes := []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	}

	n := 0
	for _, class := range classes {
		if strings.ContainsAny(s, class) {
			n++
		}
	}
	return n >= 3
}
