// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package demo handles the periodic reset of demo installs. The demo
// database is thrown away daily and reseeded on the next start.
package demo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	timestampFile = ".last_reset"
	resetInterval = 24 * time.Hour
)

// lastReset reads the recorded reset time. ok is false when no valid
// timestamp exists, which callers treat as reset-overdue.
func lastReset(tsPath string) (last time.Time, ok bool, err error) {
	data, err := os.ReadFile(tsPath)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	unixSec, parseErr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if parseErr != nil {
		return time.Time{}, false, nil
	}
	return time.Unix(unixSec, 0), true, nil
}

// ResetIfNeeded wipes the demo database when the last reset is more
// than 24 hours old. It runs at startup, so a demo machine stopped
// overnight resets on its first boot of the day.
func ResetIfNeeded(dbPath, dataDir string) error {
	last, ok, err := lastReset(filepath.Join(dataDir, timestampFile))
	if err != nil {
		return fmt.Errorf("reading reset timestamp: %w", err)
	}

	if ok && time.Since(last) < resetInterval {
		slog.Info("demo reset not needed",
			"last_reset", last.UTC().Format(time.RFC3339),
			"next_reset", last.Add(resetInterval).UTC().Format(time.RFC3339),
		)
		return nil
	}

	slog.Info("demo reset overdue, resetting database")
	return Reset(dbPath, dataDir)
}

// Reset deletes the database and its WAL/SHM sidecars, then records the
// reset time. Migration and seeding on the next start rebuild the demo
// content.
func Reset(dbPath, dataDir string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", dbPath+suffix, err)
		}
	}
	slog.Info("demo database deleted", "path", dbPath)

	tsPath := filepath.Join(dataDir, timestampFile)
	stamp := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	if err := os.WriteFile(tsPath, []byte(stamp), 0644); err != nil {
		return fmt.Errorf("writing reset timestamp: %w", err)
	}

	slog.Info("demo reset complete")
	return nil
}
