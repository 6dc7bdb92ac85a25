// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the Galleria project.
package testutil

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/galleria-dev/galleria/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// TestLogger returns a logger that stays quiet below warning level.
func TestLogger() *slog.Logger { return newLogger(slog.LevelWarn) }

// TestLoggerSilent returns a logger that only reports errors.
func TestLoggerSilent() *slog.Logger { return newLogger(slog.LevelError) }

// TestDB opens a migrated SQLite database in a per-test temp directory.
// Defer the returned cleanup to close it; the testing framework removes
// the directory itself.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "galleria.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}
	return db, func() { _ = db.Close() }
}

// TestMemoryDB opens an unmigrated in-memory database for tests that
// build their own schema.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	return db
}
