// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package demo

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// demoFixture creates a data dir holding a fake database file.
func demoFixture(t *testing.T) (dbPath, dataDir string) {
	t.Helper()
	dataDir = t.TempDir()
	dbPath = filepath.Join(dataDir, "demo.db")
	if err := os.WriteFile(dbPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return dbPath, dataDir
}

func writeStamp(t *testing.T, dataDir string, at time.Time) {
	t.Helper()
	path := filepath.Join(dataDir, timestampFile)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(at.Unix(), 10)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResetIfNeeded(t *testing.T) {
	t.Run("missing timestamp resets", func(t *testing.T) {
		dbPath, dataDir := demoFixture(t)

		if err := ResetIfNeeded(dbPath, dataDir); err != nil {
			t.Fatalf("ResetIfNeeded: %v", err)
		}
		if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
			t.Error("database should be gone")
		}
		if _, err := os.Stat(filepath.Join(dataDir, timestampFile)); err != nil {
			t.Errorf("timestamp file should exist: %v", err)
		}
	})

	t.Run("stale timestamp resets", func(t *testing.T) {
		dbPath, dataDir := demoFixture(t)
		writeStamp(t, dataDir, time.Now().Add(-25*time.Hour))

		if err := ResetIfNeeded(dbPath, dataDir); err != nil {
			t.Fatalf("ResetIfNeeded: %v", err)
		}
		if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
			t.Error("database should be gone after a stale timestamp")
		}
	})

	t.Run("fresh timestamp keeps database", func(t *testing.T) {
		dbPath, dataDir := demoFixture(t)
		writeStamp(t, dataDir, time.Now().Add(-time.Hour))

		if err := ResetIfNeeded(dbPath, dataDir); err != nil {
			t.Fatalf("ResetIfNeeded: %v", err)
		}
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database should survive a fresh timestamp: %v", err)
		}
	})

	t.Run("garbage timestamp resets", func(t *testing.T) {
		dbPath, dataDir := demoFixture(t)
		path := filepath.Join(dataDir, timestampFile)
		if err := os.WriteFile(path, []byte("not-a-number"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := ResetIfNeeded(dbPath, dataDir); err != nil {
			t.Fatalf("ResetIfNeeded: %v", err)
		}
		if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
			t.Error("database should be gone after an unreadable timestamp")
		}
	})
}

func TestReset(t *testing.T) {
	t.Run("deletes database and sidecars", func(t *testing.T) {
		dbPath, dataDir := demoFixture(t)
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.WriteFile(dbPath+suffix, []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}
		}

		if err := Reset(dbPath, dataDir); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if _, err := os.Stat(dbPath + suffix); !os.IsNotExist(err) {
				t.Errorf("%s should be deleted", dbPath+suffix)
			}
		}
	})

	t.Run("records reset time", func(t *testing.T) {
		dbPath, dataDir := demoFixture(t)

		before := time.Now().Unix()
		if err := Reset(dbPath, dataDir); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		after := time.Now().Unix()

		last, ok, err := lastReset(filepath.Join(dataDir, timestampFile))
		if err != nil || !ok {
			t.Fatalf("lastReset: ok=%v err=%v", ok, err)
		}
		if ts := last.Unix(); ts < before || ts > after {
			t.Errorf("recorded time %d outside [%d, %d]", ts, before, after)
		}
	})

	t.Run("tolerates missing files", func(t *testing.T) {
		dataDir := t.TempDir()
		if err := Reset(filepath.Join(dataDir, "never-created.db"), dataDir); err != nil {
			t.Fatalf("Reset: %v", err)
		}
	})
}
