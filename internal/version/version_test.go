// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.4.0",
		GitCommit: "abc1234",
		BuildTime: "2026-03-01T12:00:00Z",
	}

	want := "galleria v1.4.0 (commit: abc1234, built: 2026-03-01T12:00:00Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
