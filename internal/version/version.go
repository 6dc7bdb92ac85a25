// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version carries the release identity stamped in at link
// time.
package version

import "fmt"

// Info carries the build identity injected via ldflags.
type Info struct {
	Version   string // semantic version from git tags, e.g. "v1.2.3"
	GitCommit string // short commit hash
	BuildTime string // RFC3339 build timestamp
}

// String renders the one-line form printed by the -version flag.
func (i Info) String() string {
	return fmt.Sprintf("galleria %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildTime)
}
