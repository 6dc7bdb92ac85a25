// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"os"
	"sync"
)

var (
	demoEnabled bool
	demoOnce    sync.Once
)

// IsDemoMode reports whether GALLERIA_DEMO_MODE=true. The first call
// latches the answer for the life of the process.
func IsDemoMode() bool {
	demoOnce.Do(func() {
		demoEnabled = os.Getenv("GALLERIA_DEMO_MODE") == "true"
	})
	return demoEnabled
}

// DemoRestriction names a class of operation blocked on demo instances.
type DemoRestriction string

// Security-sensitive operations stay blocked so a public demo instance
// cannot be used to lock out other visitors or exfiltrate credentials.
const (
	RestrictionManageUsers DemoRestriction = "manage_users"
	RestrictionManageRoles DemoRestriction = "manage_roles"
	RestrictionAPIKeys     DemoRestriction = "api_keys"
	RestrictionImportData  DemoRestriction = "import_data"
)

// DemoModeMessage is the fallback text for blocked actions.
const DemoModeMessage = "This action is disabled in demo mode"

var restrictionMessages = map[DemoRestriction]string{
	RestrictionManageUsers: "User management is disabled in demo mode",
	RestrictionManageRoles: "Role management is disabled in demo mode",
	RestrictionAPIKeys:     "API key management is disabled in demo mode",
	RestrictionImportData:  "Data import is disabled in demo mode",
}

// DemoModeMessageDetailed returns the per-restriction message, falling
// back to DemoModeMessage for unknown restrictions.
func DemoModeMessageDetailed(restriction DemoRestriction) string {
	if msg := restrictionMessages[restriction]; msg != "" {
		return msg
	}
	return DemoModeMessage
}

// BlockInDemoMode rejects write methods with 403 on demo instances.
// GET and HEAD pass through so the demo stays browsable.
func BlockInDemoMode(restriction DemoRestriction) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead
			if IsDemoMode() && !readOnly {
				WriteAPIError(w, http.StatusForbidden, "forbidden", DemoModeMessageDetailed(restriction), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
