// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/version"
)

// HealthHandler serves the health endpoints with tiered detail:
// anonymous callers learn the bare status, authenticated callers the
// uptime and version, super admins the per-check breakdown.
type HealthHandler struct {
	db        *sql.DB
	queries   *store.Queries
	sessions  *scs.SessionManager
	cache     *cache.Manager
	build     *version.Info
	startedAt time.Time
}

// NewHealthHandler wires the health endpoints to the database, session
// store and cache they probe.
func NewHealthHandler(db *sql.DB, sm *scs.SessionManager, cm *cache.Manager, build *version.Info) *HealthHandler {
	return &HealthHandler{
		db:        db,
		queries:   store.New(db),
		sessions:  sm,
		cache:     cm,
		build:     build,
		startedAt: time.Now(),
	}
}

// HealthStatus is the health response for authenticated callers.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check is a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo carries runtime metrics for the verbose response.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /healthz requests. Unauthenticated callers get the
// bare status; session users get uptime and version; super admins also
// get per-check details and, with ?verbose=true, runtime metrics.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(),
		"cache":    h.checkCache(r),
	}
	overall := "healthy"
	for _, c := range checks {
		if c.Status != "healthy" {
			overall = "degraded"
			break
		}
	}
	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}

	if !h.isAuthenticated(r) {
		WriteJSON(w, code, map[string]string{"status": overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Version:   h.buildString(),
	}
	if h.isSuperAdmin(r) {
		status.Checks = checks
		if r.URL.Query().Get("verbose") == "true" {
			status.System = systemInfo()
		}
	}
	WriteJSON(w, code, status)
}

// Liveness handles GET /healthz/live requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /healthz/ready requests. The service is ready
// once the database answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	check := h.checkDatabase()
	if check.Status == "healthy" {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	body := map[string]string{"status": "not_ready"}
	// Failure details are for authenticated callers only.
	if h.isAuthenticated(r) {
		body["message"] = check.Message
	}
	WriteJSON(w, http.StatusServiceUnavailable, body)
}

// isAuthenticated accepts either an admin session or a valid API key.
func (h *HealthHandler) isAuthenticated(r *http.Request) bool {
	if h.sessions != nil && h.hasActiveSession(r) {
		return true
	}

	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return false
	}
	key, err := h.queries.GetAPIKeyByHash(r.Context(), model.HashAPIKey(token))
	return err == nil && key.IsValid()
}

// hasActiveSession reports whether the request carries a session for an
// active user. SCS panics when no session data is loaded into the
// context, and the health routes sit outside the session middleware, so
// recover and answer false.
func (h *HealthHandler) hasActiveSession(r *http.Request) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	userID := h.sessions.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if userID <= 0 {
		return false
	}
	user, err := h.queries.GetUserByID(r.Context(), userID)
	return err == nil && user.Active
}

// isSuperAdmin reports whether the session user holds the super_admin
// role.
func (h *HealthHandler) isSuperAdmin(r *http.Request) (ok bool) {
	if h.sessions == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	userID := h.sessions.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if userID <= 0 {
		return false
	}
	roles, err := h.queries.GetUserRoles(r.Context(), userID)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(roles, func(role model.Role) bool {
		return role.Name == model.RoleSuperAdmin
	})
}

func (h *HealthHandler) checkDatabase() Check {
	start := time.Now()
	err := h.db.Ping()
	check := Check{Status: "healthy", Message: "Connected", Latency: time.Since(start).String()}
	if err != nil {
		check.Status = "unhealthy"
		check.Message = err.Error()
	}
	return check
}

// checkCache probes the cache backend with a write/read roundtrip.
func (h *HealthHandler) checkCache(r *http.Request) Check {
	backend := h.cache.Backend()
	start := time.Now()

	err := backend.Set(r.Context(), "health:probe", []byte("ok"), time.Minute)
	if err == nil {
		_, err = backend.Get(r.Context(), "health:probe")
	}
	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: time.Since(start).String()}
	}

	check := Check{Status: "healthy", Latency: time.Since(start).String()}
	if stats, ok := h.cache.Stats(); ok {
		check.Message = fmt.Sprintf("%d items", stats.Items)
	}
	return check
}

// buildString renders build info as a single display string.
func (h *HealthHandler) buildString() string {
	if h.build == nil || h.build.Version == "" {
		return "dev"
	}
	if h.build.GitCommit != "" && h.build.GitCommit != "unknown" {
		return h.build.Version + " (" + h.build.GitCommit + ")"
	}
	return h.build.Version
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes renders n as B, KB, MB or GB with one decimal.
func formatBytes(n uint64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	}
}
