// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/service"
)

// dashboardTTL keeps the summary fresh enough for an admin landing page
// without recounting every table on each load.
const dashboardTTL = 30 * time.Second

// DashboardHandler handles the admin dashboard summary route.
type DashboardHandler struct {
	dashboard *service.DashboardService
	summaries *cache.TypedCache[service.DashboardSummary]
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService, summaries *cache.TypedCache[service.DashboardSummary]) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		summaries: summaries,
	}
}

// Summary handles GET /admin/api/v1/dashboard.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summaries.GetOrSetWithTTL(r.Context(), cache.KeyDashboard, dashboardTTL,
		func() (*service.DashboardSummary, error) {
			return h.dashboard.Summary(r.Context(), time.Now().UTC())
		})
	if err != nil {
		slog.Error("failed to build dashboard summary", "error", err)
		WriteInternalError(w, "Failed to build dashboard summary")
		return
	}
	WriteSuccess(w, summary, nil)
}
