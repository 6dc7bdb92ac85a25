// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// ActivityHandler handles admin audit trail routes.
type ActivityHandler struct {
	queries  *store.Queries
	activity *service.ActivityService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(db *sql.DB, activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		queries:  store.New(db),
		activity: activity,
	}
}

// ActivityResponse represents an audit log entry in API responses.
// UserAgent is the summarized form; metadata passes through as JSON.
type ActivityResponse struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	UserID    *int64          `json:"user_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	Country   string          `json:"country,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func activityToResponse(a model.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:        a.ID,
		Level:     a.Level,
		Category:  a.Category,
		Message:   a.Message,
		UserID:    util.Int64PtrFromNull(a.UserID),
		IPAddress: a.IPAddress,
		Country:   util.StringFromNull(a.Country),
		UserAgent: service.SummarizeUserAgent(a.UserAgent),
		CreatedAt: a.CreatedAt,
	}
	if a.Metadata != "" && a.Metadata != "{}" {
		resp.Metadata = json.RawMessage(a.Metadata)
	}
	return resp
}

func validActivityLevel(level string) bool {
	switch level {
	case model.ActivityLevelInfo, model.ActivityLevelWarning, model.ActivityLevelError:
		return true
	}
	return false
}

func validActivityCategory(category string) bool {
	switch category {
	case model.ActivityCategoryAuth, model.ActivityCategoryContent, model.ActivityCategoryTenant,
		model.ActivityCategoryPromotion, model.ActivityCategoryUser, model.ActivityCategorySystem,
		model.ActivityCategoryCache, model.ActivityCategoryAPI:
		return true
	}
	return false
}

// List handles GET /admin/api/v1/activity.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	fieldErrors := make(map[string]string)
	level := r.URL.Query().Get("level")
	if level != "" && !validActivityLevel(level) {
		fieldErrors["level"] = "Level must be 'info', 'warning' or 'error'"
	}
	category := r.URL.Query().Get("category")
	if category != "" && !validActivityCategory(category) {
		fieldErrors["category"] = "Unknown category"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	page, perPage, offset := Pagination(r)
	params := store.ListActivityParams{
		Level:    level,
		Category: category,
		UserID:   util.ParseNullInt64Positive(r.URL.Query().Get("user_id")),
		Search:   r.URL.Query().Get("search"),
		Limit:    int64(perPage),
		Offset:   offset,
	}

	entries, total, err := ListAndCount(
		func() ([]model.Activity, error) { return h.queries.ListActivity(r.Context(), params) },
		func() (int64, error) { return h.queries.CountActivity(r.Context(), params) },
	)
	if err != nil {
		slog.Error("failed to list activity", "error", err)
		WriteInternalError(w, "Failed to list activity")
		return
	}

	responses := make([]ActivityResponse, 0, len(entries))
	for _, a := range entries {
		responses = append(responses, activityToResponse(a))
	}

	WriteSuccess(w, responses, ListMeta(total, page, perPage))
}

// Stats handles GET /admin/api/v1/activity/stats. The days parameter
// selects the trailing window, capped at 90.
func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := ParseIntParam(r, "days", 14, 1, 90)

	stats, err := h.activity.DailyStats(r.Context(), days, time.Now().UTC())
	if err != nil {
		slog.Error("failed to compute activity stats", "error", err)
		WriteInternalError(w, "Failed to compute activity stats")
		return
	}
	WriteSuccess(w, stats, nil)
}

// Purge handles DELETE /admin/api/v1/activity. It removes entries older
// than the given number of days, defaulting to the 90-day retention.
func (h *ActivityHandler) Purge(w http.ResponseWriter, r *http.Request) {
	days := ParseIntParam(r, "older_than_days", 90, 1, 0)

	removed, err := h.activity.DeleteOld(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		slog.Error("failed to purge activity", "error", err)
		WriteInternalError(w, "Failed to purge activity")
		return
	}

	_ = h.activity.LogSystem(r.Context(), model.ActivityLevelInfo, "Activity log purged",
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"removed": removed, "older_than_days": days})

	WriteSuccess(w, map[string]int64{"removed": removed}, nil)
}
