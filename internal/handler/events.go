// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// EventsHandler handles admin event management routes.
type EventsHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewEventsHandler builds the events CRUD handler.
func NewEventsHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *EventsHandler {
	return &EventsHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// EventResponse represents an event in API responses. Schedule carries
// the live bucket (upcoming/ongoing/ended) for published events.
type EventResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary"`
	Body        string     `json:"body"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedBy   *int64     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Schedule    string     `json:"schedule,omitempty"`
}

func eventToResponse(e model.Event, now time.Time) EventResponse {
	resp := EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Slug:        e.Slug,
		Summary:     e.Summary,
		Body:        e.Body,
		Location:    e.Location,
		Status:      e.Status,
		Featured:    e.Featured,
		StartAt:     e.StartAt,
		EndAt:       util.TimePtrFromNull(e.EndAt),
		PublishedAt: util.TimePtrFromNull(e.PublishedAt),
		CreatedBy:   util.Int64PtrFromNull(e.CreatedBy),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if bucket := service.Classify(service.EventSchedule(e), now); bucket != service.BucketNone {
		resp.Schedule = string(bucket)
	}
	return resp
}

// CreateEventRequest is the request body for creating an event. A
// missing slug is derived from the title. Timestamps are RFC3339.
type CreateEventRequest struct {
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Body     string `json:"body,omitempty"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`
	Featured bool   `json:"featured"`
	StartAt  string `json:"start_at"`
	EndAt    string `json:"end_at,omitempty"`
}

// UpdateEventRequest is the request body for partial event updates.
// Omitted fields keep their value; an empty end_at string clears the
// end date.
type UpdateEventRequest struct {
	Title    *string `json:"title,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Summary  *string `json:"summary,omitempty"`
	Body     *string `json:"body,omitempty"`
	Location *string `json:"location,omitempty"`
	Status   *string `json:"status,omitempty"`
	Featured *bool   `json:"featured,omitempty"`
	StartAt  *string `json:"start_at,omitempty"`
	EndAt    *string `json:"end_at,omitempty"`
}

// List handles GET /admin/api/v1/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.StatusDraft && status != model.StatusPublished {
		WriteValidationError(w, map[string]string{"status": "Status must be one of: draft, published"})
		return
	}

	var featured sql.NullBool
	if raw := r.URL.Query().Get("featured"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			WriteBadRequest(w, "Invalid featured filter", nil)
			return
		}
		featured = sql.NullBool{Bool: val, Valid: true}
	}

	page, perPage, offset := Pagination(r)
	params := store.ListEventsParams{
		Status:   status,
		Featured: featured,
		Search:   r.URL.Query().Get("search"),
		Limit:    int64(perPage),
		Offset:   offset,
	}

	events, total, err := ListAndCount(
		func() ([]model.Event, error) { return h.queries.ListEvents(r.Context(), params) },
		func() (int64, error) { return h.queries.CountEvents(r.Context(), params) },
	)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		WriteInternalError(w, "Failed to list events")
		return
	}

	now := time.Now().UTC()
	responses := make([]EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, eventToResponse(e, now))
	}

	WriteSuccess(w, responses, ListMeta(total, page, perPage))
}

// Get handles GET /admin/api/v1/events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := requireEntityByID(w, r, "event", func(id int64) (model.Event, error) {
		return h.queries.GetEventByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, eventToResponse(event, time.Now().UTC()), nil)
}

// Create handles POST /admin/api/v1/events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if req.Status == "" {
		req.Status = model.StatusDraft
	}
	if req.Status != model.StatusDraft && req.Status != model.StatusPublished {
		fieldErrors["status"] = "Status must be one of: draft, published"
	}
	startAt, ok := parseRFC3339(req.StartAt)
	if req.StartAt == "" {
		fieldErrors["start_at"] = "Start time is required"
	} else if !ok {
		fieldErrors["start_at"] = "Invalid timestamp. Use RFC3339 (e.g., 2026-03-01T10:00:00Z)"
	}
	endAt, ok := parseRFC3339(req.EndAt)
	if !ok {
		fieldErrors["end_at"] = "Invalid timestamp. Use RFC3339 (e.g., 2026-03-01T18:00:00Z)"
	} else if req.EndAt != "" && endAt.Before(startAt) {
		fieldErrors["end_at"] = "End time must not be before the start time"
	}
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Title)
	}
	if !util.IsValidSlug(req.Slug) {
		fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if !checkSlugUnique(w, h.slugOwner(r), req.Slug, 0) {
		return
	}

	now := time.Now().UTC()
	params := store.CreateEventParams{
		Title:     req.Title,
		Slug:      req.Slug,
		Summary:   req.Summary,
		Body:      req.Body,
		Location:  req.Location,
		Status:    req.Status,
		Featured:  req.Featured,
		StartAt:   startAt,
		EndAt:     util.NullTimeFromValue(endAt),
		CreatedBy: util.NullInt64FromPtr(middleware.GetUserIDPtr(r)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Creating directly as published counts as the first publish.
	if req.Status == model.StatusPublished {
		params.PublishedAt = sql.NullTime{Time: now, Valid: true}
	}

	event, err := h.queries.CreateEvent(r.Context(), params)
	if err != nil {
		slog.Error("failed to create event", "error", err)
		WriteInternalError(w, "Failed to create event")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Event created: "+event.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"event_id": event.ID, "slug": event.Slug})

	WriteCreated(w, eventToResponse(event, now))
}

// Update handles PUT /admin/api/v1/events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "event", func(id int64) (model.Event, error) {
		return h.queries.GetEventByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdateEventRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	params := store.UpdateEventParams{
		ID:        existing.ID,
		Title:     existing.Title,
		Slug:      existing.Slug,
		Summary:   existing.Summary,
		Body:      existing.Body,
		Location:  existing.Location,
		Status:    existing.Status,
		Featured:  existing.Featured,
		StartAt:   existing.StartAt,
		EndAt:     existing.EndAt,
		UpdatedAt: now,
	}

	fieldErrors := make(map[string]string)
	if req.Title != nil {
		if *req.Title == "" {
			fieldErrors["title"] = "Title is required"
		}
		params.Title = *req.Title
	}
	if req.Slug != nil {
		if !util.IsValidSlug(*req.Slug) {
			fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
		}
		params.Slug = *req.Slug
	}
	if req.Status != nil {
		if *req.Status != model.StatusDraft && *req.Status != model.StatusPublished {
			fieldErrors["status"] = "Status must be one of: draft, published"
		}
		params.Status = *req.Status
	}
	if req.Summary != nil {
		params.Summary = *req.Summary
	}
	if req.Body != nil {
		params.Body = *req.Body
	}
	if req.Location != nil {
		params.Location = *req.Location
	}
	if req.Featured != nil {
		params.Featured = *req.Featured
	}
	if req.StartAt != nil {
		startAt, ok := parseRFC3339(*req.StartAt)
		if *req.StartAt == "" || !ok {
			fieldErrors["start_at"] = "Invalid timestamp. Use RFC3339 (e.g., 2026-03-01T10:00:00Z)"
		} else {
			params.StartAt = startAt
		}
	}
	if req.EndAt != nil {
		endAt, ok := parseRFC3339(*req.EndAt)
		if !ok {
			fieldErrors["end_at"] = "Invalid timestamp. Use RFC3339 (e.g., 2026-03-01T18:00:00Z)"
		} else {
			params.EndAt = util.NullTimeFromValue(endAt)
		}
	}
	if params.EndAt.Valid && params.EndAt.Time.Before(params.StartAt) {
		fieldErrors["end_at"] = "End time must not be before the start time"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if params.Slug != existing.Slug {
		if !checkSlugUnique(w, h.slugOwner(r), params.Slug, existing.ID) {
			return
		}
	}

	event, err := h.queries.UpdateEvent(r.Context(), params)
	if err != nil {
		slog.Error("failed to update event", "error", err, "event_id", existing.ID)
		WriteInternalError(w, "Failed to update event")
		return
	}

	// A status flip to published through an update still stamps the
	// first-publish timestamp.
	if event.Status == model.StatusPublished && !event.PublishedAt.Valid {
		event, err = h.queries.PublishEvent(r.Context(), event.ID, now)
		if err != nil {
			slog.Error("failed to stamp publish time", "error", err, "event_id", existing.ID)
			WriteInternalError(w, "Failed to update event")
			return
		}
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Event updated: "+event.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"event_id": event.ID, "slug": event.Slug})

	WriteSuccess(w, eventToResponse(event, now), nil)
}

// Publish handles POST /admin/api/v1/events/{id}/publish. Republishing
// keeps the original published_at.
func (h *EventsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "event", func(id int64) (model.Event, error) {
		return h.queries.GetEventByID(r.Context(), id)
	})
	if !ok {
		return
	}

	now := time.Now().UTC()
	event, err := h.queries.PublishEvent(r.Context(), existing.ID, now)
	if err != nil {
		slog.Error("failed to publish event", "error", err, "event_id", existing.ID)
		WriteInternalError(w, "Failed to publish event")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Event published: "+event.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"event_id": event.ID, "slug": event.Slug})

	WriteSuccess(w, eventToResponse(event, now), nil)
}

// Delete handles DELETE /admin/api/v1/events/{id}. Any feed entry
// referencing the event is removed with it.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "event", func(id int64) (model.Event, error) {
		return h.queries.GetEventByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeleteEvent(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete event", "error", err, "event_id", existing.ID)
		WriteInternalError(w, "Failed to delete event")
		return
	}
	if err := h.queries.DeleteWhatsOnItemByRef(r.Context(), model.WhatsOnTypeEvent, existing.ID); err != nil {
		slog.Error("failed to remove feed entry for deleted event", "error", err, "event_id", existing.ID)
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Event deleted: "+existing.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"event_id": existing.ID, "slug": existing.Slug})

	WriteNoContent(w)
}

// slugOwner adapts the slug lookup for uniqueness checks.
func (h *EventsHandler) slugOwner(r *http.Request) SlugLookup {
	return func(slug string) (int64, error) {
		event, err := h.queries.GetEventBySlug(r.Context(), slug)
		if err != nil {
			return 0, err
		}
		return event.ID, nil
	}
}
