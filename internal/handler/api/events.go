// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/render"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

// EventResponse represents an event in delivery payloads. Schedule is
// the live bucket (upcoming/ongoing/ended) at response time.
type EventResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	BodyHTML    string     `json:"body_html,omitempty"`
	Location    string     `json:"location,omitempty"`
	Featured    bool       `json:"featured"`
	Schedule    string     `json:"schedule"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func eventToResponse(e model.Event, now time.Time) EventResponse {
	resp := EventResponse{
		ID:       e.ID,
		Title:    e.Title,
		Slug:     e.Slug,
		Summary:  e.Summary,
		BodyHTML: render.Markdown(e.Body),
		Location: e.Location,
		Featured: e.Featured,
		Schedule: string(service.Classify(service.EventSchedule(e), now)),
		StartAt:  e.StartAt,
	}
	if e.EndAt.Valid {
		resp.EndAt = &e.EndAt.Time
	}
	if e.PublishedAt.Valid {
		resp.PublishedAt = &e.PublishedAt.Time
	}
	return resp
}

// ListEvents handles GET /api/v1/events. Only published events are
// served; status narrows to a schedule bucket and pagination happens
// after classification.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	bucket := service.BucketNone
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := service.ParseBucket(raw)
		if !ok {
			handler.WriteBadRequest(w, "Invalid status filter",
				map[string]string{"status": "must be upcoming, ongoing or ended"})
			return
		}
		bucket = parsed
	}

	params := store.ListEventsParams{
		Status: model.StatusPublished,
		Search: r.URL.Query().Get("search"),
		Limit:  deliveryListLimit,
	}
	if raw := r.URL.Query().Get("featured"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			params.Featured = sql.NullBool{Bool: v, Valid: true}
		}
	}

	events, err := h.queries.ListEvents(r.Context(), params)
	if err != nil {
		handler.WriteInternalError(w, "Failed to list events")
		return
	}
	if bucket != service.BucketNone {
		events = service.FilterEventsByBucket(events, bucket, now)
	}

	page, perPage, _ := handler.Pagination(r)
	total := int64(len(events))

	window := pageSlice(events, page, perPage)
	resp := make([]EventResponse, 0, len(window))
	for _, e := range window {
		resp = append(resp, eventToResponse(e, now))
	}

	handler.WriteSuccess(w, resp, handler.ListMeta(total, page, perPage))
}

// GetEvent handles GET /api/v1/events/{id}. Unpublished events do not
// exist as far as delivery consumers are concerned.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := requireEntityByID(w, r, "event", func(id int64) (model.Event, error) {
		return h.queries.GetEventByID(r.Context(), id)
	})
	if !ok {
		return
	}
	if event.Status != model.StatusPublished {
		handler.WriteNotFound(w, "Event not found")
		return
	}

	handler.WriteSuccess(w, eventToResponse(event, time.Now().UTC()), nil)
}

// GetEventBySlug handles GET /api/v1/events/slug/{slug}.
func (h *Handler) GetEventBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		handler.WriteBadRequest(w, "Slug is required", nil)
		return
	}

	event, err := h.queries.GetEventBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			handler.WriteNotFound(w, "Event not found")
		} else {
			handler.WriteInternalError(w, "Failed to retrieve event")
		}
		return
	}
	if event.Status != model.StatusPublished {
		handler.WriteNotFound(w, "Event not found")
		return
	}

	handler.WriteSuccess(w, eventToResponse(event, time.Now().UTC()), nil)
}
