// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
)

func TestEventsCreate(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.events()

	t.Run("creates draft with derived slug", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{
			Title:   "Jazz at the Atrium!",
			StartAt: env.Now.Add(48 * time.Hour).Format(time.RFC3339),
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[EventResponse](t, rec)
		if got.Slug != "jazz-at-the-atrium" {
			t.Errorf("slug = %q, want derived jazz-at-the-atrium", got.Slug)
		}
		if got.Status != model.StatusDraft {
			t.Errorf("status = %q, want draft", got.Status)
		}
		if got.PublishedAt != nil {
			t.Errorf("draft should not carry a publish time, got %v", got.PublishedAt)
		}
		if got.Schedule != "" {
			t.Errorf("draft should not carry a schedule bucket, got %q", got.Schedule)
		}
	})

	t.Run("creating as published stamps publish time", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{
			Title:   "Night Market",
			Status:  model.StatusPublished,
			StartAt: env.Now.Add(24 * time.Hour).Format(time.RFC3339),
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[EventResponse](t, rec)
		if got.PublishedAt == nil {
			t.Fatal("expected publish time on create-as-published")
		}
		if got.Schedule != string(service.BucketUpcoming) {
			t.Errorf("schedule = %q, want upcoming", got.Schedule)
		}
	})

	t.Run("rejects missing title and start", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{})
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		requireFieldError(t, rec, "title")
		detail := decodeError(t, rec)
		if _, ok := detail.Details["start_at"]; !ok {
			t.Errorf("expected start_at error, got %v", detail.Details)
		}
	})

	t.Run("rejects malformed timestamps", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{
			Title:   "Broken",
			StartAt: "next tuesday",
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "start_at")
	})

	t.Run("rejects end before start", func(t *testing.T) {
		start := env.Now.Add(48 * time.Hour)
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{
			Title:   "Inverted",
			StartAt: start.Format(time.RFC3339),
			EndAt:   start.Add(-time.Hour).Format(time.RFC3339),
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "end_at")
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{
			Title:   "Odd",
			Status:  "archived",
			StartAt: env.Now.Format(time.RFC3339),
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "status")
	})

	t.Run("rejects duplicate slug", func(t *testing.T) {
		env.createEvent(t, "Taken", "taken", env.Now.Add(time.Hour), false)

		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events", CreateEventRequest{
			Title:   "Another",
			Slug:    "taken",
			StartAt: env.Now.Format(time.RFC3339),
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "slug")
	})
}

func TestEventsUpdate(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.events()

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		event := env.createEvent(t, "Spring Fair", "spring-fair", env.Now.Add(time.Hour), false)

		location := "Central Court"
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/1", UpdateEventRequest{
			Location: &location,
		})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, event.ID))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[EventResponse](t, rec)
		if got.Location != "Central Court" {
			t.Errorf("location = %q, want Central Court", got.Location)
		}
		if got.Title != "Spring Fair" || got.Slug != "spring-fair" {
			t.Errorf("untouched fields changed: title=%q slug=%q", got.Title, got.Slug)
		}
	})

	t.Run("status flip to published stamps publish time", func(t *testing.T) {
		event := env.createEvent(t, "Flip", "flip", env.Now.Add(time.Hour), false)

		status := model.StatusPublished
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/1", UpdateEventRequest{
			Status: &status,
		})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, event.ID))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[EventResponse](t, rec)
		if got.PublishedAt == nil {
			t.Fatal("expected publish time after status flip")
		}
	})

	t.Run("clearing end date", func(t *testing.T) {
		event := env.createEvent(t, "Open Ended", "open-ended", env.Now.Add(time.Hour), false)
		endAt := env.Now.Add(3 * time.Hour).Format(time.RFC3339)
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/1", UpdateEventRequest{EndAt: &endAt})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, event.ID))
		if rec.Code != http.StatusOK {
			t.Fatalf("set end: status = %d", rec.Code)
		}

		empty := ""
		req = newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/1", UpdateEventRequest{EndAt: &empty})
		rec = httptest.NewRecorder()
		h.Update(rec, withID(req, event.ID))

		if rec.Code != http.StatusOK {
			t.Fatalf("clear end: status = %d: %s", rec.Code, rec.Body.String())
		}
		if got := decodeData[EventResponse](t, rec); got.EndAt != nil {
			t.Errorf("end_at should be cleared, got %v", got.EndAt)
		}
	})

	t.Run("slug collision with another event", func(t *testing.T) {
		env.createEvent(t, "First", "first", env.Now, false)
		second := env.createEvent(t, "Second", "second", env.Now, false)

		slug := "first"
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/2", UpdateEventRequest{Slug: &slug})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, second.ID))
		requireFieldError(t, rec, "slug")
	})

	t.Run("unknown event is 404", func(t *testing.T) {
		title := "Ghost"
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/9999", UpdateEventRequest{Title: &title})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, 9999))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/events/abc", UpdateEventRequest{})
		rec := httptest.NewRecorder()
		h.Update(rec, withRawID(req, "abc"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestEventsPublish(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.events()
	event := env.createEvent(t, "Lights On", "lights-on", env.Now.Add(time.Hour), false)

	req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/events/1/publish", nil)
	rec := httptest.NewRecorder()
	h.Publish(rec, withID(req, event.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	first := decodeData[EventResponse](t, rec)
	if first.Status != model.StatusPublished || first.PublishedAt == nil {
		t.Fatalf("publish did not stamp: status=%q published_at=%v", first.Status, first.PublishedAt)
	}

	// Republishing must keep the original timestamp.
	req = newJSONRequest(t, http.MethodPost, "/admin/api/v1/events/1/publish", nil)
	rec = httptest.NewRecorder()
	h.Publish(rec, withID(req, event.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("republish status = %d", rec.Code)
	}
	second := decodeData[EventResponse](t, rec)
	if second.PublishedAt == nil || !second.PublishedAt.Equal(*first.PublishedAt) {
		t.Errorf("republish changed publish time: first=%v second=%v", first.PublishedAt, second.PublishedAt)
	}
}

func TestEventsDelete(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.events()
	feed := service.NewFeedService(env.DB)

	event := env.createEvent(t, "Gone Soon", "gone-soon", env.Now.Add(time.Hour), true)
	if _, err := feed.Add(env.Ctx, model.WhatsOnTypeEvent, event.ID, false, env.Now); err != nil {
		t.Fatalf("add feed entry: %v", err)
	}

	req := newJSONRequest(t, http.MethodDelete, "/admin/api/v1/events/1", nil)
	rec := httptest.NewRecorder()
	h.Delete(rec, withID(req, event.ID))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if _, err := env.Queries.GetEventByID(env.Ctx, event.ID); err == nil {
		t.Error("event still present after delete")
	}
	items, err := feed.Items(env.Ctx, env.Now)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("feed entry survived event delete: %v", items)
	}

	t.Run("unknown event is 404", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodDelete, "/admin/api/v1/events/9999", nil)
		rec := httptest.NewRecorder()
		h.Delete(rec, withID(req, 9999))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestEventsList(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.events()

	env.createEvent(t, "Draft Gala", "draft-gala", env.Now.Add(time.Hour), false)
	env.createEvent(t, "Live Show", "live-show", env.Now.Add(2*time.Hour), true)
	env.createEvent(t, "Another Live", "another-live", env.Now.Add(3*time.Hour), true)

	t.Run("filters by status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/events?status=published", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		got, meta := decodeDataMeta[[]EventResponse](t, rec)
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2 published", len(got))
		}
		if meta == nil || meta.Total != 2 {
			t.Errorf("meta = %+v, want total 2", meta)
		}
		for _, e := range got {
			if e.Schedule != string(service.BucketUpcoming) {
				t.Errorf("event %s schedule = %q, want upcoming", e.Slug, e.Schedule)
			}
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/events?status=archived", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)
		requireFieldError(t, rec, "status")
	})

	t.Run("rejects bad featured flag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/events?featured=maybe", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("paginates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/events?page=1&per_page=2", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		got, meta := decodeDataMeta[[]EventResponse](t, rec)
		if len(got) != 2 {
			t.Errorf("page size = %d, want 2", len(got))
		}
		if meta == nil || meta.Total != 3 || meta.Pages != 2 {
			t.Errorf("meta = %+v, want total 3 pages 2", meta)
		}
	})
}
