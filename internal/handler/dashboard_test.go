// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

func TestDashboardSummary(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.dashboard()

	env.createEvent(t, "Winter Notes", "winter-notes", env.Now.Add(96*time.Hour), false)
	env.createEvent(t, "Spring Gala", "spring-gala", env.Now.Add(48*time.Hour), true)
	ongoing := env.createEvent(t, "Atrium Sessions", "atrium-sessions", env.Now.Add(-2*time.Hour), true)
	if _, err := env.Queries.CreateEvent(env.Ctx, store.CreateEventParams{
		Title:       "Retro Market",
		Slug:        "retro-market",
		Status:      model.StatusPublished,
		StartAt:     env.Now.Add(-72 * time.Hour),
		EndAt:       sql.NullTime{Time: env.Now.Add(-24 * time.Hour), Valid: true},
		PublishedAt: sql.NullTime{Time: env.Now.Add(-72 * time.Hour), Valid: true},
		CreatedAt:   env.Now,
		UpdatedAt:   env.Now,
	}); err != nil {
		t.Fatalf("create ended event: %v", err)
	}

	env.createTenant(t, "Nova Threads", "nova-threads", model.TenantCategoryFashion, model.StatusPublished)
	env.createTenant(t, "Velvet Rack", "velvet-rack", model.TenantCategoryFashion, model.StatusDraft)
	env.createTenant(t, "Ramen Ichiban", "ramen-ichiban", model.TenantCategoryFood, model.StatusPublished)

	env.createPost(t, "Opening Hours Update", "opening-hours-update", true)

	env.createPromotion(t, "Midnight Sale", "midnight-sale", env.Now, false)
	env.createPromotion(t, "Two For One", "two-for-one", env.Now, true)
	clearance := env.createPromotion(t, "Clearance", "clearance", env.Now.Add(-48*time.Hour), true)
	if _, err := env.Queries.ExpirePromotion(env.Ctx, clearance.ID, env.Now); err != nil {
		t.Fatalf("expire promotion: %v", err)
	}

	env.createTier(t, "Gold", "gold", 3)

	feed := service.NewFeedService(env.DB)
	if _, err := feed.Add(env.Ctx, model.WhatsOnTypeEvent, ongoing.ID, false, env.Now); err != nil {
		t.Fatalf("add feed item: %v", err)
	}

	if err := env.Activity.LogContent(env.Ctx, model.ActivityLevelInfo, "Event created: Spring Gala", nil, "", "", nil); err != nil {
		t.Fatalf("log activity: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/admin/api/v1/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sum := decodeData[service.DashboardSummary](t, rec)

	if sum.Events.Published != 3 {
		t.Errorf("Events.Published = %d, want 3", sum.Events.Published)
	}
	if sum.Events.Drafts != 1 {
		t.Errorf("Events.Drafts = %d, want 1", sum.Events.Drafts)
	}
	if sum.Events.Upcoming != 1 || sum.Events.Ongoing != 1 || sum.Events.Ended != 1 {
		t.Errorf("schedule counts = %d/%d/%d, want 1/1/1",
			sum.Events.Upcoming, sum.Events.Ongoing, sum.Events.Ended)
	}

	if len(sum.Events.Histogram) != service.DefaultDashboardWindowDays {
		t.Fatalf("histogram length = %d, want %d", len(sum.Events.Histogram), service.DefaultDashboardWindowDays)
	}
	var starts int
	for _, day := range sum.Events.Histogram {
		if day.Day == "" {
			t.Fatalf("histogram day label missing: %+v", day)
		}
		starts += day.Count
	}
	if starts != 2 {
		t.Errorf("histogram total = %d, want 2 (future starts fall outside the window)", starts)
	}

	if sum.Tenants.Total != 3 {
		t.Errorf("Tenants.Total = %d, want 3", sum.Tenants.Total)
	}
	if sum.Tenants.ByCategory[model.TenantCategoryFashion] != 2 {
		t.Errorf("fashion count = %d, want 2", sum.Tenants.ByCategory[model.TenantCategoryFashion])
	}
	if sum.Tenants.ByCategory[model.TenantCategoryFood] != 1 {
		t.Errorf("food count = %d, want 1", sum.Tenants.ByCategory[model.TenantCategoryFood])
	}

	if sum.Posts.Total != 1 || sum.Posts.Published != 1 {
		t.Errorf("posts = %d published of %d, want 1 of 1", sum.Posts.Published, sum.Posts.Total)
	}

	if sum.Promotions.Staging != 1 {
		t.Errorf("Promotions.Staging = %d, want 1", sum.Promotions.Staging)
	}
	if sum.Promotions.Published != 1 {
		t.Errorf("Promotions.Published = %d, want 1", sum.Promotions.Published)
	}
	if sum.Promotions.Expired != 1 {
		t.Errorf("Promotions.Expired = %d, want 1", sum.Promotions.Expired)
	}

	if sum.ActiveTiers != 1 {
		t.Errorf("ActiveTiers = %d, want 1", sum.ActiveTiers)
	}
	if sum.FeedItems != 1 {
		t.Errorf("FeedItems = %d, want 1", sum.FeedItems)
	}
	if sum.ActivityWeek != 1 {
		t.Errorf("ActivityWeek = %d, want 1", sum.ActivityWeek)
	}
	if sum.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestDashboardSummaryCache(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.dashboard()
	admin := env.adminUser(t)

	env.createPost(t, "First", "first", true)

	fetch := func() service.DashboardSummary {
		rec := httptest.NewRecorder()
		h.Summary(rec, httptest.NewRequest(http.MethodGet, "/admin/api/v1/dashboard", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		return decodeData[service.DashboardSummary](t, rec)
	}

	if got := fetch().Posts.Total; got != 1 {
		t.Fatalf("Posts.Total = %d, want 1", got)
	}

	// A direct insert bypasses the handlers and so does not touch the
	// cache: the summary stays stale until the TTL runs out.
	env.createPost(t, "Second", "second", false)
	if got := fetch().Posts.Total; got != 1 {
		t.Errorf("Posts.Total after direct insert = %d, want cached 1", got)
	}

	// Writes through a content handler invalidate the summary.
	req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/posts", map[string]any{
		"title": "Third",
	})
	rec := httptest.NewRecorder()
	env.posts().Create(rec, asUser(req, admin))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if got := fetch().Posts.Total; got != 3 {
		t.Errorf("Posts.Total after handler write = %d, want 3", got)
	}
}
