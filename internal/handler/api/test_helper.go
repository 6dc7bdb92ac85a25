// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/testutil"
)

// testEnv wires a delivery handler against a migrated test database.
type testEnv struct {
	DB      *sql.DB
	Queries *store.Queries
	Handler *Handler
	Ctx     context.Context
	Now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	backend := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })

	feedCache := cache.NewTypedCache[[]service.FeedItem](backend, time.Minute)
	return &testEnv{
		DB:      db,
		Queries: store.New(db),
		Handler: NewHandler(db, service.NewFeedService(db), feedCache),
		Ctx:     context.Background(),
		Now:     time.Now().UTC().Truncate(time.Second),
	}
}

// createEvent inserts an event; a published one when publish is true.
func (e *testEnv) createEvent(t *testing.T, title, slug string, startAt time.Time, endAt *time.Time, publish bool) model.Event {
	t.Helper()

	status := model.StatusDraft
	var publishedAt sql.NullTime
	if publish {
		status = model.StatusPublished
		publishedAt = sql.NullTime{Time: e.Now, Valid: true}
	}

	var end sql.NullTime
	if endAt != nil {
		end = sql.NullTime{Time: *endAt, Valid: true}
	}

	event, err := e.Queries.CreateEvent(e.Ctx, store.CreateEventParams{
		Title:       title,
		Slug:        slug,
		Body:        "See you **there**.",
		Status:      status,
		StartAt:     startAt,
		EndAt:       end,
		PublishedAt: publishedAt,
		CreatedAt:   e.Now,
		UpdatedAt:   e.Now,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// createPost inserts a post, published when publish is true.
func (e *testEnv) createPost(t *testing.T, title, slug string, publish bool) model.Post {
	t.Helper()

	status := model.StatusDraft
	if publish {
		status = model.StatusPublished
	}

	post, err := e.Queries.CreatePost(e.Ctx, store.CreatePostParams{
		Title:     title,
		Slug:      slug,
		Body:      "News from the mall.",
		Status:    status,
		CreatedAt: e.Now,
		UpdatedAt: e.Now,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if publish {
		post, err = e.Queries.PublishPost(e.Ctx, post.ID, e.Now)
		if err != nil {
			t.Fatalf("publish post: %v", err)
		}
	}
	return post
}

// createPromotion inserts a promotion, lifted to published when publish
// is true.
func (e *testEnv) createPromotion(t *testing.T, title, slug string, startsAt time.Time, endsAt *time.Time, publish bool) model.Promotion {
	t.Helper()

	var end sql.NullTime
	if endsAt != nil {
		end = sql.NullTime{Time: *endsAt, Valid: true}
	}

	promo, err := e.Queries.CreatePromotion(e.Ctx, store.CreatePromotionParams{
		Title:     title,
		Slug:      slug,
		StartsAt:  startsAt,
		EndsAt:    end,
		CreatedAt: e.Now,
		UpdatedAt: e.Now,
	})
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	if publish {
		promo, err = e.Queries.PublishPromotion(e.Ctx, promo.ID, e.Now)
		if err != nil {
			t.Fatalf("publish promotion: %v", err)
		}
	}
	return promo
}

// createTenant inserts a storefront directory entry.
func (e *testEnv) createTenant(t *testing.T, name, slug, category, status string) model.Tenant {
	t.Helper()

	tenant, err := e.Queries.CreateTenant(e.Ctx, store.CreateTenantParams{
		Name:      name,
		Slug:      slug,
		Category:  category,
		Status:    status,
		CreatedAt: e.Now,
		UpdatedAt: e.Now,
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tenant
}

// createTier inserts a VIP tier.
func (e *testEnv) createTier(t *testing.T, name, slug string, rank int64, active bool) model.VIPTier {
	t.Helper()

	tier, err := e.Queries.CreateVIPTier(e.Ctx, store.CreateVIPTierParams{
		Name:      name,
		Slug:      slug,
		Rank:      rank,
		MinPoints: rank * 100,
		Benefits:  `["priority seating"]`,
		Active:    active,
		CreatedAt: e.Now,
		UpdatedAt: e.Now,
	})
	if err != nil {
		t.Fatalf("create tier: %v", err)
	}
	return tier
}

// addFeedItem appends a feed entry for the given content.
func (e *testEnv) addFeedItem(t *testing.T, itemType string, itemID int64, position int64, pinned bool) model.WhatsOnItem {
	t.Helper()

	item, err := e.Queries.CreateWhatsOnItem(e.Ctx, store.CreateWhatsOnItemParams{
		ItemType:  itemType,
		ItemID:    itemID,
		Position:  position,
		Pinned:    pinned,
		CreatedAt: e.Now,
		UpdatedAt: e.Now,
	})
	if err != nil {
		t.Fatalf("create feed item: %v", err)
	}
	return item
}

// formatID renders an ID for a chi URL parameter.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// requestWithURLParams binds chi route params onto r, the way the
// router would before dispatch.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// newGetRequest builds a GET request, binding route params when given.
func newGetRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// decodeResponse unmarshals a success envelope's data and meta.
func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) (T, *handler.Meta) {
	t.Helper()

	var resp struct {
		Data T             `json:"data"`
		Meta *handler.Meta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp.Data, resp.Meta
}
