// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/testutil"
)

// handlerEnv wires the shared dependencies of the admin handlers
// against a migrated and seeded test database.
type handlerEnv struct {
	DB       *sql.DB
	Queries  *store.Queries
	Activity *service.ActivityService
	Cache    *cache.Manager
	Perms    *cache.TypedCache[auth.PermissionSet]
	Backend  cache.Cacher
	Ctx      context.Context
	Now      time.Time
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	if err := store.Seed(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	backend := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })

	return &handlerEnv{
		DB:       db,
		Queries:  store.New(db),
		Activity: service.NewActivityService(db, nil),
		Cache:    cache.NewManager(backend),
		Perms:    cache.NewTypedCache[auth.PermissionSet](backend, time.Minute),
		Backend:  backend,
		Ctx:      ctx,
		Now:      time.Now().UTC().Truncate(time.Second),
	}
}

func (e *handlerEnv) events() *EventsHandler {
	return NewEventsHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) tenants() *TenantsHandler {
	return NewTenantsHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) posts() *PostsHandler {
	return NewPostsHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) promotions() *PromotionsHandler {
	return NewPromotionsHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) vipTiers() *VIPTiersHandler {
	return NewVIPTiersHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) whatsOn() *WhatsOnHandler {
	return NewWhatsOnHandler(service.NewFeedService(e.DB), e.Activity, e.Cache)
}

func (e *handlerEnv) users() *UsersHandler {
	return NewUsersHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) roles() *RolesHandler {
	return NewRolesHandler(e.DB, e.Activity, e.Cache)
}

func (e *handlerEnv) apiKeys() *APIKeysHandler {
	return NewAPIKeysHandler(e.DB, e.Activity)
}

func (e *handlerEnv) activityHandler() *ActivityHandler {
	return NewActivityHandler(e.DB, e.Activity)
}

func (e *handlerEnv) dashboard() *DashboardHandler {
	return NewDashboardHandler(
		service.NewDashboardService(e.DB, service.DefaultDashboardWindowDays),
		cache.NewTypedCache[service.DashboardSummary](e.Backend, time.Minute),
	)
}

func (e *handlerEnv) importExport() *ImportExportHandler {
	return NewImportExportHandler(e.DB, e.Activity, e.Cache, testutil.TestLogger())
}

// adminUser returns the super admin account created by the seed.
func (e *handlerEnv) adminUser(t *testing.T) model.User {
	t.Helper()
	user, err := e.Queries.GetUserByEmail(e.Ctx, store.DefaultAdminEmail)
	if err != nil {
		t.Fatalf("load seeded admin: %v", err)
	}
	return user
}

// createUser inserts an active user with the given seeded roles.
func (e *handlerEnv) createUser(t *testing.T, email, name string, roleNames ...string) model.User {
	t.Helper()

	user, err := e.Queries.CreateUser(e.Ctx, store.CreateUserParams{
		Email:        email,
		PasswordHash: "x",
		Name:         name,
		Active:       true,
		CreatedAt:    e.Now,
		UpdatedAt:    e.Now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, roleName := range roleNames {
		role, err := e.Queries.GetRoleByName(e.Ctx, roleName)
		if err != nil {
			t.Fatalf("load role %s: %v", roleName, err)
		}
		if err := e.Queries.AddUserRole(e.Ctx, user.ID, role.ID); err != nil {
			t.Fatalf("assign role: %v", err)
		}
	}
	return user
}

// createEvent inserts an event; a published one when publish is true.
func (e *handlerEnv) createEvent(t *testing.T, title, slug string, startAt time.Time, publish bool) model.Event {
	t.Helper()

	status := model.StatusDraft
	var publishedAt sql.NullTime
	if publish {
		status = model.StatusPublished
		publishedAt = sql.NullTime{Time: e.Now, Valid: true}
	}

	event, err := e.Queries.CreateEvent(e.Ctx, store.CreateEventParams{
		Title:       title,
		Slug:        slug,
		Status:      status,
		StartAt:     startAt,
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
func (e *handlerEnv) createPost(t *testing.T, title, slug string, publish bool) model.Post {
	t.Helper()

	post, err := e.Queries.CreatePost(e.Ctx, store.CreatePostParams{
		Title:     title,
		Slug:      slug,
		Status:    model.StatusDraft,
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

// createTenant inserts a storefront directory entry.
func (e *handlerEnv) createTenant(t *testing.T, name, slug, category, status string) model.Tenant {
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

// createPromotion inserts a promotion, lifted to published when publish
// is true.
func (e *handlerEnv) createPromotion(t *testing.T, title, slug string, startsAt time.Time, publish bool) model.Promotion {
	t.Helper()

	promo, err := e.Queries.CreatePromotion(e.Ctx, store.CreatePromotionParams{
		Title:     title,
		Slug:      slug,
		StartsAt:  startsAt,
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

// createTier inserts a VIP tier.
func (e *handlerEnv) createTier(t *testing.T, name, slug string, rank int64) model.VIPTier {
	t.Helper()

	tier, err := e.Queries.CreateVIPTier(e.Ctx, store.CreateVIPTierParams{
		Name:      name,
		Slug:      slug,
		Rank:      rank,
		MinPoints: rank * 100,
		Benefits:  `["lounge access"]`,
		Active:    true,
		CreatedAt: e.Now,
		UpdatedAt: e.Now,
	})
	if err != nil {
		t.Fatalf("create tier: %v", err)
	}
	return tier
}

// newJSONRequest builds a request with a JSON body.
func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withID injects a chi {id} URL parameter.
func withID(r *http.Request, id int64) *http.Request {
	return withRawID(r, strconv.FormatInt(id, 10))
}

func withRawID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser attaches an acting user to the request, the way LoadUser does
// for real traffic.
func asUser(r *http.Request, user model.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, user))
}

// decodeData unmarshals the data field of a success envelope.
func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	data, _ := decodeDataMeta[T](t, rec)
	return data
}

// decodeDataMeta unmarshals a success envelope's data and meta.
func decodeDataMeta[T any](t *testing.T, rec *httptest.ResponseRecorder) (T, *Meta) {
	t.Helper()

	var resp struct {
		Data T     `json:"data"`
		Meta *Meta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp.Data, resp.Meta
}

// decodeError unmarshals an error envelope.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rec.Body.String())
	}
	return resp.Error
}

// requireFieldError asserts a 422 response carrying an error for field.
func requireFieldError(t *testing.T, rec *httptest.ResponseRecorder, field string) {
	t.Helper()

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	detail := decodeError(t, rec)
	if detail.Code != "validation_error" {
		t.Errorf("error code = %q, want validation_error", detail.Code)
	}
	if _, ok := detail.Details[field]; !ok {
		t.Errorf("expected field error for %q, got %v", field, detail.Details)
	}
}
