// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// PromotionsHandler handles admin promotion routes.
type PromotionsHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewPromotionsHandler creates a new PromotionsHandler.
func NewPromotionsHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *PromotionsHandler {
	return &PromotionsHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// PromotionResponse represents a promotion in API responses. Schedule
// reflects where the promotion sits relative to its date window and is
// only present for published promotions.
type PromotionResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body"`
	TenantID    *int64     `json:"tenant_id,omitempty"`
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Schedule    string     `json:"schedule,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func promotionToResponse(p model.Promotion, now time.Time) PromotionResponse {
	resp := PromotionResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Summary:     p.Summary,
		Body:        p.Body,
		TenantID:    util.Int64PtrFromNull(p.TenantID),
		Status:      p.Status,
		Featured:    p.Featured,
		StartsAt:    p.StartsAt,
		EndsAt:      util.TimePtrFromNull(p.EndsAt),
		PublishedAt: util.TimePtrFromNull(p.PublishedAt),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if bucket := service.Classify(service.PromotionSchedule(p), now); bucket != service.BucketNone {
		resp.Schedule = string(bucket)
	}
	return resp
}

// CreatePromotionRequest is the request body for creating a promotion.
// New promotions always start in staging; publish them explicitly or
// let the scheduler pick them up once starts_at arrives. Timestamps are
// RFC3339.
type CreatePromotionRequest struct {
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Body     string `json:"body,omitempty"`
	TenantID *int64 `json:"tenant_id,omitempty"`
	Featured bool   `json:"featured"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at,omitempty"`
}

// UpdatePromotionRequest is the request body for partial promotion
// updates. Lifecycle status is not updatable here; use the publish and
// expire endpoints. An empty ends_at string clears the end date and a
// tenant_id of zero clears the storefront link.
type UpdatePromotionRequest struct {
	Title    *string `json:"title,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Summary  *string `json:"summary,omitempty"`
	Body     *string `json:"body,omitempty"`
	TenantID *int64  `json:"tenant_id,omitempty"`
	Featured *bool   `json:"featured,omitempty"`
	StartsAt *string `json:"starts_at,omitempty"`
	EndsAt   *string `json:"ends_at,omitempty"`
}

// List handles GET /admin/api/v1/promotions.
func (h *PromotionsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidPromotionStatus(status) {
		WriteValidationError(w, map[string]string{"status": "Status must be 'staging', 'published' or 'expired'"})
		return
	}

	page, perPage, offset := Pagination(r)
	params := store.ListPromotionsParams{
		Status:   status,
		TenantID: util.ParseNullInt64Positive(r.URL.Query().Get("tenant_id")),
		Search:   r.URL.Query().Get("search"),
		Limit:    int64(perPage),
		Offset:   offset,
	}

	promotions, total, err := ListAndCount(
		func() ([]model.Promotion, error) { return h.queries.ListPromotions(r.Context(), params) },
		func() (int64, error) { return h.queries.CountPromotions(r.Context(), params) },
	)
	if err != nil {
		slog.Error("failed to list promotions", "error", err)
		WriteInternalError(w, "Failed to list promotions")
		return
	}

	now := time.Now().UTC()
	responses := make([]PromotionResponse, 0, len(promotions))
	for _, p := range promotions {
		responses = append(responses, promotionToResponse(p, now))
	}

	WriteSuccess(w, responses, ListMeta(total, page, perPage))
}

// Get handles GET /admin/api/v1/promotions/{id}.
func (h *PromotionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	promotion, ok := requireEntityByID(w, r, "promotion", func(id int64) (model.Promotion, error) {
		return h.queries.GetPromotionByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, promotionToResponse(promotion, time.Now().UTC()), nil)
}

// Create handles POST /admin/api/v1/promotions.
func (h *PromotionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePromotionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Title)
	}
	if !util.IsValidSlug(req.Slug) {
		fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
	}

	var startsAt time.Time
	if req.StartsAt == "" {
		fieldErrors["starts_at"] = "Start time is required"
	} else if t, ok := parseRFC3339(req.StartsAt); !ok {
		fieldErrors["starts_at"] = "Start time must be RFC3339"
	} else {
		startsAt = t
	}

	var endsAt time.Time
	if req.EndsAt != "" {
		if t, ok := parseRFC3339(req.EndsAt); !ok {
			fieldErrors["ends_at"] = "End time must be RFC3339"
		} else if !startsAt.IsZero() && t.Before(startsAt) {
			fieldErrors["ends_at"] = "End time must not be before start time"
		} else {
			endsAt = t
		}
	}

	tenantID, ok := h.resolveTenant(r, req.TenantID, fieldErrors)
	if !ok {
		WriteInternalError(w, "Failed to create promotion")
		return
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if !checkSlugUnique(w, h.slugOwner(r), req.Slug, 0) {
		return
	}

	now := time.Now().UTC()
	promotion, err := h.queries.CreatePromotion(r.Context(), store.CreatePromotionParams{
		Title:     req.Title,
		Slug:      req.Slug,
		Summary:   req.Summary,
		Body:      req.Body,
		TenantID:  tenantID,
		Featured:  req.Featured,
		StartsAt:  startsAt,
		EndsAt:    util.NullTimeFromValue(endsAt),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		slog.Error("failed to create promotion", "error", err)
		WriteInternalError(w, "Failed to create promotion")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogPromotion(r.Context(), model.ActivityLevelInfo, "Promotion created: "+promotion.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"promotion_id": promotion.ID, "slug": promotion.Slug})

	WriteCreated(w, promotionToResponse(promotion, now))
}

// Update handles PUT /admin/api/v1/promotions/{id}.
func (h *PromotionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "promotion", func(id int64) (model.Promotion, error) {
		return h.queries.GetPromotionByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdatePromotionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	params := store.UpdatePromotionParams{
		ID:        existing.ID,
		Title:     existing.Title,
		Slug:      existing.Slug,
		Summary:   existing.Summary,
		Body:      existing.Body,
		TenantID:  existing.TenantID,
		Featured:  existing.Featured,
		StartsAt:  existing.StartsAt,
		EndsAt:    existing.EndsAt,
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
	if req.Summary != nil {
		params.Summary = *req.Summary
	}
	if req.Body != nil {
		params.Body = *req.Body
	}
	if req.Featured != nil {
		params.Featured = *req.Featured
	}
	if req.StartsAt != nil {
		if t, ok := parseRFC3339(*req.StartsAt); !ok || t.IsZero() {
			fieldErrors["starts_at"] = "Start time must be RFC3339"
		} else {
			params.StartsAt = t
		}
	}
	if req.EndsAt != nil {
		if *req.EndsAt == "" {
			params.EndsAt = sql.NullTime{}
		} else if t, ok := parseRFC3339(*req.EndsAt); !ok {
			fieldErrors["ends_at"] = "End time must be RFC3339"
		} else {
			params.EndsAt = util.NullTimeFromValue(t)
		}
	}
	if params.EndsAt.Valid && params.EndsAt.Time.Before(params.StartsAt) {
		fieldErrors["ends_at"] = "End time must not be before start time"
	}
	if req.TenantID != nil {
		if *req.TenantID == 0 {
			params.TenantID = sql.NullInt64{}
		} else {
			tenantID, ok := h.resolveTenant(r, req.TenantID, fieldErrors)
			if !ok {
				WriteInternalError(w, "Failed to update promotion")
				return
			}
			params.TenantID = tenantID
		}
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

	promotion, err := h.queries.UpdatePromotion(r.Context(), params)
	if err != nil {
		slog.Error("failed to update promotion", "error", err, "promotion_id", existing.ID)
		WriteInternalError(w, "Failed to update promotion")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogPromotion(r.Context(), model.ActivityLevelInfo, "Promotion updated: "+promotion.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"promotion_id": promotion.ID, "slug": promotion.Slug})

	WriteSuccess(w, promotionToResponse(promotion, now), nil)
}

// Publish handles POST /admin/api/v1/promotions/{id}/publish. The
// published_at timestamp is stamped on first publish only; republishing
// an expired promotion keeps the original.
func (h *PromotionsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "promotion", func(id int64) (model.Promotion, error) {
		return h.queries.GetPromotionByID(r.Context(), id)
	})
	if !ok {
		return
	}

	now := time.Now().UTC()
	promotion, err := h.queries.PublishPromotion(r.Context(), existing.ID, now)
	if err != nil {
		slog.Error("failed to publish promotion", "error", err, "promotion_id", existing.ID)
		WriteInternalError(w, "Failed to publish promotion")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogPromotion(r.Context(), model.ActivityLevelInfo, "Promotion published: "+promotion.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"promotion_id": promotion.ID, "slug": promotion.Slug})

	WriteSuccess(w, promotionToResponse(promotion, now), nil)
}

// Expire handles POST /admin/api/v1/promotions/{id}/expire.
func (h *PromotionsHandler) Expire(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "promotion", func(id int64) (model.Promotion, error) {
		return h.queries.GetPromotionByID(r.Context(), id)
	})
	if !ok {
		return
	}

	now := time.Now().UTC()
	promotion, err := h.queries.ExpirePromotion(r.Context(), existing.ID, now)
	if err != nil {
		slog.Error("failed to expire promotion", "error", err, "promotion_id", existing.ID)
		WriteInternalError(w, "Failed to expire promotion")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogPromotion(r.Context(), model.ActivityLevelInfo, "Promotion expired: "+promotion.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"promotion_id": promotion.ID, "slug": promotion.Slug})

	WriteSuccess(w, promotionToResponse(promotion, now), nil)
}

// Delete handles DELETE /admin/api/v1/promotions/{id}.
func (h *PromotionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "promotion", func(id int64) (model.Promotion, error) {
		return h.queries.GetPromotionByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeletePromotion(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete promotion", "error", err, "promotion_id", existing.ID)
		WriteInternalError(w, "Failed to delete promotion")
		return
	}
	if err := h.queries.DeleteWhatsOnItemByRef(r.Context(), model.WhatsOnTypePromotion, existing.ID); err != nil {
		slog.Error("failed to remove feed entry for deleted promotion", "error", err, "promotion_id", existing.ID)
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogPromotion(r.Context(), model.ActivityLevelInfo, "Promotion deleted: "+existing.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"promotion_id": existing.ID, "slug": existing.Slug})

	WriteNoContent(w)
}

// resolveTenant validates an optional storefront reference. A missing
// tenant adds a field error; an infrastructure failure returns ok=false.
func (h *PromotionsHandler) resolveTenant(r *http.Request, tenantID *int64, fieldErrors map[string]string) (sql.NullInt64, bool) {
	if tenantID == nil || *tenantID == 0 {
		return sql.NullInt64{}, true
	}
	if _, err := h.queries.GetTenantByID(r.Context(), *tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fieldErrors["tenant_id"] = "Storefront not found"
			return sql.NullInt64{}, true
		}
		slog.Error("failed to resolve storefront", "error", err, "tenant_id", *tenantID)
		return sql.NullInt64{}, false
	}
	return util.NullInt64FromPtr(tenantID), true
}

// slugOwner adapts the slug lookup for uniqueness checks.
func (h *PromotionsHandler) slugOwner(r *http.Request) SlugLookup {
	return func(slug string) (int64, error) {
		promotion, err := h.queries.GetPromotionBySlug(r.Context(), slug)
		if err != nil {
			return 0, err
		}
		return promotion.ID, nil
	}
}
