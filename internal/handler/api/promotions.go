// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/render"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// PromotionResponse represents a promotion in delivery payloads. A nil
// tenant_id means the promotion is mall-wide.
type PromotionResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	BodyHTML    string     `json:"body_html,omitempty"`
	TenantID    *int64     `json:"tenant_id,omitempty"`
	Featured    bool       `json:"featured"`
	Schedule    string     `json:"schedule"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func promotionToResponse(p model.Promotion, now time.Time) PromotionResponse {
	resp := PromotionResponse{
		ID:       p.ID,
		Title:    p.Title,
		Slug:     p.Slug,
		Summary:  p.Summary,
		BodyHTML: render.Markdown(p.Body),
		TenantID: util.Int64PtrFromNull(p.TenantID),
		Featured: p.Featured,
		Schedule: string(service.Classify(service.PromotionSchedule(p), now)),
		StartsAt: p.StartsAt,
	}
	if p.EndsAt.Valid {
		resp.EndsAt = &p.EndsAt.Time
	}
	if p.PublishedAt.Valid {
		resp.PublishedAt = &p.PublishedAt.Time
	}
	return resp
}

// ListPromotions handles GET /api/v1/promotions. Only live promotions
// are served; tenant narrows to one storefront and status to a
// schedule bucket.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
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

	params := store.ListPromotionsParams{
		Status:   model.PromotionStatusPublished,
		TenantID: util.ParseNullInt64Positive(r.URL.Query().Get("tenant")),
		Search:   r.URL.Query().Get("search"),
		Limit:    deliveryListLimit,
	}

	promotions, err := h.queries.ListPromotions(r.Context(), params)
	if err != nil {
		handler.WriteInternalError(w, "Failed to list promotions")
		return
	}
	if bucket != service.BucketNone {
		promotions = service.FilterPromotionsByBucket(promotions, bucket, now)
	}

	page, perPage, _ := handler.Pagination(r)
	total := int64(len(promotions))

	window := pageSlice(promotions, page, perPage)
	resp := make([]PromotionResponse, 0, len(window))
	for _, p := range window {
		resp = append(resp, promotionToResponse(p, now))
	}

	handler.WriteSuccess(w, resp, handler.ListMeta(total, page, perPage))
}

// GetPromotion handles GET /api/v1/promotions/{id}. Staging and
// expired promotions are not visible here.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	promotion, ok := requireEntityByID(w, r, "promotion", func(id int64) (model.Promotion, error) {
		return h.queries.GetPromotionByID(r.Context(), id)
	})
	if !ok {
		return
	}
	if promotion.Status != model.PromotionStatusPublished {
		handler.WriteNotFound(w, "Promotion not found")
		return
	}

	handler.WriteSuccess(w, promotionToResponse(promotion, time.Now().UTC()), nil)
}

// GetPromotionBySlug handles GET /api/v1/promotions/slug/{slug}.
func (h *Handler) GetPromotionBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		handler.WriteBadRequest(w, "Slug is required", nil)
		return
	}

	promotion, err := h.queries.GetPromotionBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			handler.WriteNotFound(w, "Promotion not found")
		} else {
			handler.WriteInternalError(w, "Failed to retrieve promotion")
		}
		return
	}
	if promotion.Status != model.PromotionStatusPublished {
		handler.WriteNotFound(w, "Promotion not found")
		return
	}

	handler.WriteSuccess(w, promotionToResponse(promotion, time.Now().UTC()), nil)
}
