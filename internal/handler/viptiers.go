// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// hexColorRe matches CSS hex colors like #ffd700.
var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// VIPTiersHandler handles admin loyalty tier routes.
type VIPTiersHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewVIPTiersHandler creates a new VIPTiersHandler.
func NewVIPTiersHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *VIPTiersHandler {
	return &VIPTiersHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// VIPTierResponse represents a loyalty tier in API responses.
type VIPTierResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Rank      int64     `json:"rank"`
	MinPoints int64     `json:"min_points"`
	Color     string    `json:"color,omitempty"`
	Benefits  []string  `json:"benefits"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func vipTierToResponse(t model.VIPTier) VIPTierResponse {
	benefits := t.BenefitList()
	if benefits == nil {
		benefits = []string{}
	}
	return VIPTierResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Rank:      t.Rank,
		MinPoints: t.MinPoints,
		Color:     t.Color,
		Benefits:  benefits,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// CreateVIPTierRequest is the request body for creating a loyalty tier.
type CreateVIPTierRequest struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug,omitempty"`
	Rank      int64    `json:"rank"`
	MinPoints int64    `json:"min_points"`
	Color     string   `json:"color,omitempty"`
	Benefits  []string `json:"benefits,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// UpdateVIPTierRequest is the request body for partial tier updates.
type UpdateVIPTierRequest struct {
	Name      *string   `json:"name,omitempty"`
	Slug      *string   `json:"slug,omitempty"`
	Rank      *int64    `json:"rank,omitempty"`
	MinPoints *int64    `json:"min_points,omitempty"`
	Color     *string   `json:"color,omitempty"`
	Benefits  *[]string `json:"benefits,omitempty"`
	Active    *bool     `json:"active,omitempty"`
}

// List handles GET /admin/api/v1/vip-tiers. Tiers are few enough that
// the list is never paginated.
func (h *VIPTiersHandler) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.queries.ListVIPTiers(r.Context())
	if err != nil {
		slog.Error("failed to list vip tiers", "error", err)
		WriteInternalError(w, "Failed to list VIP tiers")
		return
	}

	responses := make([]VIPTierResponse, 0, len(tiers))
	for _, t := range tiers {
		responses = append(responses, vipTierToResponse(t))
	}
	WriteSuccess(w, responses, nil)
}

// Get handles GET /admin/api/v1/vip-tiers/{id}.
func (h *VIPTiersHandler) Get(w http.ResponseWriter, r *http.Request) {
	tier, ok := requireEntityByID(w, r, "VIP tier", func(id int64) (model.VIPTier, error) {
		return h.queries.GetVIPTierByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, vipTierToResponse(tier), nil)
}

// Create handles POST /admin/api/v1/vip-tiers.
func (h *VIPTiersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVIPTierRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Name == "" {
		fieldErrors["name"] = "Name is required"
	}
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Name)
	}
	if !util.IsValidSlug(req.Slug) {
		fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
	}
	if req.Rank < 1 {
		fieldErrors["rank"] = "Rank must be a positive integer"
	}
	if req.MinPoints < 0 {
		fieldErrors["min_points"] = "Minimum points must not be negative"
	}
	if req.Color != "" && !hexColorRe.MatchString(req.Color) {
		fieldErrors["color"] = "Color must be a hex value like #ffd700"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if !checkSlugUnique(w, h.slugOwner(r), req.Slug, 0) {
		return
	}
	if !h.checkRankUnique(w, r, req.Rank, 0) {
		return
	}

	benefits, err := model.BenefitsToJSON(req.Benefits)
	if err != nil {
		WriteValidationError(w, map[string]string{"benefits": "Benefits must be a list of strings"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	tier, err := h.queries.CreateVIPTier(r.Context(), store.CreateVIPTierParams{
		Name:      req.Name,
		Slug:      req.Slug,
		Rank:      req.Rank,
		MinPoints: req.MinPoints,
		Color:     req.Color,
		Benefits:  benefits,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		slog.Error("failed to create vip tier", "error", err)
		WriteInternalError(w, "Failed to create VIP tier")
		return
	}

	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "VIP tier created: "+tier.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"vip_tier_id": tier.ID, "slug": tier.Slug})

	WriteCreated(w, vipTierToResponse(tier))
}

// Update handles PUT /admin/api/v1/vip-tiers/{id}. Deactivating a tier
// hides it from delivery without losing its configuration.
func (h *VIPTiersHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "VIP tier", func(id int64) (model.VIPTier, error) {
		return h.queries.GetVIPTierByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdateVIPTierRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	params := store.UpdateVIPTierParams{
		ID:        existing.ID,
		Name:      existing.Name,
		Slug:      existing.Slug,
		Rank:      existing.Rank,
		MinPoints: existing.MinPoints,
		Color:     existing.Color,
		Benefits:  existing.Benefits,
		Active:    existing.Active,
		UpdatedAt: now,
	}

	fieldErrors := make(map[string]string)
	if req.Name != nil {
		if *req.Name == "" {
			fieldErrors["name"] = "Name is required"
		}
		params.Name = *req.Name
	}
	if req.Slug != nil {
		if !util.IsValidSlug(*req.Slug) {
			fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
		}
		params.Slug = *req.Slug
	}
	if req.Rank != nil {
		if *req.Rank < 1 {
			fieldErrors["rank"] = "Rank must be a positive integer"
		}
		params.Rank = *req.Rank
	}
	if req.MinPoints != nil {
		if *req.MinPoints < 0 {
			fieldErrors["min_points"] = "Minimum points must not be negative"
		}
		params.MinPoints = *req.MinPoints
	}
	if req.Color != nil {
		if *req.Color != "" && !hexColorRe.MatchString(*req.Color) {
			fieldErrors["color"] = "Color must be a hex value like #ffd700"
		}
		params.Color = *req.Color
	}
	if req.Benefits != nil {
		benefits, err := model.BenefitsToJSON(*req.Benefits)
		if err != nil {
			fieldErrors["benefits"] = "Benefits must be a list of strings"
		} else {
			params.Benefits = benefits
		}
	}
	if req.Active != nil {
		params.Active = *req.Active
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
	if params.Rank != existing.Rank {
		if !h.checkRankUnique(w, r, params.Rank, existing.ID) {
			return
		}
	}

	tier, err := h.queries.UpdateVIPTier(r.Context(), params)
	if err != nil {
		slog.Error("failed to update vip tier", "error", err, "vip_tier_id", existing.ID)
		WriteInternalError(w, "Failed to update VIP tier")
		return
	}

	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "VIP tier updated: "+tier.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"vip_tier_id": tier.ID, "slug": tier.Slug})

	WriteSuccess(w, vipTierToResponse(tier), nil)
}

// Delete handles DELETE /admin/api/v1/vip-tiers/{id}.
func (h *VIPTiersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "VIP tier", func(id int64) (model.VIPTier, error) {
		return h.queries.GetVIPTierByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeleteVIPTier(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete vip tier", "error", err, "vip_tier_id", existing.ID)
		WriteInternalError(w, "Failed to delete VIP tier")
		return
	}

	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "VIP tier deleted: "+existing.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"vip_tier_id": existing.ID, "slug": existing.Slug})

	WriteNoContent(w)
}

// checkRankUnique rejects a rank already held by another tier. The rank
// column is unique; checking here turns a constraint error into a
// validation message.
func (h *VIPTiersHandler) checkRankUnique(w http.ResponseWriter, r *http.Request, rank, excludeID int64) bool {
	tiers, err := h.queries.ListVIPTiers(r.Context())
	if err != nil {
		slog.Error("failed to check tier rank", "error", err)
		WriteInternalError(w, "Failed to validate rank")
		return false
	}
	for _, t := range tiers {
		if t.Rank == rank && t.ID != excludeID {
			WriteValidationError(w, map[string]string{"rank": "Rank is already used by another tier"})
			return false
		}
	}
	return true
}

// slugOwner adapts the slug lookup for uniqueness checks.
func (h *VIPTiersHandler) slugOwner(r *http.Request) SlugLookup {
	return func(slug string) (int64, error) {
		tier, err := h.queries.GetVIPTierBySlug(r.Context(), slug)
		if err != nil {
			return 0, err
		}
		return tier.ID, nil
	}
}
