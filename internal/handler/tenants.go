// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// TenantsHandler handles admin storefront directory routes.
type TenantsHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewTenantsHandler creates a new TenantsHandler.
func NewTenantsHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *TenantsHandler {
	return &TenantsHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// TenantResponse represents a storefront record in API responses.
type TenantResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Floor       string    `json:"floor"`
	Unit        string    `json:"unit"`
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Status      string    `json:"status"`
	Featured    bool      `json:"featured"`
	OpensAt     string    `json:"opens_at,omitempty"`
	ClosesAt    string    `json:"closes_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func tenantToResponse(t model.Tenant) TenantResponse {
	return TenantResponse{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Category:    t.Category,
		Floor:       t.Floor,
		Unit:        t.Unit,
		Phone:       t.Phone,
		Website:     t.Website,
		Description: t.Description,
		LogoURL:     t.LogoURL,
		Status:      t.Status,
		Featured:    t.Featured,
		OpensAt:     t.OpensAt,
		ClosesAt:    t.ClosesAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// CreateTenantRequest is the request body for creating a storefront
// record. Opening hours use 24h "HH:MM" strings.
type CreateTenantRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Category    string `json:"category"`
	Floor       string `json:"floor,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	Status      string `json:"status,omitempty"`
	Featured    bool   `json:"featured"`
	OpensAt     string `json:"opens_at,omitempty"`
	ClosesAt    string `json:"closes_at,omitempty"`
}

// UpdateTenantRequest is the request body for partial storefront updates.
type UpdateTenantRequest struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Category    *string `json:"category,omitempty"`
	Floor       *string `json:"floor,omitempty"`
	Unit        *string `json:"unit,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`
	Description *string `json:"description,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
	Status      *string `json:"status,omitempty"`
	Featured    *bool   `json:"featured,omitempty"`
	OpensAt     *string `json:"opens_at,omitempty"`
	ClosesAt    *string `json:"closes_at,omitempty"`
}

// List handles GET /admin/api/v1/tenants.
func (h *TenantsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.StatusDraft && status != model.StatusPublished {
		WriteValidationError(w, map[string]string{"status": "Status must be one of: draft, published"})
		return
	}
	category := r.URL.Query().Get("category")
	if category != "" && !slices.Contains(model.TenantCategories(), category) {
		WriteValidationError(w, map[string]string{"category": "Unknown category"})
		return
	}

	page, perPage, offset := Pagination(r)
	params := store.ListTenantsParams{
		Status:   status,
		Category: category,
		Search:   r.URL.Query().Get("search"),
		Limit:    int64(perPage),
		Offset:   offset,
	}

	tenants, total, err := ListAndCount(
		func() ([]model.Tenant, error) { return h.queries.ListTenants(r.Context(), params) },
		func() (int64, error) { return h.queries.CountTenants(r.Context(), params) },
	)
	if err != nil {
		slog.Error("failed to list tenants", "error", err)
		WriteInternalError(w, "Failed to list tenants")
		return
	}

	responses := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		responses = append(responses, tenantToResponse(t))
	}

	WriteSuccess(w, responses, ListMeta(total, page, perPage))
}

// Get handles GET /admin/api/v1/tenants/{id}.
func (h *TenantsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireEntityByID(w, r, "tenant", func(id int64) (model.Tenant, error) {
		return h.queries.GetTenantByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, tenantToResponse(tenant), nil)
}

// Create handles POST /admin/api/v1/tenants.
func (h *TenantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Name == "" {
		fieldErrors["name"] = "Name is required"
	}
	if !slices.Contains(model.TenantCategories(), req.Category) {
		fieldErrors["category"] = "Category must be one of: " + strings.Join(model.TenantCategories(), ", ")
	}
	if req.Status == "" {
		req.Status = model.StatusDraft
	}
	if req.Status != model.StatusDraft && req.Status != model.StatusPublished {
		fieldErrors["status"] = "Status must be one of: draft, published"
	}
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Name)
	}
	if !util.IsValidSlug(req.Slug) {
		fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
	}
	if !validHours(req.OpensAt) {
		fieldErrors["opens_at"] = "Opening time must use 24h HH:MM format"
	}
	if !validHours(req.ClosesAt) {
		fieldErrors["closes_at"] = "Closing time must use 24h HH:MM format"
	}
	if req.Website != "" {
		if err := util.ValidateExternalURL(req.Website); err != nil {
			fieldErrors["website"] = "Website must be a public http(s) URL"
		}
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if !checkSlugUnique(w, h.slugOwner(r), req.Slug, 0) {
		return
	}

	now := time.Now().UTC()
	tenant, err := h.queries.CreateTenant(r.Context(), store.CreateTenantParams{
		Name:        req.Name,
		Slug:        req.Slug,
		Category:    req.Category,
		Floor:       req.Floor,
		Unit:        req.Unit,
		Phone:       req.Phone,
		Website:     req.Website,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		Status:      req.Status,
		Featured:    req.Featured,
		OpensAt:     req.OpensAt,
		ClosesAt:    req.ClosesAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		slog.Error("failed to create tenant", "error", err)
		WriteInternalError(w, "Failed to create tenant")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogTenant(r.Context(), model.ActivityLevelInfo, "Storefront created: "+tenant.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"tenant_id": tenant.ID, "slug": tenant.Slug})

	WriteCreated(w, tenantToResponse(tenant))
}

// Update handles PUT /admin/api/v1/tenants/{id}.
func (h *TenantsHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "tenant", func(id int64) (model.Tenant, error) {
		return h.queries.GetTenantByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdateTenantRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	params := store.UpdateTenantParams{
		ID:          existing.ID,
		Name:        existing.Name,
		Slug:        existing.Slug,
		Category:    existing.Category,
		Floor:       existing.Floor,
		Unit:        existing.Unit,
		Phone:       existing.Phone,
		Website:     existing.Website,
		Description: existing.Description,
		LogoURL:     existing.LogoURL,
		Status:      existing.Status,
		Featured:    existing.Featured,
		OpensAt:     existing.OpensAt,
		ClosesAt:    existing.ClosesAt,
		UpdatedAt:   time.Now().UTC(),
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
	if req.Category != nil {
		if !slices.Contains(model.TenantCategories(), *req.Category) {
			fieldErrors["category"] = "Category must be one of: " + strings.Join(model.TenantCategories(), ", ")
		}
		params.Category = *req.Category
	}
	if req.Status != nil {
		if *req.Status != model.StatusDraft && *req.Status != model.StatusPublished {
			fieldErrors["status"] = "Status must be one of: draft, published"
		}
		params.Status = *req.Status
	}
	if req.Floor != nil {
		params.Floor = *req.Floor
	}
	if req.Unit != nil {
		params.Unit = *req.Unit
	}
	if req.Phone != nil {
		params.Phone = *req.Phone
	}
	if req.Website != nil {
		if *req.Website != "" {
			if err := util.ValidateExternalURL(*req.Website); err != nil {
				fieldErrors["website"] = "Website must be a public http(s) URL"
			}
		}
		params.Website = *req.Website
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.LogoURL != nil {
		params.LogoURL = *req.LogoURL
	}
	if req.Featured != nil {
		params.Featured = *req.Featured
	}
	if req.OpensAt != nil {
		if !validHours(*req.OpensAt) {
			fieldErrors["opens_at"] = "Opening time must use 24h HH:MM format"
		}
		params.OpensAt = *req.OpensAt
	}
	if req.ClosesAt != nil {
		if !validHours(*req.ClosesAt) {
			fieldErrors["closes_at"] = "Closing time must use 24h HH:MM format"
		}
		params.ClosesAt = *req.ClosesAt
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

	tenant, err := h.queries.UpdateTenant(r.Context(), params)
	if err != nil {
		slog.Error("failed to update tenant", "error", err, "tenant_id", existing.ID)
		WriteInternalError(w, "Failed to update tenant")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogTenant(r.Context(), model.ActivityLevelInfo, "Storefront updated: "+tenant.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"tenant_id": tenant.ID, "slug": tenant.Slug})

	WriteSuccess(w, tenantToResponse(tenant), nil)
}

// Publish handles POST /admin/api/v1/tenants/{id}/publish. Storefronts
// have no publish timestamp; publishing flips the directory status.
func (h *TenantsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "tenant", func(id int64) (model.Tenant, error) {
		return h.queries.GetTenantByID(r.Context(), id)
	})
	if !ok {
		return
	}

	tenant, err := h.queries.UpdateTenant(r.Context(), store.UpdateTenantParams{
		ID:          existing.ID,
		Name:        existing.Name,
		Slug:        existing.Slug,
		Category:    existing.Category,
		Floor:       existing.Floor,
		Unit:        existing.Unit,
		Phone:       existing.Phone,
		Website:     existing.Website,
		Description: existing.Description,
		LogoURL:     existing.LogoURL,
		Status:      model.StatusPublished,
		Featured:    existing.Featured,
		OpensAt:     existing.OpensAt,
		ClosesAt:    existing.ClosesAt,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to publish tenant", "error", err, "tenant_id", existing.ID)
		WriteInternalError(w, "Failed to publish tenant")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogTenant(r.Context(), model.ActivityLevelInfo, "Storefront published: "+tenant.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"tenant_id": tenant.ID, "slug": tenant.Slug})

	WriteSuccess(w, tenantToResponse(tenant), nil)
}

// Delete handles DELETE /admin/api/v1/tenants/{id}. Promotions keep a
// nullable reference to their storefront; the schema nulls it on delete.
func (h *TenantsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "tenant", func(id int64) (model.Tenant, error) {
		return h.queries.GetTenantByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeleteTenant(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete tenant", "error", err, "tenant_id", existing.ID)
		WriteInternalError(w, "Failed to delete tenant")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogTenant(r.Context(), model.ActivityLevelInfo, "Storefront deleted: "+existing.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"tenant_id": existing.ID, "slug": existing.Slug})

	WriteNoContent(w)
}

// slugOwner adapts the slug lookup for uniqueness checks.
func (h *TenantsHandler) slugOwner(r *http.Request) SlugLookup {
	return func(slug string) (int64, error) {
		tenant, err := h.queries.GetTenantBySlug(r.Context(), slug)
		if err != nil {
			return 0, err
		}
		return tenant.ID, nil
	}
}

// validHours accepts an empty string or a 24h "HH:MM" clock value.
func validHours(v string) bool {
	if v == "" {
		return true
	}
	_, err := time.Parse("15:04", v)
	return err == nil
}
