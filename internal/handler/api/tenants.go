// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
)

// TenantResponse represents a storefront in delivery payloads. Opening
// hours are local wall-clock HH:MM strings.
type TenantResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Category    string `json:"category"`
	Floor       string `json:"floor,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	Featured    bool   `json:"featured"`
	OpensAt     string `json:"opens_at,omitempty"`
	ClosesAt    string `json:"closes_at,omitempty"`
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
		Featured:    t.Featured,
		OpensAt:     t.OpensAt,
		ClosesAt:    t.ClosesAt,
	}
}

// ListTenants handles GET /api/v1/tenants. The directory serves
// published storefronts only.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && !slices.Contains(model.TenantCategories(), category) {
		handler.WriteBadRequest(w, "Unknown category", map[string]string{"category": "Unknown category"})
		return
	}

	page, perPage, offset := handler.Pagination(r)
	params := store.ListTenantsParams{
		Status:   model.StatusPublished,
		Category: category,
		Search:   r.URL.Query().Get("search"),
		Limit:    int64(perPage),
		Offset:   offset,
	}

	tenants, total, err := handler.ListAndCount(
		func() ([]model.Tenant, error) { return h.queries.ListTenants(r.Context(), params) },
		func() (int64, error) { return h.queries.CountTenants(r.Context(), params) },
	)
	if err != nil {
		handler.WriteInternalError(w, "Failed to list tenants")
		return
	}

	resp := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, tenantToResponse(t))
	}

	handler.WriteSuccess(w, resp, handler.ListMeta(total, page, perPage))
}

// GetTenant handles GET /api/v1/tenants/{id}.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireEntityByID(w, r, "tenant", func(id int64) (model.Tenant, error) {
		return h.queries.GetTenantByID(r.Context(), id)
	})
	if !ok {
		return
	}
	if tenant.Status != model.StatusPublished {
		handler.WriteNotFound(w, "Tenant not found")
		return
	}

	handler.WriteSuccess(w, tenantToResponse(tenant), nil)
}

// GetTenantBySlug handles GET /api/v1/tenants/slug/{slug}.
func (h *Handler) GetTenantBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		handler.WriteBadRequest(w, "Slug is required", nil)
		return
	}

	tenant, err := h.queries.GetTenantBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			handler.WriteNotFound(w, "Tenant not found")
		} else {
			handler.WriteInternalError(w, "Failed to retrieve tenant")
		}
		return
	}
	if tenant.Status != model.StatusPublished {
		handler.WriteNotFound(w, "Tenant not found")
		return
	}

	handler.WriteSuccess(w, tenantToResponse(tenant), nil)
}
