// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
)

// VIPTierResponse represents a loyalty tier in delivery payloads.
type VIPTierResponse struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Rank      int64    `json:"rank"`
	MinPoints int64    `json:"min_points"`
	Color     string   `json:"color,omitempty"`
	Benefits  []string `json:"benefits"`
}

func vipTierToResponse(t model.VIPTier) VIPTierResponse {
	return VIPTierResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Rank:      t.Rank,
		MinPoints: t.MinPoints,
		Color:     t.Color,
		Benefits:  t.BenefitList(),
	}
}

// ListVIPTiers handles GET /api/v1/vip-tiers. Active tiers in rank
// order; the ladder is short, so there is no pagination.
func (h *Handler) ListVIPTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.queries.ListActiveVIPTiers(r.Context())
	if err != nil {
		handler.WriteInternalError(w, "Failed to list VIP tiers")
		return
	}

	resp := make([]VIPTierResponse, 0, len(tiers))
	for _, t := range tiers {
		resp = append(resp, vipTierToResponse(t))
	}

	handler.WriteSuccess(w, resp, nil)
}

// GetVIPTierBySlug handles GET /api/v1/vip-tiers/slug/{slug}. Inactive
// tiers are not visible here.
func (h *Handler) GetVIPTierBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		handler.WriteBadRequest(w, "Slug is required", nil)
		return
	}

	tier, err := h.queries.GetVIPTierBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			handler.WriteNotFound(w, "VIP tier not found")
		} else {
			handler.WriteInternalError(w, "Failed to retrieve VIP tier")
		}
		return
	}
	if !tier.Active {
		handler.WriteNotFound(w, "VIP tier not found")
		return
	}

	handler.WriteSuccess(w, vipTierToResponse(tier), nil)
}
