// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func TestVIPTiersCreate(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.vipTiers()

	t.Run("creates tier with benefits", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/vip-tiers", CreateVIPTierRequest{
			Name:      "Gold",
			Rank:      1,
			MinPoints: 1000,
			Color:     "#ffd700",
			Benefits:  []string{"lounge access", "free parking"},
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[VIPTierResponse](t, rec)
		if got.Slug != "gold" {
			t.Errorf("slug = %q, want gold", got.Slug)
		}
		if !got.Active {
			t.Error("active should default to true")
		}
		if !slices.Equal(got.Benefits, []string{"lounge access", "free parking"}) {
			t.Errorf("benefits = %v", got.Benefits)
		}
	})

	t.Run("rejects non-positive rank", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/vip-tiers", CreateVIPTierRequest{
			Name: "Zero",
			Rank: 0,
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "rank")
	})

	t.Run("rejects negative minimum points", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/vip-tiers", CreateVIPTierRequest{
			Name:      "Negative",
			Rank:      2,
			MinPoints: -5,
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "min_points")
	})

	t.Run("rejects malformed color", func(t *testing.T) {
		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/vip-tiers", CreateVIPTierRequest{
			Name:  "Plaid",
			Rank:  3,
			Color: "gold",
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "color")
	})

	t.Run("rejects duplicate rank", func(t *testing.T) {
		env.createTier(t, "Silver", "silver", 5)

		req := newJSONRequest(t, http.MethodPost, "/admin/api/v1/vip-tiers", CreateVIPTierRequest{
			Name: "Also Fifth",
			Rank: 5,
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		requireFieldError(t, rec, "rank")
	})
}

func TestVIPTiersUpdate(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.vipTiers()

	t.Run("deactivates without losing configuration", func(t *testing.T) {
		tier := env.createTier(t, "Platinum", "platinum", 1)

		inactive := false
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/vip-tiers/1", UpdateVIPTierRequest{
			Active: &inactive,
		})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, tier.ID))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[VIPTierResponse](t, rec)
		if got.Active {
			t.Error("tier should be inactive")
		}
		if got.Name != "Platinum" || got.Rank != 1 || got.MinPoints != 100 {
			t.Errorf("configuration changed on deactivate: %+v", got)
		}
	})

	t.Run("rejects rank collision", func(t *testing.T) {
		env.createTier(t, "Jade", "jade", 2)
		tier := env.createTier(t, "Opal", "opal", 3)

		rank := int64(2)
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/vip-tiers/3", UpdateVIPTierRequest{Rank: &rank})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, tier.ID))
		requireFieldError(t, rec, "rank")
	})

	t.Run("replaces benefits wholesale", func(t *testing.T) {
		tier := env.createTier(t, "Ruby", "ruby", 7)

		benefits := []string{"valet"}
		req := newJSONRequest(t, http.MethodPut, "/admin/api/v1/vip-tiers/4", UpdateVIPTierRequest{
			Benefits: &benefits,
		})
		rec := httptest.NewRecorder()
		h.Update(rec, withID(req, tier.ID))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		got := decodeData[VIPTierResponse](t, rec)
		if !slices.Equal(got.Benefits, []string{"valet"}) {
			t.Errorf("benefits = %v, want [valet]", got.Benefits)
		}
	})
}

func TestVIPTiersList(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.vipTiers()

	env.createTier(t, "Bronze", "bronze", 3)
	env.createTier(t, "Gold", "gold", 1)
	env.createTier(t, "Silver", "silver", 2)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/vip-tiers", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeData[[]VIPTierResponse](t, rec)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Tiers come back ordered by rank.
	for i, want := range []string{"gold", "silver", "bronze"} {
		if got[i].Slug != want {
			t.Errorf("position %d = %q, want %q", i, got[i].Slug, want)
		}
	}
}

func TestVIPTiersDelete(t *testing.T) {
	env := newHandlerEnv(t)
	h := env.vipTiers()
	tier := env.createTier(t, "Retired", "retired", 9)

	req := newJSONRequest(t, http.MethodDelete, "/admin/api/v1/vip-tiers/1", nil)
	rec := httptest.NewRecorder()
	h.Delete(rec, withID(req, tier.ID))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if _, err := env.Queries.GetVIPTierByID(env.Ctx, tier.ID); err == nil {
		t.Error("tier still present after delete")
	}
}
