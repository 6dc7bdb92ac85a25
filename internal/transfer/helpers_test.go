// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/testutil"
)

// testSetup bundles what every transfer test needs.
type testSetup struct {
	DB      *sql.DB
	Queries *store.Queries
	Ctx     context.Context
	Now     time.Time
	Cleanup func()
}

// setupTest opens a migrated scratch database for one test.
func setupTest(t *testing.T) *testSetup {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	return &testSetup{
		DB:      db,
		Queries: store.New(db),
		Ctx:     context.Background(),
		Now:     time.Now().UTC().Truncate(time.Second),
		Cleanup: cleanup,
	}
}

// seededContent holds the rows created by seedContent.
type seededContent struct {
	Tenant    model.Tenant
	Event     model.Event
	Post      model.Post
	Promotion model.Promotion
	Tier      model.VIPTier
	FeedItem  model.WhatsOnItem
}

// seedContent creates one row of each content type: a storefront, a
// published event, a draft post, a published promotion linked to the
// storefront, an active tier and one pinned feed entry for the event.
func seedContent(t *testing.T, s *testSetup) seededContent {
	t.Helper()

	tenant, err := s.Queries.CreateTenant(s.Ctx, store.CreateTenantParams{
		Name:      "Aurora Books",
		Slug:      "aurora-books",
		Category:  model.TenantCategoryFashion,
		Floor:     "2",
		Unit:      "2-14",
		Status:    model.StatusPublished,
		OpensAt:   "10:00",
		ClosesAt:  "21:00",
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	})
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	event, err := s.Queries.CreateEvent(s.Ctx, store.CreateEventParams{
		Title:       "Night Market",
		Slug:        "night-market",
		Summary:     "Late opening with live music",
		Status:      model.StatusPublished,
		StartAt:     s.Now.Add(24 * time.Hour),
		PublishedAt: sql.NullTime{Time: s.Now, Valid: true},
		CreatedAt:   s.Now,
		UpdatedAt:   s.Now,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}

	post, err := s.Queries.CreatePost(s.Ctx, store.CreatePostParams{
		Title:     "Spring Guide",
		Slug:      "spring-guide",
		Excerpt:   "What to see this spring",
		Status:    model.StatusDraft,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}

	promotion, err := s.Queries.CreatePromotion(s.Ctx, store.CreatePromotionParams{
		Title:     "Two For One",
		Slug:      "two-for-one",
		TenantID:  sql.NullInt64{Int64: tenant.ID, Valid: true},
		StartsAt:  s.Now,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	})
	if err != nil {
		t.Fatalf("seed promotion: %v", err)
	}
	promotion, err = s.Queries.PublishPromotion(s.Ctx, promotion.ID, s.Now)
	if err != nil {
		t.Fatalf("publish seeded promotion: %v", err)
	}

	tier, err := s.Queries.CreateVIPTier(s.Ctx, store.CreateVIPTierParams{
		Name:      "Gold",
		Slug:      "gold",
		Rank:      1,
		MinPoints: 1000,
		Color:     "#ffd700",
		Benefits:  `["free parking","lounge access"]`,
		Active:    true,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	})
	if err != nil {
		t.Fatalf("seed tier: %v", err)
	}

	feedItem, err := s.Queries.CreateWhatsOnItem(s.Ctx, store.CreateWhatsOnItemParams{
		ItemType:  model.WhatsOnTypeEvent,
		ItemID:    event.ID,
		Position:  1,
		Pinned:    true,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	})
	if err != nil {
		t.Fatalf("seed feed item: %v", err)
	}

	return seededContent{
		Tenant:    tenant,
		Event:     event,
		Post:      post,
		Promotion: promotion,
		Tier:      tier,
		FeedItem:  feedItem,
	}
}

// sampleExport builds a valid in-memory export document with one entity
// of each type, unconnected to any database.
func sampleExport(now time.Time) *ExportData {
	endsAt := now.Add(72 * time.Hour)
	publishedAt := now.Add(-time.Hour)
	return &ExportData{
		Version:    ExportVersion,
		UUID:       "11111111-2222-3333-4444-555555555555",
		ExportedAt: now,
		Tenants: []ExportTenant{{
			Name:      "Harbor Deli",
			Slug:      "harbor-deli",
			Category:  model.TenantCategoryFood,
			Floor:     "1",
			Status:    model.StatusPublished,
			OpensAt:   "08:00",
			ClosesAt:  "22:00",
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Events: []ExportEvent{{
			Title:       "Jazz Evening",
			Slug:        "jazz-evening",
			Status:      model.StatusPublished,
			StartAt:     now.Add(48 * time.Hour),
			PublishedAt: &publishedAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}},
		Posts: []ExportPost{{
			Title:     "Holiday Hours",
			Slug:      "holiday-hours",
			Status:    model.StatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Promotions: []ExportPromotion{{
			Title:       "Lunch Special",
			Slug:        "lunch-special",
			TenantSlug:  "harbor-deli",
			Status:      model.PromotionStatusPublished,
			StartsAt:    now,
			EndsAt:      &endsAt,
			PublishedAt: &publishedAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}},
		VIPTiers: []ExportVIPTier{{
			Name:      "Silver",
			Slug:      "silver",
			Rank:      2,
			MinPoints: 500,
			Benefits:  []string{"member pricing"},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Feed: []ExportFeedItem{{
			ItemType: model.WhatsOnTypeEvent,
			Slug:     "jazz-evening",
			Pinned:   true,
		}},
	}
}
