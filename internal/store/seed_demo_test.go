// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/galleria-dev/galleria/internal/model"
)

// seededDB returns a migrated database with the base seed applied, so
// the roles the demo users need already exist.
func seededDB(t *testing.T) (*sql.DB, *Queries) {
	t.Helper()
	db, cleanup := testDB(t)
	t.Cleanup(cleanup)
	if err := Seed(context.Background(), db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return db, New(db)
}

func TestSeedDemoPopulatesShowcase(t *testing.T) {
	db, q := seededDB(t)
	ctx := context.Background()
	t.Setenv("GALLERIA_DEMO_MODE", "true")

	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	demoUsers := []struct {
		email string
		name  string
		role  string
	}{
		{DemoAdminEmail, DemoAdminName, model.RoleAdmin},
		{DemoEditorEmail, DemoEditorName, model.RoleEditor},
	}
	for _, du := range demoUsers {
		u, err := q.GetUserByEmail(ctx, du.email)
		if err != nil {
			t.Fatalf("GetUserByEmail(%s): %v", du.email, err)
		}
		if u.Name != du.name {
			t.Errorf("%s name = %q, want %q", du.email, u.Name, du.name)
		}
		roles, err := q.GetUserRoles(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUserRoles(%s): %v", du.email, err)
		}
		if len(roles) != 1 || roles[0].Name != du.role {
			t.Errorf("%s roles = %+v, want [%s]", du.email, roles, du.role)
		}
	}

	tallies := []struct {
		entity string
		count  func() (int64, error)
		min    int64
	}{
		{"tenants", func() (int64, error) { return q.CountTenants(ctx, ListTenantsParams{}) }, 6},
		{"events", func() (int64, error) { return q.CountEvents(ctx, ListEventsParams{}) }, 5},
		{"published posts", func() (int64, error) { return q.CountPublishedPosts(ctx) }, 3},
	}
	for _, tl := range tallies {
		n, err := tl.count()
		if err != nil {
			t.Fatalf("counting %s: %v", tl.entity, err)
		}
		if n < tl.min {
			t.Errorf("%s = %d, want at least %d", tl.entity, n, tl.min)
		}
	}

	// The promotion lifecycle spread needs one entry per status so the
	// admin list filters all show something.
	for _, status := range []string{
		model.PromotionStatusStaging,
		model.PromotionStatusPublished,
		model.PromotionStatusExpired,
	} {
		count, err := q.CountPromotions(ctx, ListPromotionsParams{Status: status})
		if err != nil {
			t.Fatalf("CountPromotions(%s): %v", status, err)
		}
		if count < 1 {
			t.Errorf("no %s promotion in demo data", status)
		}
	}

	tiers, err := q.ListVIPTiers(ctx)
	if err != nil {
		t.Fatalf("ListVIPTiers: %v", err)
	}
	if len(tiers) != 3 {
		t.Errorf("tier count = %d, want 3", len(tiers))
	}

	items, err := q.ListWhatsOnItems(ctx)
	if err != nil {
		t.Fatalf("ListWhatsOnItems: %v", err)
	}
	if len(items) < 3 {
		t.Fatalf("feed items = %d, want at least 3", len(items))
	}
	if !items[0].Pinned {
		t.Error("feed should lead with a pinned item")
	}
}

func TestSeedDemoRequiresFlag(t *testing.T) {
	db, q := seededDB(t)
	ctx := context.Background()
	t.Setenv("GALLERIA_DEMO_MODE", "")

	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	if _, err := q.GetUserByEmail(ctx, DemoAdminEmail); err == nil {
		t.Error("demo admin created without GALLERIA_DEMO_MODE")
	}
	count, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want only the base admin", count)
	}
}

func TestSeedDemoIdempotent(t *testing.T) {
	db, q := seededDB(t)
	ctx := context.Background()
	t.Setenv("GALLERIA_DEMO_MODE", "true")

	tally := func() (events, users int64) {
		var err error
		if events, err = q.CountEvents(ctx, ListEventsParams{}); err != nil {
			t.Fatalf("CountEvents: %v", err)
		}
		if users, err = q.CountUsers(ctx); err != nil {
			t.Fatalf("CountUsers: %v", err)
		}
		return events, users
	}

	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	events1, users1 := tally()

	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo rerun: %v", err)
	}
	events2, users2 := tally()

	if events2 != events1 || users2 != users1 {
		t.Errorf("reseed changed counts: events %d then %d, users %d then %d",
			events1, events2, users1, users2)
	}
}

func TestGetDemoEvents(t *testing.T) {
	events := getDemoEvents()
	if len(events) == 0 {
		t.Fatal("no demo events defined")
	}

	seen := make(map[string]bool, len(events))
	var past, future bool
	for _, e := range events {
		switch {
		case e.Slug == "":
			t.Error("event has empty slug")
		case seen[e.Slug]:
			t.Errorf("duplicate slug %q", e.Slug)
		}
		seen[e.Slug] = true
		if e.Title == "" || e.Location == "" {
			t.Errorf("event %q missing title or location", e.Slug)
		}
		past = past || e.StartsIn < 0
		future = future || e.StartsIn > 0
	}

	// The dashboard buckets by start time, so the demo set needs events
	// on both sides of now.
	if !past || !future {
		t.Errorf("demo events cover past=%v future=%v, want both", past, future)
	}
}

func TestSeedDemoUsersReturnsExistingAdmin(t *testing.T) {
	_, q := seededDB(t)
	ctx := context.Background()

	first, err := seedDemoUsers(ctx, q)
	if err != nil {
		t.Fatalf("seedDemoUsers: %v", err)
	}
	if first == 0 {
		t.Fatal("seeded admin ID is zero")
	}

	second, err := seedDemoUsers(ctx, q)
	if err != nil {
		t.Fatalf("seedDemoUsers rerun: %v", err)
	}
	if second != first {
		t.Errorf("rerun returned admin ID %d, want %d", second, first)
	}
}
