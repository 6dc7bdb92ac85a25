// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/model"
)

// Demo sign-in accounts, announced in the log when they are created.
const (
	DemoAdminEmail    = "demo@galleria.example"
	DemoAdminPassword = "galleria-demo"
	DemoAdminName     = "Demo Operator"

	DemoEditorEmail    = "editor@galleria.example"
	DemoEditorPassword = "galleria-demo"
	DemoEditorName     = "Content Editor"
)

// SeedDemo fills an empty database with showcase content. It is a
// no-op unless GALLERIA_DEMO_MODE=true.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	if os.Getenv("GALLERIA_DEMO_MODE") != "true" {
		return nil
	}

	slog.Info("populating demo data")
	queries := New(db)

	adminID, err := seedDemoUsers(ctx, queries)
	if err != nil {
		return fmt.Errorf("demo accounts: %w", err)
	}

	tenantIDs, err := seedDemoTenants(ctx, queries)
	if err != nil {
		return fmt.Errorf("demo tenants: %w", err)
	}

	eventIDs, err := seedDemoEvents(ctx, queries, adminID)
	if err != nil {
		return fmt.Errorf("demo events: %w", err)
	}

	if err := seedDemoPosts(ctx, queries, adminID); err != nil {
		return fmt.Errorf("demo posts: %w", err)
	}

	promoIDs, err := seedDemoPromotions(ctx, queries, tenantIDs)
	if err != nil {
		return fmt.Errorf("demo promotions: %w", err)
	}

	if err := seedDemoVIPTiers(ctx, queries); err != nil {
		return fmt.Errorf("demo vip tiers: %w", err)
	}

	if err := seedDemoWhatsOn(ctx, queries, eventIDs, promoIDs); err != nil {
		return fmt.Errorf("demo whats on feed: %w", err)
	}

	slog.Info("demo data ready")
	return nil
}

// seedDemoUsers creates the two sign-in accounts and answers the admin
// ID, which the content sections use as their author.
func seedDemoUsers(ctx context.Context, queries *Queries) (int64, error) {
	if existing, err := queries.GetUserByEmail(ctx, DemoAdminEmail); err == nil {
		slog.Info("demo accounts already present, skipping")
		return existing.ID, nil
	}

	accounts := []struct {
		Email    string
		Password string
		Name     string
		Role     string
	}{
		{DemoAdminEmail, DemoAdminPassword, DemoAdminName, model.RoleAdmin},
		{DemoEditorEmail, DemoEditorPassword, DemoEditorName, model.RoleEditor},
	}

	now := time.Now()
	var adminID int64
	for _, acct := range accounts {
		hash, err := auth.HashPassword(acct.Password)
		if err != nil {
			return 0, fmt.Errorf("hashing password for %s: %w", acct.Email, err)
		}
		created, err := queries.CreateUser(ctx, CreateUserParams{
			Email:        acct.Email,
			PasswordHash: hash,
			Name:         acct.Name,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return 0, fmt.Errorf("creating %s: %w", acct.Email, err)
		}
		if err := grantRole(ctx, queries, created.ID, acct.Role); err != nil {
			return 0, err
		}
		if acct.Role == model.RoleAdmin {
			adminID = created.ID
		}
	}

	slog.Info("demo accounts ready",
		"admin", DemoAdminEmail,
		"editor", DemoEditorEmail,
		"password", DemoAdminPassword,
	)
	return adminID, nil
}

func grantRole(ctx context.Context, queries *Queries, userID int64, roleName string) error {
	role, err := queries.GetRoleByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("looking up role %s: %w", roleName, err)
	}
	if err := queries.AddUserRole(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("assigning role %s: %w", roleName, err)
	}
	return nil
}

// demoTenant represents a demo storefront record.
type demoTenant struct {
	Name     string
	Slug     string
	Category string
	Floor    string
	Unit     string
	Featured bool
}

func getDemoTenants() []demoTenant {
	return []demoTenant{
		{"Aurora Threads", "aurora-threads", model.TenantCategoryFashion, "1", "1-12", true},
		{"Brick Lane Coffee", "brick-lane-coffee", model.TenantCategoryFood, "G", "G-03", true},
		{"Pixel Arcade", "pixel-arcade", model.TenantCategoryEntertainment, "3", "3-01", false},
		{"Swift Repairs", "swift-repairs", model.TenantCategoryServices, "2", "2-18", false},
		{"Fern & Stone", "fern-and-stone", model.TenantCategoryLifestyle, "1", "1-07", false},
		{"Nomad Kitchen", "nomad-kitchen", model.TenantCategoryFood, "G", "G-11", false},
	}
}

func seedDemoTenants(ctx context.Context, queries *Queries) (map[string]int64, error) {
	count, err := queries.CountTenants(ctx, ListTenantsParams{})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		slog.Info("tenants already exist, skipping demo tenants")
		return make(map[string]int64), nil
	}

	now := time.Now()
	ids := make(map[string]int64)
	for _, tn := range getDemoTenants() {
		created, err := queries.CreateTenant(ctx, CreateTenantParams{
			Name:      tn.Name,
			Slug:      tn.Slug,
			Category:  tn.Category,
			Floor:     tn.Floor,
			Unit:      tn.Unit,
			Status:    model.StatusPublished,
			Featured:  tn.Featured,
			OpensAt:   "10:00",
			ClosesAt:  "21:00",
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating tenant %s: %w", tn.Slug, err)
		}
		ids[tn.Slug] = created.ID
	}

	slog.Info("seeded demo tenants", "count", len(ids))
	return ids, nil
}

// demoEvent represents a demo event with offsets relative to seed time,
// chosen so the dashboard shows all three date buckets.
type demoEvent struct {
	Title     string
	Slug      string
	Summary   string
	Location  string
	StartsIn  time.Duration // negative means already started
	Duration  time.Duration // zero means open-ended
	Featured  bool
	Published bool
}

func getDemoEvents() []demoEvent {
	return []demoEvent{
		{
			Title:     "Weekend Makers Market",
			Slug:      "weekend-makers-market",
			Summary:   "Local makers, street food and live music on the central plaza.",
			Location:  "Central Plaza",
			StartsIn:  -10 * 24 * time.Hour,
			Duration:  2 * 24 * time.Hour,
			Published: true,
		},
		{
			Title:     "Winter Light Installation",
			Slug:      "winter-light-installation",
			Summary:   "An immersive light walk through the north atrium.",
			Location:  "North Atrium",
			StartsIn:  -2 * 24 * time.Hour,
			Duration:  7 * 24 * time.Hour,
			Featured:  true,
			Published: true,
		},
		{
			Title:     "Kids Craft Workshop",
			Slug:      "kids-craft-workshop",
			Summary:   "Drop-in craft tables for ages four and up.",
			Location:  "Community Room, Level 2",
			StartsIn:  3 * 24 * time.Hour,
			Duration:  6 * time.Hour,
			Published: true,
		},
		{
			Title:     "Autumn Fashion Runway",
			Slug:      "autumn-fashion-runway",
			Summary:   "Tenant collections on the runway, hosted with Aurora Threads.",
			Location:  "Grand Court",
			StartsIn:  10 * 24 * time.Hour,
			Duration:  3 * time.Hour,
			Featured:  true,
			Published: true,
		},
		{
			Title:    "Rooftop Cinema (draft)",
			Slug:     "rooftop-cinema",
			Summary:  "Open-air screenings, dates to be confirmed.",
			Location: "Rooftop Terrace",
			StartsIn: 20 * 24 * time.Hour,
			Duration: 4 * time.Hour,
		},
	}
}

func seedDemoEvents(ctx context.Context, queries *Queries, authorID int64) (map[string]int64, error) {
	count, err := queries.CountEvents(ctx, ListEventsParams{})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		slog.Info("events already exist, skipping demo events")
		return make(map[string]int64), nil
	}

	now := time.Now()
	ids := make(map[string]int64)
	for _, ev := range getDemoEvents() {
		status := model.StatusDraft
		publishedAt := sql.NullTime{}
		if ev.Published {
			status = model.StatusPublished
			publishedAt = sql.NullTime{Time: now.Add(-14 * 24 * time.Hour), Valid: true}
		}
		startAt := now.Add(ev.StartsIn)
		endAt := sql.NullTime{}
		if ev.Duration > 0 {
			endAt = sql.NullTime{Time: startAt.Add(ev.Duration), Valid: true}
		}

		created, err := queries.CreateEvent(ctx, CreateEventParams{
			Title:       ev.Title,
			Slug:        ev.Slug,
			Summary:     ev.Summary,
			Body:        "## " + ev.Title + "\n\n" + ev.Summary,
			Location:    ev.Location,
			Status:      status,
			Featured:    ev.Featured,
			StartAt:     startAt,
			EndAt:       endAt,
			PublishedAt: publishedAt,
			CreatedBy:   sql.NullInt64{Int64: authorID, Valid: authorID != 0},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating event %s: %w", ev.Slug, err)
		}
		ids[ev.Slug] = created.ID
	}

	slog.Info("seeded demo events", "count", len(ids))
	return ids, nil
}

func seedDemoPosts(ctx context.Context, queries *Queries, authorID int64) error {
	count, err := queries.CountPosts(ctx, ListPostsParams{})
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Info("posts already exist, skipping demo posts")
		return nil
	}

	now := time.Now()
	posts := []struct {
		Title   string
		Slug    string
		Excerpt string
	}{
		{"Meet the Makers Behind the Market", "meet-the-makers", "Six local stalls you should not miss this weekend."},
		{"New Openings This Season", "new-openings-this-season", "Three storefronts join the directory this month."},
		{"A Guide to Parking and Transit", "parking-and-transit-guide", "The fastest ways in and out of the mall."},
	}

	for i, p := range posts {
		created, err := queries.CreatePost(ctx, CreatePostParams{
			Title:     p.Title,
			Slug:      p.Slug,
			Excerpt:   p.Excerpt,
			Body:      "## " + p.Title + "\n\n" + p.Excerpt,
			Status:    model.StatusDraft,
			AuthorID:  sql.NullInt64{Int64: authorID, Valid: authorID != 0},
			CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("creating post %s: %w", p.Slug, err)
		}
		if _, err := queries.PublishPost(ctx, created.ID, now.Add(-time.Duration(i)*24*time.Hour)); err != nil {
			return fmt.Errorf("publishing post %s: %w", p.Slug, err)
		}
	}

	slog.Info("seeded demo posts", "count", len(posts))
	return nil
}

func seedDemoPromotions(ctx context.Context, queries *Queries, tenantIDs map[string]int64) (map[string]int64, error) {
	count, err := queries.CountPromotions(ctx, ListPromotionsParams{})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		slog.Info("promotions already exist, skipping demo promotions")
		return make(map[string]int64), nil
	}

	now := time.Now()
	tenantRef := func(slug string) sql.NullInt64 {
		id, ok := tenantIDs[slug]
		return sql.NullInt64{Int64: id, Valid: ok}
	}

	promos := []struct {
		Title    string
		Slug     string
		Summary  string
		Tenant   sql.NullInt64
		StartsIn time.Duration
		Duration time.Duration
		Publish  bool
		Expire   bool
	}{
		{
			Title:    "Two-for-One Flat Whites",
			Slug:     "two-for-one-flat-whites",
			Summary:  "Weekday mornings at Brick Lane Coffee, before 11am.",
			Tenant:   tenantRef("brick-lane-coffee"),
			StartsIn: -3 * 24 * time.Hour,
			Duration: 14 * 24 * time.Hour,
			Publish:  true,
		},
		{
			Title:    "Mid-Season Sale",
			Slug:     "mid-season-sale",
			Summary:  "Up to 40% off selected lines at Aurora Threads.",
			Tenant:   tenantRef("aurora-threads"),
			StartsIn: -20 * 24 * time.Hour,
			Duration: 10 * 24 * time.Hour,
			Publish:  true,
			Expire:   true,
		},
		{
			Title:    "Free Game Hour",
			Slug:     "free-game-hour",
			Summary:  "One free hour at Pixel Arcade for VIP members.",
			Tenant:   tenantRef("pixel-arcade"),
			StartsIn: 5 * 24 * time.Hour,
			Duration: 30 * 24 * time.Hour,
		},
	}

	ids := make(map[string]int64)
	for _, pr := range promos {
		startsAt := now.Add(pr.StartsIn)
		created, err := queries.CreatePromotion(ctx, CreatePromotionParams{
			Title:     pr.Title,
			Slug:      pr.Slug,
			Summary:   pr.Summary,
			Body:      "## " + pr.Title + "\n\n" + pr.Summary,
			TenantID:  pr.Tenant,
			StartsAt:  startsAt,
			EndsAt:    sql.NullTime{Time: startsAt.Add(pr.Duration), Valid: pr.Duration > 0},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating promotion %s: %w", pr.Slug, err)
		}
		if pr.Publish {
			if _, err := queries.PublishPromotion(ctx, created.ID, startsAt); err != nil {
				return nil, fmt.Errorf("publishing promotion %s: %w", pr.Slug, err)
			}
		}
		if pr.Expire {
			if _, err := queries.ExpirePromotion(ctx, created.ID, now); err != nil {
				return nil, fmt.Errorf("expiring promotion %s: %w", pr.Slug, err)
			}
		}
		ids[pr.Slug] = created.ID
	}

	slog.Info("seeded demo promotions", "count", len(ids))
	return ids, nil
}

func seedDemoVIPTiers(ctx context.Context, queries *Queries) error {
	tiers, err := queries.ListVIPTiers(ctx)
	if err != nil {
		return err
	}
	if len(tiers) > 0 {
		slog.Info("vip tiers already exist, skipping demo tiers")
		return nil
	}

	now := time.Now()
	demo := []struct {
		Name      string
		Slug      string
		Rank      int64
		MinPoints int64
		Color     string
		Benefits  []string
	}{
		{"Silver", "silver", 1, 0, "#c0c0c0", []string{"Member pricing at selected stores"}},
		{"Gold", "gold", 2, 500, "#d4af37", []string{"Member pricing at selected stores", "Free parking on weekends"}},
		{"Platinum", "platinum", 3, 2000, "#e5e4e2", []string{"Member pricing at selected stores", "Free parking every day", "Lounge access"}},
	}

	for _, tier := range demo {
		benefits, err := model.BenefitsToJSON(tier.Benefits)
		if err != nil {
			return fmt.Errorf("encoding benefits for %s: %w", tier.Slug, err)
		}
		_, err = queries.CreateVIPTier(ctx, CreateVIPTierParams{
			Name:      tier.Name,
			Slug:      tier.Slug,
			Rank:      tier.Rank,
			MinPoints: tier.MinPoints,
			Color:     tier.Color,
			Benefits:  benefits,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("creating vip tier %s: %w", tier.Slug, err)
		}
	}

	slog.Info("seeded demo vip tiers", "count", len(demo))
	return nil
}

func seedDemoWhatsOn(ctx context.Context, queries *Queries, eventIDs, promoIDs map[string]int64) error {
	items, err := queries.ListWhatsOnItems(ctx)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		slog.Info("whats on feed already populated, skipping")
		return nil
	}

	now := time.Now()
	refs := []struct {
		Type   string
		ID     int64
		Pinned bool
	}{
		{model.WhatsOnTypeEvent, eventIDs["winter-light-installation"], true},
		{model.WhatsOnTypeEvent, eventIDs["kids-craft-workshop"], false},
		{model.WhatsOnTypePromotion, promoIDs["two-for-one-flat-whites"], false},
	}

	position := int64(0)
	for _, ref := range refs {
		if ref.ID == 0 {
			continue
		}
		position++
		if _, err := queries.CreateWhatsOnItem(ctx, CreateWhatsOnItemParams{
			ItemType:  ref.Type,
			ItemID:    ref.ID,
			Position:  position,
			Pinned:    ref.Pinned,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("adding %s %d to feed: %w", ref.Type, ref.ID, err)
		}
	}

	slog.Info("seeded demo whats on feed", "count", position)
	return nil
}
