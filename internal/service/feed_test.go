// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/testutil"
)

// seedEvent inserts an event row directly, bypassing the handlers.
func seedEvent(t *testing.T, q *store.Queries, ctx context.Context, slug, status string, start time.Time, end sql.NullTime) model.Event {
	t.Helper()

	now := time.Now().UTC()
	var published sql.NullTime
	if status == model.StatusPublished {
		published = sql.NullTime{Time: now, Valid: true}
	}
	e, err := q.CreateEvent(ctx, store.CreateEventParams{
		Title:       "Event " + slug,
		Slug:        slug,
		Summary:     "An event summary",
		Body:        "Event body",
		Location:    "Atrium",
		Status:      status,
		StartAt:     start,
		EndAt:       end,
		PublishedAt: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateEvent(%s): %v", slug, err)
	}
	return e
}

// seedPost inserts a post row directly.
func seedPost(t *testing.T, q *store.Queries, ctx context.Context, slug, status string) model.Post {
	t.Helper()

	now := time.Now().UTC()
	p, err := q.CreatePost(ctx, store.CreatePostParams{
		Title:     "Post " + slug,
		Slug:      slug,
		Excerpt:   "A post excerpt",
		Body:      "Post body",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePost(%s): %v", slug, err)
	}
	return p
}

// seedPromotion inserts a staged promotion row directly.
func seedPromotion(t *testing.T, q *store.Queries, ctx context.Context, slug string, starts time.Time, ends sql.NullTime) model.Promotion {
	t.Helper()

	now := time.Now().UTC()
	p, err := q.CreatePromotion(ctx, store.CreatePromotionParams{
		Title:     "Promotion " + slug,
		Slug:      slug,
		Summary:   "A promotion summary",
		Body:      "Promotion body",
		StartsAt:  starts,
		EndsAt:    ends,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePromotion(%s): %v", slug, err)
	}
	return p
}

func TestFeedService_AddAndItems(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	event := seedEvent(t, q, ctx, "jazz-night", model.StatusPublished,
		now.Add(-time.Hour), sql.NullTime{Time: now.Add(2 * time.Hour), Valid: true})
	post := seedPost(t, q, ctx, "new-wing", model.StatusDraft)
	promo := seedPromotion(t, q, ctx, "summer-sale", now.Add(-time.Hour), sql.NullTime{})
	if _, err := q.PublishPromotion(ctx, promo.ID, now); err != nil {
		t.Fatalf("PublishPromotion: %v", err)
	}

	if _, err := svc.Add(ctx, model.WhatsOnTypeEvent, event.ID, false, now); err != nil {
		t.Fatalf("Add(event): %v", err)
	}
	if _, err := svc.Add(ctx, model.WhatsOnTypePost, post.ID, false, now); err != nil {
		t.Fatalf("Add(post): %v", err)
	}
	if _, err := svc.Add(ctx, model.WhatsOnTypePromotion, promo.ID, false, now); err != nil {
		t.Fatalf("Add(promotion): %v", err)
	}

	items, err := svc.Items(ctx, now)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Items returned %d entries, want 3", len(items))
	}

	// Insertion order: positions 1, 2, 3, nothing pinned.
	if items[0].ItemType != model.WhatsOnTypeEvent || items[0].Position != 1 {
		t.Errorf("items[0] = %s at %d, want event at 1", items[0].ItemType, items[0].Position)
	}
	if items[0].Title != "Event jazz-night" {
		t.Errorf("event title = %q", items[0].Title)
	}
	if !items[0].Published {
		t.Error("published event should hydrate as published")
	}
	if items[0].Schedule != string(BucketOngoing) {
		t.Errorf("event schedule = %q, want %q", items[0].Schedule, BucketOngoing)
	}
	if items[0].StartAt == nil || items[0].EndAt == nil {
		t.Error("event should carry start and end times")
	}

	if items[1].ItemType != model.WhatsOnTypePost {
		t.Errorf("items[1] type = %s, want post", items[1].ItemType)
	}
	if items[1].Published {
		t.Error("draft post should hydrate as unpublished")
	}
	if items[1].Schedule != "" {
		t.Errorf("post schedule = %q, want empty", items[1].Schedule)
	}
	if items[1].Summary != "A post excerpt" {
		t.Errorf("post summary = %q", items[1].Summary)
	}

	if items[2].ItemType != model.WhatsOnTypePromotion {
		t.Errorf("items[2] type = %s, want promotion", items[2].ItemType)
	}
	if !items[2].Published {
		t.Error("published promotion should hydrate as published")
	}
	if items[2].Schedule != string(BucketOngoing) {
		t.Errorf("promotion schedule = %q, want %q", items[2].Schedule, BucketOngoing)
	}
}

func TestFeedService_AddValidation(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	if _, err := svc.Add(ctx, "coupon", 1, false, now); !errors.Is(err, ErrUnknownFeedType) {
		t.Errorf("Add(unknown type) err = %v, want ErrUnknownFeedType", err)
	}

	if _, err := svc.Add(ctx, model.WhatsOnTypeEvent, 9999, false, now); !errors.Is(err, ErrFeedRefNotFound) {
		t.Errorf("Add(missing event) err = %v, want ErrFeedRefNotFound", err)
	}

	event := seedEvent(t, q, ctx, "dup-check", model.StatusPublished, now, sql.NullTime{})
	if _, err := svc.Add(ctx, model.WhatsOnTypeEvent, event.ID, false, now); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, model.WhatsOnTypeEvent, event.ID, false, now); !errors.Is(err, ErrFeedRefDuplicate) {
		t.Errorf("Add(duplicate) err = %v, want ErrFeedRefDuplicate", err)
	}
}

func TestFeedService_Published(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	live := seedEvent(t, q, ctx, "live", model.StatusPublished, now.Add(-time.Hour), sql.NullTime{})
	draft := seedPost(t, q, ctx, "unfinished", model.StatusDraft)
	doomed := seedEvent(t, q, ctx, "doomed", model.StatusPublished, now, sql.NullTime{})

	for _, add := range []struct {
		itemType string
		id       int64
	}{
		{model.WhatsOnTypeEvent, live.ID},
		{model.WhatsOnTypePost, draft.ID},
		{model.WhatsOnTypeEvent, doomed.ID},
	} {
		if _, err := svc.Add(ctx, add.itemType, add.id, false, now); err != nil {
			t.Fatalf("Add(%s %d): %v", add.itemType, add.id, err)
		}
	}

	// Delete the content behind the third entry to leave it dangling.
	if err := q.DeleteEvent(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}

	all, err := svc.Items(ctx, now)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Items returned %d entries, want 3", len(all))
	}
	var missing int
	for _, item := range all {
		if item.Missing {
			missing++
		}
	}
	if missing != 1 {
		t.Errorf("admin view flagged %d missing entries, want 1", missing)
	}

	published, err := svc.Published(ctx, now)
	if err != nil {
		t.Fatalf("Published: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("Published returned %d entries, want 1", len(published))
	}
	if published[0].Slug != "live" {
		t.Errorf("published entry slug = %q, want live", published[0].Slug)
	}
}

func TestFeedService_Reorder(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	var ids []int64
	for _, slug := range []string{"first", "second", "third"} {
		e := seedEvent(t, q, ctx, slug, model.StatusPublished, now, sql.NullTime{})
		item, err := svc.Add(ctx, model.WhatsOnTypeEvent, e.ID, false, now)
		if err != nil {
			t.Fatalf("Add(%s): %v", slug, err)
		}
		ids = append(ids, item.ID)
	}

	// Reverse the feed.
	if err := svc.Reorder(ctx, []int64{ids[2], ids[1], ids[0]}, now); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	items, err := svc.Items(ctx, now)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	wantSlugs := []string{"third", "second", "first"}
	for i, want := range wantSlugs {
		if items[i].Slug != want {
			t.Errorf("items[%d].Slug = %q, want %q", i, items[i].Slug, want)
		}
		if items[i].Position != int64(i+1) {
			t.Errorf("items[%d].Position = %d, want %d", i, items[i].Position, i+1)
		}
	}
}

func TestFeedService_ReorderValidation(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	e1 := seedEvent(t, q, ctx, "one", model.StatusPublished, now, sql.NullTime{})
	e2 := seedEvent(t, q, ctx, "two", model.StatusPublished, now, sql.NullTime{})
	i1, err := svc.Add(ctx, model.WhatsOnTypeEvent, e1.ID, false, now)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	i2, err := svc.Add(ctx, model.WhatsOnTypeEvent, e2.ID, false, now)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := svc.Reorder(ctx, []int64{i1.ID}, now); err == nil {
		t.Error("Reorder with a short list should fail")
	}
	if err := svc.Reorder(ctx, []int64{i1.ID, 9999}, now); !errors.Is(err, ErrFeedRefNotFound) {
		t.Errorf("Reorder with unknown id err = %v, want ErrFeedRefNotFound", err)
	}
	if err := svc.Reorder(ctx, []int64{i1.ID, i1.ID}, now); err == nil {
		t.Error("Reorder with a duplicate id should fail")
	}

	// Failed reorders leave positions untouched.
	items, err := svc.Items(ctx, now)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if items[0].ID != i1.ID || items[1].ID != i2.ID {
		t.Error("failed reorder changed feed order")
	}
}

func TestFeedService_Remove(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	e := seedEvent(t, q, ctx, "short-lived", model.StatusPublished, now, sql.NullTime{})
	item, err := svc.Add(ctx, model.WhatsOnTypeEvent, e.ID, false, now)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := svc.Remove(ctx, item.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	items, err := svc.Items(ctx, now)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("feed has %d entries after removal, want 0", len(items))
	}

	// The content itself survives.
	if _, err := q.GetEventByID(ctx, e.ID); err != nil {
		t.Errorf("removing a feed entry deleted the event: %v", err)
	}

	if err := svc.Remove(ctx, item.ID); !errors.Is(err, ErrFeedRefNotFound) {
		t.Errorf("Remove(gone) err = %v, want ErrFeedRefNotFound", err)
	}
}

func TestFeedService_SetPinned(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	svc := NewFeedService(db)
	now := time.Now().UTC()

	e1 := seedEvent(t, q, ctx, "regular", model.StatusPublished, now, sql.NullTime{})
	e2 := seedEvent(t, q, ctx, "highlight", model.StatusPublished, now, sql.NullTime{})
	if _, err := svc.Add(ctx, model.WhatsOnTypeEvent, e1.ID, false, now); err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := svc.Add(ctx, model.WhatsOnTypeEvent, e2.ID, false, now)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	pinned, err := svc.SetPinned(ctx, second.ID, true, now)
	if err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if !pinned.Pinned {
		t.Error("SetPinned did not pin the entry")
	}

	// Pinned entries jump ahead of lower positions.
	items, err := svc.Items(ctx, now)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if items[0].Slug != "highlight" || !items[0].Pinned {
		t.Errorf("items[0] = %q pinned=%v, want pinned highlight first", items[0].Slug, items[0].Pinned)
	}

	if _, err := svc.SetPinned(ctx, 9999, true, now); !errors.Is(err, ErrFeedRefNotFound) {
		t.Errorf("SetPinned(missing) err = %v, want ErrFeedRefNotFound", err)
	}
}
