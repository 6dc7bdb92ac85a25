// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
)

// Feed errors surfaced to handlers.
var (
	ErrUnknownFeedType  = errors.New("unknown feed item type")
	ErrFeedRefNotFound  = errors.New("feed target not found")
	ErrFeedRefDuplicate = errors.New("content already in feed")
)

// FeedItem is a What's On entry hydrated with its referenced content.
// Schedule carries the live bucket (upcoming/ongoing/ended) for
// date-bound types; posts have none.
type FeedItem struct {
	ID        int64      `json:"id"`
	ItemType  string     `json:"item_type"`
	ItemID    int64      `json:"item_id"`
	Position  int64      `json:"position"`
	Pinned    bool       `json:"pinned"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Summary   string     `json:"summary"`
	Published bool       `json:"published"`
	Missing   bool       `json:"missing,omitempty"`
	Schedule  string     `json:"schedule,omitempty"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
}

// FeedService assembles the curated What's On feed by resolving each
// entry's content reference.
type FeedService struct {
	db      *sql.DB
	queries *store.Queries
}

// NewFeedService creates a feed service.
func NewFeedService(db *sql.DB) *FeedService {
	return &FeedService{
		db:      db,
		queries: store.New(db),
	}
}

// Items returns the whole feed in display order for the admin UI.
// Entries whose content was deleted out from under them are kept and
// flagged Missing so curators can clean them up.
func (s *FeedService) Items(ctx context.Context, now time.Time) ([]FeedItem, error) {
	entries, err := s.queries.ListWhatsOnItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feed entries: %w", err)
	}
	items := make([]FeedItem, 0, len(entries))
	for _, entry := range entries {
		item, err := s.hydrate(ctx, entry, now)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Published returns the delivery payload: only entries whose referenced
// content is currently published, dangling references dropped.
func (s *FeedService) Published(ctx context.Context, now time.Time) ([]FeedItem, error) {
	all, err := s.Items(ctx, now)
	if err != nil {
		return nil, err
	}
	items := make([]FeedItem, 0, len(all))
	for _, item := range all {
		if item.Missing || !item.Published {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Add appends content to the feed. The referenced content must exist;
// each piece of content can appear at most once.
func (s *FeedService) Add(ctx context.Context, itemType string, itemID int64, pinned bool, now time.Time) (model.WhatsOnItem, error) {
	if !model.ValidWhatsOnType(itemType) {
		return model.WhatsOnItem{}, ErrUnknownFeedType
	}
	if err := s.refExists(ctx, itemType, itemID); err != nil {
		return model.WhatsOnItem{}, err
	}
	if _, err := s.queries.GetWhatsOnItemByRef(ctx, itemType, itemID); err == nil {
		return model.WhatsOnItem{}, ErrFeedRefDuplicate
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.WhatsOnItem{}, fmt.Errorf("check feed entry: %w", err)
	}

	max, err := s.queries.MaxWhatsOnPosition(ctx)
	if err != nil {
		return model.WhatsOnItem{}, fmt.Errorf("max feed position: %w", err)
	}
	item, err := s.queries.CreateWhatsOnItem(ctx, store.CreateWhatsOnItemParams{
		ItemType:  itemType,
		ItemID:    itemID,
		Position:  max + 1,
		Pinned:    pinned,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.WhatsOnItem{}, fmt.Errorf("create feed entry: %w", err)
	}
	return item, nil
}

// Remove deletes a feed entry. The referenced content is untouched.
func (s *FeedService) Remove(ctx context.Context, id int64) error {
	if _, err := s.queries.GetWhatsOnItemByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFeedRefNotFound
		}
		return fmt.Errorf("get feed entry: %w", err)
	}
	return s.queries.DeleteWhatsOnItem(ctx, id)
}

// Reorder renumbers the feed to match ids, first ID at position one.
// The list must name every current entry exactly once; the whole
// renumber runs in one transaction and rolls back on error.
func (s *FeedService) Reorder(ctx context.Context, ids []int64, now time.Time) error {
	current, err := s.queries.ListWhatsOnItems(ctx)
	if err != nil {
		return fmt.Errorf("list feed entries: %w", err)
	}
	if len(ids) != len(current) {
		return fmt.Errorf("reorder needs all %d feed entries, got %d", len(current), len(ids))
	}
	known := make(map[int64]bool, len(current))
	for _, entry := range current {
		known[entry.ID] = true
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("unknown feed entry %d: %w", id, ErrFeedRefNotFound)
		}
		if seen[id] {
			return fmt.Errorf("feed entry %d listed twice", id)
		}
		seen[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	queries := s.queries.WithTx(tx)
	for i, id := range ids {
		if err := queries.UpdateWhatsOnPosition(ctx, id, int64(i+1), now); err != nil {
			return fmt.Errorf("move feed entry %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// SetPinned pins or unpins a feed entry.
func (s *FeedService) SetPinned(ctx context.Context, id int64, pinned bool, now time.Time) (model.WhatsOnItem, error) {
	item, err := s.queries.SetWhatsOnPinned(ctx, id, pinned, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.WhatsOnItem{}, ErrFeedRefNotFound
		}
		return model.WhatsOnItem{}, fmt.Errorf("pin feed entry: %w", err)
	}
	return item, nil
}

func (s *FeedService) refExists(ctx context.Context, itemType string, itemID int64) error {
	var err error
	switch itemType {
	case model.WhatsOnTypeEvent:
		_, err = s.queries.GetEventByID(ctx, itemID)
	case model.WhatsOnTypePost:
		_, err = s.queries.GetPostByID(ctx, itemID)
	case model.WhatsOnTypePromotion:
		_, err = s.queries.GetPromotionByID(ctx, itemID)
	default:
		return ErrUnknownFeedType
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFeedRefNotFound
	}
	return err
}

// hydrate resolves one entry against its content table. A missing row
// yields a flagged item rather than an error.
func (s *FeedService) hydrate(ctx context.Context, entry model.WhatsOnItem, now time.Time) (FeedItem, error) {
	item := FeedItem{
		ID:       entry.ID,
		ItemType: entry.ItemType,
		ItemID:   entry.ItemID,
		Position: entry.Position,
		Pinned:   entry.Pinned,
	}

	switch entry.ItemType {
	case model.WhatsOnTypeEvent:
		e, err := s.queries.GetEventByID(ctx, entry.ItemID)
		if errors.Is(err, sql.ErrNoRows) {
			item.Missing = true
			return item, nil
		}
		if err != nil {
			return item, fmt.Errorf("hydrate event %d: %w", entry.ItemID, err)
		}
		item.Title = e.Title
		item.Slug = e.Slug
		item.Summary = e.Summary
		item.Published = e.IsPublished()
		item.StartAt = &e.StartAt
		if e.EndAt.Valid {
			item.EndAt = &e.EndAt.Time
		}
		if item.Published {
			item.Schedule = string(Classify(EventSchedule(e), now))
		}

	case model.WhatsOnTypePost:
		p, err := s.queries.GetPostByID(ctx, entry.ItemID)
		if errors.Is(err, sql.ErrNoRows) {
			item.Missing = true
			return item, nil
		}
		if err != nil {
			return item, fmt.Errorf("hydrate post %d: %w", entry.ItemID, err)
		}
		item.Title = p.Title
		item.Slug = p.Slug
		item.Summary = p.Excerpt
		item.Published = p.IsPublished()

	case model.WhatsOnTypePromotion:
		p, err := s.queries.GetPromotionByID(ctx, entry.ItemID)
		if errors.Is(err, sql.ErrNoRows) {
			item.Missing = true
			return item, nil
		}
		if err != nil {
			return item, fmt.Errorf("hydrate promotion %d: %w", entry.ItemID, err)
		}
		item.Title = p.Title
		item.Slug = p.Slug
		item.Summary = p.Summary
		item.Published = p.IsPublished()
		item.StartAt = &p.StartsAt
		if p.EndsAt.Valid {
			item.EndAt = &p.EndsAt.Time
		}
		if item.Published {
			item.Schedule = string(Classify(PromotionSchedule(p), now))
		}

	default:
		return item, fmt.Errorf("%w: %s", ErrUnknownFeedType, entry.ItemType)
	}

	return item, nil
}
