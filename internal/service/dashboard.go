// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
)

// DefaultDashboardWindowDays is the trailing window for the event
// histogram when the config does not override it.
const DefaultDashboardWindowDays = 14

// activityWindow is the trailing period counted for the dashboard
// activity figure.
const activityWindow = 7 * 24 * time.Hour

// EventStats holds the schedule breakdown of published events plus the
// draft backlog and a per-day histogram of upcoming starts.
type EventStats struct {
	Upcoming  int        `json:"upcoming"`
	Ongoing   int        `json:"ongoing"`
	Ended     int        `json:"ended"`
	Published int        `json:"published"`
	Drafts    int64      `json:"drafts"`
	Histogram []DayCount `json:"histogram"`
}

// TenantStats holds storefront totals for the dashboard.
type TenantStats struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
}

// PostStats holds news post totals for the dashboard.
type PostStats struct {
	Published int64 `json:"published"`
	Total     int64 `json:"total"`
}

// PromotionStats breaks promotions down by lifecycle status.
type PromotionStats struct {
	Staging   int64 `json:"staging"`
	Published int64 `json:"published"`
	Expired   int64 `json:"expired"`
}

// DashboardSummary is the aggregated payload behind GET /dashboard.
type DashboardSummary struct {
	Events       EventStats     `json:"events"`
	Tenants      TenantStats    `json:"tenants"`
	Posts        PostStats      `json:"posts"`
	Promotions   PromotionStats `json:"promotions"`
	ActiveTiers  int            `json:"active_tiers"`
	FeedItems    int            `json:"feed_items"`
	ActivityWeek int64          `json:"activity_week"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// DashboardService aggregates read-only counts from every content area
// into a single overview payload.
type DashboardService struct {
	queries    *store.Queries
	windowDays int
}

// NewDashboardService creates a dashboard service. windowDays controls
// the event histogram span; values below one fall back to the default.
func NewDashboardService(db *sql.DB, windowDays int) *DashboardService {
	if windowDays < 1 {
		windowDays = DefaultDashboardWindowDays
	}
	return &DashboardService{
		queries:    store.New(db),
		windowDays: windowDays,
	}
}

// WindowDays returns the histogram span in days.
func (s *DashboardService) WindowDays() int {
	return s.windowDays
}

// Summary fans out the independent dashboard queries concurrently and
// assembles the result. The queries share nothing, so the only
// coordination is the field writes; the first error wins and the rest
// are discarded.
func (s *DashboardService) Summary(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	sum := &DashboardSummary{GeneratedAt: now.UTC()}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	run(func() error {
		events, err := s.queries.ListPublishedEvents(ctx)
		if err != nil {
			return fmt.Errorf("list published events: %w", err)
		}
		counts := CountByBucket(eventSchedules(events), now)
		mu.Lock()
		sum.Events.Upcoming = counts.Upcoming
		sum.Events.Ongoing = counts.Ongoing
		sum.Events.Ended = counts.Ended
		sum.Events.Published = counts.Published
		mu.Unlock()
		return nil
	})

	run(func() error {
		drafts, err := s.queries.CountEvents(ctx, store.ListEventsParams{Status: model.StatusDraft})
		if err != nil {
			return fmt.Errorf("count draft events: %w", err)
		}
		mu.Lock()
		sum.Events.Drafts = drafts
		mu.Unlock()
		return nil
	})

	run(func() error {
		since := StartOfDay(now.AddDate(0, 0, -(s.windowDays - 1)))
		starts, err := s.queries.ListEventStartTimes(ctx, since)
		if err != nil {
			return fmt.Errorf("list event start times: %w", err)
		}
		hist := DayHistogram(starts, s.windowDays, now)
		mu.Lock()
		sum.Events.Histogram = hist
		mu.Unlock()
		return nil
	})

	run(func() error {
		total, err := s.queries.CountTenants(ctx, store.ListTenantsParams{})
		if err != nil {
			return fmt.Errorf("count tenants: %w", err)
		}
		byCategory, err := s.queries.CountTenantsByCategory(ctx)
		if err != nil {
			return fmt.Errorf("count tenants by category: %w", err)
		}
		mu.Lock()
		sum.Tenants.Total = total
		sum.Tenants.ByCategory = byCategory
		mu.Unlock()
		return nil
	})

	run(func() error {
		published, err := s.queries.CountPublishedPosts(ctx)
		if err != nil {
			return fmt.Errorf("count published posts: %w", err)
		}
		total, err := s.queries.CountPosts(ctx, store.ListPostsParams{})
		if err != nil {
			return fmt.Errorf("count posts: %w", err)
		}
		mu.Lock()
		sum.Posts.Published = published
		sum.Posts.Total = total
		mu.Unlock()
		return nil
	})

	run(func() error {
		byStatus, err := s.queries.CountPromotionsByStatus(ctx)
		if err != nil {
			return fmt.Errorf("count promotions by status: %w", err)
		}
		mu.Lock()
		sum.Promotions.Staging = byStatus[model.PromotionStatusStaging]
		sum.Promotions.Published = byStatus[model.PromotionStatusPublished]
		sum.Promotions.Expired = byStatus[model.PromotionStatusExpired]
		mu.Unlock()
		return nil
	})

	run(func() error {
		tiers, err := s.queries.ListActiveVIPTiers(ctx)
		if err != nil {
			return fmt.Errorf("list active vip tiers: %w", err)
		}
		mu.Lock()
		sum.ActiveTiers = len(tiers)
		mu.Unlock()
		return nil
	})

	run(func() error {
		items, err := s.queries.ListWhatsOnItems(ctx)
		if err != nil {
			return fmt.Errorf("list whats on items: %w", err)
		}
		mu.Lock()
		sum.FeedItems = len(items)
		mu.Unlock()
		return nil
	})

	run(func() error {
		count, err := s.queries.CountActivitySince(ctx, now.Add(-activityWindow))
		if err != nil {
			return fmt.Errorf("count recent activity: %w", err)
		}
		mu.Lock()
		sum.ActivityWeek = count
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return sum, nil
}

func eventSchedules(events []model.Event) []ScheduleItem {
	items := make([]ScheduleItem, len(events))
	for i, e := range events {
		items[i] = EventSchedule(e)
	}
	return items
}
