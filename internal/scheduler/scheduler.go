// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the recurring jobs that keep promotion state
// and activity aggregates current.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

// Per-run timeouts. The promotion sweep touches a handful of rows; the
// rollup and purge scan the activity log.
const (
	sweepTimeout  = time.Minute
	rollupTimeout = 5 * time.Minute
	purgeTimeout  = 5 * time.Minute
)

// Scheduler runs the promotion lifecycle sweep, the daily activity
// rollup and the activity retention purge on cron schedules.
type Scheduler struct {
	db        *sql.DB
	cron      *cron.Cron
	activity  *service.ActivityService
	cache     *cache.Manager
	retention time.Duration
	logger    *slog.Logger
}

// New creates a scheduler. retention bounds how long activity entries
// are kept before the purge job removes them.
func New(db *sql.DB, activity *service.ActivityService, cacheManager *cache.Manager, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:        db,
		cron:      cron.New(),
		activity:  activity,
		cache:     cacheManager,
		retention: retention,
		logger:    logger,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		schedule string
		timeout  time.Duration
		run      func(ctx context.Context) error
		errMsg   string
	}{
		{"* * * * *", sweepTimeout, s.sweepPromotions, "promotion sweep failed"},
		{"15 0 * * *", rollupTimeout, s.rollupActivity, "activity rollup failed"},
		{"45 3 * * *", purgeTimeout, s.purgeActivity, "activity purge failed"},
	}
	for _, job := range jobs {
		if err := s.addJob(job.schedule, job.timeout, job.run, job.errMsg); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// addJob registers fn on the given cron schedule with a per-run timeout.
func (s *Scheduler) addJob(schedule string, timeout time.Duration, fn func(ctx context.Context) error, errMsg string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Error(errMsg, "error", err)
		}
	})
	return err
}

// Stop gracefully stops the scheduler, waiting for running jobs to
// finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// sweepPromotions publishes staged promotions whose start has passed
// and expires published ones whose end has passed.
func (s *Scheduler) sweepPromotions(ctx context.Context) error {
	queries := store.New(s.db)
	now := time.Now().UTC()

	due, err := queries.ListPromotionsToPublish(ctx, now)
	if err != nil {
		return err
	}
	for _, promo := range due {
		if err := s.publishPromotion(ctx, queries, promo, now); err != nil {
			s.logger.Error("failed to publish scheduled promotion",
				"promotion_id", promo.ID,
				"promotion_title", promo.Title,
				"error", err,
			)
		}
	}

	ending, err := queries.ListPromotionsToExpire(ctx, now)
	if err != nil {
		return err
	}
	for _, promo := range ending {
		if err := s.expirePromotion(ctx, queries, promo, now); err != nil {
			s.logger.Error("failed to expire promotion",
				"promotion_id", promo.ID,
				"promotion_title", promo.Title,
				"error", err,
			)
		}
	}

	if len(due)+len(ending) > 0 {
		s.cache.InvalidateContent(ctx)
	}
	return nil
}

// publishPromotion moves a single staged promotion live and records the
// transition in the activity log.
func (s *Scheduler) publishPromotion(ctx context.Context, queries *store.Queries, promo model.Promotion, now time.Time) error {
	published, err := queries.PublishPromotion(ctx, promo.ID, now)
	if err != nil {
		return err
	}

	s.logger.Info("published scheduled promotion",
		"promotion_id", published.ID,
		"promotion_title", published.Title,
		"starts_at", promo.StartsAt,
	)

	err = s.activity.LogPromotion(ctx, model.ActivityLevelInfo,
		"Promotion went live on schedule: "+published.Title, nil, "", "",
		map[string]any{
			"promotion_id": published.ID,
			"slug":         published.Slug,
			"starts_at":    promo.StartsAt.Format(time.RFC3339),
			"published_at": now.Format(time.RFC3339),
		})
	if err != nil {
		s.logger.Warn("failed to log promotion publish", "error", err)
	}
	return nil
}

// expirePromotion retires a single promotion past its end date and
// records the transition in the activity log.
func (s *Scheduler) expirePromotion(ctx context.Context, queries *store.Queries, promo model.Promotion, now time.Time) error {
	expired, err := queries.ExpirePromotion(ctx, promo.ID, now)
	if err != nil {
		return err
	}

	s.logger.Info("expired promotion",
		"promotion_id", expired.ID,
		"promotion_title", expired.Title,
		"ends_at", promo.EndsAt.Time,
	)

	err = s.activity.LogPromotion(ctx, model.ActivityLevelInfo,
		"Promotion expired on schedule: "+expired.Title, nil, "", "",
		map[string]any{
			"promotion_id": expired.ID,
			"slug":         expired.Slug,
			"ends_at":      promo.EndsAt.Time.Format(time.RFC3339),
			"expired_at":   now.Format(time.RFC3339),
		})
	if err != nil {
		s.logger.Warn("failed to log promotion expiry", "error", err)
	}
	return nil
}

// rollupActivity aggregates yesterday's activity into the daily table.
func (s *Scheduler) rollupActivity(ctx context.Context) error {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	return s.activity.RollupDay(ctx, yesterday)
}

// purgeActivity deletes activity entries older than the retention
// window.
func (s *Scheduler) purgeActivity(ctx context.Context) error {
	deleted, err := s.activity.DeleteOld(ctx, s.retention)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("purged old activity entries", "deleted", deleted)
	}
	return nil
}
