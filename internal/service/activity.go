// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/mileusna/useragent"

	"github.com/galleria-dev/galleria/internal/geoip"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
)

// ActivityService records audit trail entries, enriched with the
// caller's country and a summarized user agent.
type ActivityService struct {
	queries *store.Queries
	geo     *geoip.Lookup
}

// NewActivityService creates a new ActivityService. The GeoIP lookup
// may be nil, in which case country enrichment is skipped.
func NewActivityService(db *sql.DB, geo *geoip.Lookup) *ActivityService {
	return &ActivityService{
		queries: store.New(db),
		geo:     geo,
	}
}

// Log creates a new audit trail entry.
func (s *ActivityService) Log(ctx context.Context, level, category, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	var country sql.NullString
	if s.geo != nil && ipAddress != "" {
		if code := s.geo.LookupCountry(ipAddress); code != "" {
			country = sql.NullString{String: code, Valid: true}
		}
	}

	_, err := s.queries.CreateActivity(ctx, store.CreateActivityParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		IPAddress: ipAddress,
		Country:   country,
		UserAgent: SummarizeUserAgent(userAgent),
		Metadata:  metadataJSON,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Failed to record activity: %v", err)
		return err
	}

	return nil
}

// LogInfo logs an info-level entry.
func (s *ActivityService) LogInfo(ctx context.Context, category, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, model.ActivityLevelInfo, category, message, userID, ipAddress, userAgent, metadata)
}

// LogWarning logs a warning-level entry.
func (s *ActivityService) LogWarning(ctx context.Context, category, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, model.ActivityLevelWarning, category, message, userID, ipAddress, userAgent, metadata)
}

// LogError logs an error-level entry.
func (s *ActivityService) LogError(ctx context.Context, category, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, model.ActivityLevelError, category, message, userID, ipAddress, userAgent, metadata)
}

// LogAuth logs an authentication-related entry.
func (s *ActivityService) LogAuth(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategoryAuth, message, userID, ipAddress, userAgent, metadata)
}

// LogContent logs an entry about events, posts or the What's On feed.
func (s *ActivityService) LogContent(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategoryContent, message, userID, ipAddress, userAgent, metadata)
}

// LogTenant logs a storefront-related entry.
func (s *ActivityService) LogTenant(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategoryTenant, message, userID, ipAddress, userAgent, metadata)
}

// LogPromotion logs a promotion lifecycle entry.
func (s *ActivityService) LogPromotion(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategoryPromotion, message, userID, ipAddress, userAgent, metadata)
}

// LogUser logs a user management entry.
func (s *ActivityService) LogUser(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategoryUser, message, userID, ipAddress, userAgent, metadata)
}

// LogSystem logs a system-level entry.
func (s *ActivityService) LogSystem(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategorySystem, message, userID, ipAddress, userAgent, metadata)
}

// LogAPI logs a delivery API entry.
func (s *ActivityService) LogAPI(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	return s.Log(ctx, level, model.ActivityCategoryAPI, message, userID, ipAddress, userAgent, metadata)
}

// DeleteOld removes entries older than olderThan and returns the
// number removed.
func (s *ActivityService) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queries.DeleteActivityOlderThan(ctx, cutoff)
}

// RollupDay recomputes the per-category daily rollup for the calendar
// day containing t.
func (s *ActivityService) RollupDay(ctx context.Context, t time.Time) error {
	return s.queries.UpsertActivityDaily(ctx, t.Format(dayFormat))
}

// ActivityDayStat is one day of audit trail statistics.
type ActivityDayStat struct {
	Day        string           `json:"day"`
	Total      int64            `json:"total"`
	Categories map[string]int64 `json:"categories"`
}

// ActivityStats summarizes audit volume over a trailing day window.
type ActivityStats struct {
	Days  []ActivityDayStat `json:"days"`
	Total int64             `json:"total"`
}

// DailyStats assembles per-day, per-category audit counts for a
// trailing window ending today. Completed days come from the rollup
// table; today is computed live since the rollup job has not seen it
// yet. Days are chronological with empty days zero-filled.
func (s *ActivityService) DailyStats(ctx context.Context, days int, now time.Time) (*ActivityStats, error) {
	if days <= 0 {
		days = 1
	}

	sinceDay := now.AddDate(0, 0, -(days - 1)).Format(dayFormat)
	today := now.Format(dayFormat)

	rolled, err := s.queries.ListActivityDaily(ctx, sinceDay)
	if err != nil {
		return nil, err
	}

	live, err := s.queries.CountActivityByCategoryForDay(ctx, today)
	if err != nil {
		return nil, err
	}

	stats := &ActivityStats{Days: make([]ActivityDayStat, days)}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i-(days-1)).Format(dayFormat)
		stats.Days[i] = ActivityDayStat{Day: day, Categories: make(map[string]int64)}
		index[day] = i
	}

	for _, row := range rolled {
		if row.Day == today {
			// Superseded by the live count below.
			continue
		}
		if i, ok := index[row.Day]; ok {
			stats.Days[i].Categories[row.Category] += row.Count
			stats.Days[i].Total += row.Count
			stats.Total += row.Count
		}
	}

	if i, ok := index[today]; ok {
		for category, count := range live {
			stats.Days[i].Categories[category] += count
			stats.Days[i].Total += count
			stats.Total += count
		}
	}

	return stats, nil
}

// SummarizeUserAgent reduces a raw User-Agent header to a short
// "Browser x.y on OS (device)" form for audit display. Empty input
// stays empty.
func SummarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}

	ua := useragent.Parse(raw)

	name := ua.Name
	if name == "" {
		name = "Unknown"
	}

	summary := name
	if ua.Version != "" {
		summary += " " + ua.Version
	}
	if ua.OS != "" {
		summary += " on " + ua.OS
	}

	switch {
	case ua.Mobile:
		summary += " (mobile)"
	case ua.Tablet:
		summary += " (tablet)"
	case ua.Bot:
		summary += " (bot)"
	}

	return summary
}
