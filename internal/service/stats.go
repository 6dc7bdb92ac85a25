// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic shared by the admin and
// delivery APIs: schedule bucketing, dashboard aggregation, feed
// assembly and audit trail recording.
package service

import (
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

// Bucket classifies dated content relative to a point in time.
type Bucket string

// Schedule buckets. BucketNone marks unpublished rows, which are
// excluded from all published counts.
const (
	BucketNone     Bucket = "none"
	BucketUpcoming Bucket = "upcoming"
	BucketOngoing  Bucket = "ongoing"
	BucketEnded    Bucket = "ended"
)

// ParseBucket maps a query string value to a Bucket.
func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(s) {
	case BucketUpcoming, BucketOngoing, BucketEnded:
		return Bucket(s), true
	}
	return BucketNone, false
}

// ScheduleItem is the minimal view of a dated row the classifier needs.
type ScheduleItem struct {
	Published bool
	StartAt   time.Time
	EndAt     sql.NullTime
}

// Classify assigns a schedule bucket relative to now:
//
//   - unpublished rows are BucketNone
//   - start after now is upcoming
//   - an end before now is ended
//   - everything else, including rows whose start or end equals now
//     exactly and rows with no end at all, is ongoing
func Classify(item ScheduleItem, now time.Time) Bucket {
	if !item.Published {
		return BucketNone
	}
	if item.StartAt.After(now) {
		return BucketUpcoming
	}
	if item.EndAt.Valid && item.EndAt.Time.Before(now) {
		return BucketEnded
	}
	return BucketOngoing
}

// BucketCounts holds per-bucket totals for published content.
// The three buckets always sum to Published.
type BucketCounts struct {
	Upcoming  int `json:"upcoming"`
	Ongoing   int `json:"ongoing"`
	Ended     int `json:"ended"`
	Published int `json:"published"`
}

// CountByBucket classifies every item and tallies the published buckets.
func CountByBucket(items []ScheduleItem, now time.Time) BucketCounts {
	var counts BucketCounts
	for _, item := range items {
		switch Classify(item, now) {
		case BucketUpcoming:
			counts.Upcoming++
		case BucketOngoing:
			counts.Ongoing++
		case BucketEnded:
			counts.Ended++
		default:
			continue
		}
		counts.Published++
	}
	return counts
}

// dayFormat is the calendar-day key used by histograms and rollups.
const dayFormat = "2006-01-02"

// StartOfDay returns midnight at the start of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayCount is one day of a histogram.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DayHistogram buckets timestamps into a trailing window of calendar
// days ending today, in now's location. The result is chronological
// (oldest day first) with empty days zero-filled; timestamps outside
// the window are dropped.
func DayHistogram(times []time.Time, days int, now time.Time) []DayCount {
	if days <= 0 {
		return nil
	}

	counts := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i-(days-1)).Format(dayFormat)
		counts[i] = DayCount{Day: day}
		index[day] = i
	}

	for _, t := range times {
		if i, ok := index[t.In(now.Location()).Format(dayFormat)]; ok {
			counts[i].Count++
		}
	}
	return counts
}

// EventSchedule adapts an event row for classification.
func EventSchedule(e model.Event) ScheduleItem {
	return ScheduleItem{
		Published: e.IsPublished(),
		StartAt:   e.StartAt,
		EndAt:     e.EndAt,
	}
}

// PromotionSchedule adapts a promotion row for classification. Only
// the published status counts as live; staged and expired promotions
// classify as BucketNone regardless of their dates.
func PromotionSchedule(p model.Promotion) ScheduleItem {
	return ScheduleItem{
		Published: p.IsPublished(),
		StartAt:   p.StartsAt,
		EndAt:     p.EndsAt,
	}
}

// FilterEventsByBucket keeps only the events in the given bucket.
func FilterEventsByBucket(events []model.Event, bucket Bucket, now time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if Classify(EventSchedule(e), now) == bucket {
			out = append(out, e)
		}
	}
	return out
}

// FilterPromotionsByBucket keeps only the promotions in the given bucket.
func FilterPromotionsByBucket(promos []model.Promotion, bucket Bucket, now time.Time) []model.Promotion {
	out := make([]model.Promotion, 0, len(promos))
	for _, p := range promos {
		if Classify(PromotionSchedule(p), now) == bucket {
			out = append(out, p)
		}
	}
	return out
}
