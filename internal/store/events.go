// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const eventColumns = `id, title, slug, summary, body, location, status, featured,
	start_at, end_at, published_at, created_by, created_at, updated_at`

func scanEvent(row *sql.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Summary, &e.Body, &e.Location,
		&e.Status, &e.Featured, &e.StartAt, &e.EndAt, &e.PublishedAt,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Slug, &e.Summary, &e.Body, &e.Location,
			&e.Status, &e.Featured, &e.StartAt, &e.EndAt, &e.PublishedAt,
			&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CreateEventParams holds fields for creating a mall event.
type CreateEventParams struct {
	Title       string
	Slug        string
	Summary     string
	Body        string
	Location    string
	Status      string
	Featured    bool
	StartAt     time.Time
	EndAt       sql.NullTime
	PublishedAt sql.NullTime
	CreatedBy   sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateEvent inserts a new event and returns the stored row.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO events (title, slug, summary, body, location, status, featured,
			start_at, end_at, published_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+eventColumns,
		arg.Title, arg.Slug, arg.Summary, arg.Body, arg.Location, arg.Status,
		arg.Featured, arg.StartAt, arg.EndAt, arg.PublishedAt, arg.CreatedBy,
		arg.CreatedAt, arg.UpdatedAt)
	return scanEvent(row)
}

// GetEventByID fetches a single event by primary key.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventBySlug fetches a single event by unique slug.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	return scanEvent(row)
}

// ListEventsParams holds filters for the admin event list.
type ListEventsParams struct {
	Status   string // empty matches all
	Featured sql.NullBool
	Search   string // matches title substring
	Limit    int64
	Offset   int64
}

// ListEvents returns events for the admin list, newest start first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	featuredSet, featured := boolFilter(arg.Featured)
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE (? = '' OR status = ?)
		  AND (? = 0 OR featured = ?)
		  AND (? = '' OR title LIKE '%' || ? || '%')
		ORDER BY start_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		arg.Status, arg.Status,
		featuredSet, featured,
		arg.Search, arg.Search,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// CountEvents returns the number of events matching the same filters as
// ListEvents.
func (q *Queries) CountEvents(ctx context.Context, arg ListEventsParams) (int64, error) {
	featuredSet, featured := boolFilter(arg.Featured)
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events
		WHERE (? = '' OR status = ?)
		  AND (? = 0 OR featured = ?)
		  AND (? = '' OR title LIKE '%' || ? || '%')`,
		arg.Status, arg.Status,
		featuredSet, featured,
		arg.Search, arg.Search).Scan(&count)
	return count, err
}

// UpdateEventParams holds fields for updating a mall event.
type UpdateEventParams struct {
	ID        int64
	Title     string
	Slug      string
	Summary   string
	Body      string
	Location  string
	Status    string
	Featured  bool
	StartAt   time.Time
	EndAt     sql.NullTime
	UpdatedAt time.Time
}

// UpdateEvent updates an event. The published_at column is managed only
// by PublishEvent and is left untouched here.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE events SET title = ?, slug = ?, summary = ?, body = ?, location = ?,
			status = ?, featured = ?, start_at = ?, end_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+eventColumns,
		arg.Title, arg.Slug, arg.Summary, arg.Body, arg.Location, arg.Status,
		arg.Featured, arg.StartAt, arg.EndAt, arg.UpdatedAt, arg.ID)
	return scanEvent(row)
}

// PublishEvent marks an event published. The published_at timestamp is
// set only the first time; COALESCE keeps the original on republish.
func (q *Queries) PublishEvent(ctx context.Context, id int64, now time.Time) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE events SET status = ?, published_at = COALESCE(published_at, ?), updated_at = ?
		WHERE id = ?
		RETURNING `+eventColumns,
		model.StatusPublished, now, now, id)
	return scanEvent(row)
}

// DeleteEvent removes an event.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// ListPublishedEvents returns all published events ordered by start time.
// Status buckets (upcoming/ongoing/ended) are computed by the caller.
func (q *Queries) ListPublishedEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = ?
		ORDER BY start_at ASC, id ASC`, model.StatusPublished)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListEventStartTimes returns start timestamps of published events since
// the cutoff, for day-bucketed histograms.
func (q *Queries) ListEventStartTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT start_at FROM events
		WHERE status = ? AND start_at >= ?
		ORDER BY start_at ASC`, model.StatusPublished, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// boolFilter expands an optional bool filter into the (enabled, value)
// argument pair used by the list queries.
func boolFilter(b sql.NullBool) (int64, bool) {
	if !b.Valid {
		return 0, false
	}
	return 1, b.Bool
}
