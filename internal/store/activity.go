// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const activityColumns = `id, level, category, message, user_id, ip_address,
	country, user_agent, metadata, created_at`

func scanActivities(rows *sql.Rows) ([]model.Activity, error) {
	defer rows.Close()
	var entries []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.Level, &a.Category, &a.Message, &a.UserID,
			&a.IPAddress, &a.Country, &a.UserAgent, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// CreateActivityParams holds fields for recording an audit log entry.
type CreateActivityParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	Country   sql.NullString
	UserAgent string
	Metadata  string
	CreatedAt time.Time
}

// CreateActivity records an audit log entry.
func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) (model.Activity, error) {
	var a model.Activity
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO activity_log (level, category, message, user_id, ip_address,
			country, user_agent, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+activityColumns,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.IPAddress,
		arg.Country, arg.UserAgent, arg.Metadata, arg.CreatedAt).
		Scan(&a.ID, &a.Level, &a.Category, &a.Message, &a.UserID,
			&a.IPAddress, &a.Country, &a.UserAgent, &a.Metadata, &a.CreatedAt)
	return a, err
}

// ListActivityParams holds filters for browsing the audit log.
type ListActivityParams struct {
	Level    string // empty matches all
	Category string // empty matches all
	UserID   sql.NullInt64
	Search   string // matches message substring
	Limit    int64
	Offset   int64
}

// ListActivity returns audit log entries, newest first.
func (q *Queries) ListActivity(ctx context.Context, arg ListActivityParams) ([]model.Activity, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM activity_log
		WHERE (? = '' OR level = ?)
		  AND (? = '' OR category = ?)
		  AND (? = 0 OR user_id = ?)
		  AND (? = '' OR message LIKE '%' || ? || '%')
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		arg.Level, arg.Level,
		arg.Category, arg.Category,
		arg.UserID.Valid, arg.UserID.Int64,
		arg.Search, arg.Search,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

// CountActivity returns the number of entries matching the same filters
// as ListActivity.
func (q *Queries) CountActivity(ctx context.Context, arg ListActivityParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity_log
		WHERE (? = '' OR level = ?)
		  AND (? = '' OR category = ?)
		  AND (? = 0 OR user_id = ?)
		  AND (? = '' OR message LIKE '%' || ? || '%')`,
		arg.Level, arg.Level,
		arg.Category, arg.Category,
		arg.UserID.Valid, arg.UserID.Int64,
		arg.Search, arg.Search).Scan(&count)
	return count, err
}

// DeleteActivityOlderThan purges audit log entries created before the
// cutoff and returns the number removed.
func (q *Queries) DeleteActivityOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM activity_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertActivityDaily recomputes the per-category rollup for one day
// (YYYY-MM-DD) from the raw log.
func (q *Queries) UpsertActivityDaily(ctx context.Context, day string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO activity_daily (day, category, count)
		SELECT date(created_at), category, COUNT(*)
		FROM activity_log
		WHERE date(created_at) = ?
		GROUP BY category`, day)
	return err
}

// ListActivityDaily returns rollup rows on or after the given day
// (YYYY-MM-DD), oldest first.
func (q *Queries) ListActivityDaily(ctx context.Context, sinceDay string) ([]model.ActivityDaily, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT day, category, count FROM activity_daily
		WHERE day >= ?
		ORDER BY day ASC, category ASC`, sinceDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var daily []model.ActivityDaily
	for rows.Next() {
		var d model.ActivityDaily
		if err := rows.Scan(&d.Day, &d.Category, &d.Count); err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

// CountActivitySince returns the number of audit entries since the
// cutoff, for the dashboard.
func (q *Queries) CountActivitySince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_log WHERE created_at >= ?`, since).Scan(&count)
	return count, err
}

// CountActivityByCategoryForDay returns per-category totals for one day
// (YYYY-MM-DD) straight from the raw log, for days the rollup has not
// captured yet.
func (q *Queries) CountActivityByCategoryForDay(ctx context.Context, day string) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM activity_log
		WHERE date(created_at) = ?
		GROUP BY category`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}
