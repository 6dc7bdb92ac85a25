// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const promotionColumns = `id, title, slug, summary, body, tenant_id, status,
	featured, starts_at, ends_at, published_at, created_at, updated_at`

func scanPromotion(row *sql.Row) (model.Promotion, error) {
	var p model.Promotion
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Summary, &p.Body, &p.TenantID,
		&p.Status, &p.Featured, &p.StartsAt, &p.EndsAt, &p.PublishedAt,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanPromotions(rows *sql.Rows) ([]model.Promotion, error) {
	defer rows.Close()
	var promotions []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Summary, &p.Body, &p.TenantID,
			&p.Status, &p.Featured, &p.StartsAt, &p.EndsAt, &p.PublishedAt,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

// CreatePromotionParams holds fields for creating a promotion. New
// promotions always start in staging.
type CreatePromotionParams struct {
	Title     string
	Slug      string
	Summary   string
	Body      string
	TenantID  sql.NullInt64
	Featured  bool
	StartsAt  time.Time
	EndsAt    sql.NullTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePromotion inserts a new promotion in staging and returns the
// stored row.
func (q *Queries) CreatePromotion(ctx context.Context, arg CreatePromotionParams) (model.Promotion, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO promotions (title, slug, summary, body, tenant_id, status,
			featured, starts_at, ends_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+promotionColumns,
		arg.Title, arg.Slug, arg.Summary, arg.Body, arg.TenantID,
		model.PromotionStatusStaging, arg.Featured, arg.StartsAt, arg.EndsAt,
		arg.CreatedAt, arg.UpdatedAt)
	return scanPromotion(row)
}

// GetPromotionByID fetches a single promotion by primary key.
func (q *Queries) GetPromotionByID(ctx context.Context, id int64) (model.Promotion, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = ?`, id)
	return scanPromotion(row)
}

// GetPromotionBySlug fetches a single promotion by unique slug.
func (q *Queries) GetPromotionBySlug(ctx context.Context, slug string) (model.Promotion, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE slug = ?`, slug)
	return scanPromotion(row)
}

// ListPromotionsParams holds filters for the admin promotion list.
type ListPromotionsParams struct {
	Status   string // empty matches all
	TenantID sql.NullInt64
	Search   string // matches title substring
	Limit    int64
	Offset   int64
}

// ListPromotions returns promotions for the admin list, newest start
// first.
func (q *Queries) ListPromotions(ctx context.Context, arg ListPromotionsParams) ([]model.Promotion, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE (? = '' OR status = ?)
		  AND (? = 0 OR tenant_id = ?)
		  AND (? = '' OR title LIKE '%' || ? || '%')
		ORDER BY starts_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		arg.Status, arg.Status,
		arg.TenantID.Valid, arg.TenantID.Int64,
		arg.Search, arg.Search,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPromotions(rows)
}

// CountPromotions returns the number of promotions matching the same
// filters as ListPromotions.
func (q *Queries) CountPromotions(ctx context.Context, arg ListPromotionsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM promotions
		WHERE (? = '' OR status = ?)
		  AND (? = 0 OR tenant_id = ?)
		  AND (? = '' OR title LIKE '%' || ? || '%')`,
		arg.Status, arg.Status,
		arg.TenantID.Valid, arg.TenantID.Int64,
		arg.Search, arg.Search).Scan(&count)
	return count, err
}

// UpdatePromotionParams holds fields for updating a promotion. Status
// transitions go through PublishPromotion and ExpirePromotion.
type UpdatePromotionParams struct {
	ID        int64
	Title     string
	Slug      string
	Summary   string
	Body      string
	TenantID  sql.NullInt64
	Featured  bool
	StartsAt  time.Time
	EndsAt    sql.NullTime
	UpdatedAt time.Time
}

// UpdatePromotion updates promotion content. Neither status nor
// published_at change here.
func (q *Queries) UpdatePromotion(ctx context.Context, arg UpdatePromotionParams) (model.Promotion, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE promotions SET title = ?, slug = ?, summary = ?, body = ?,
			tenant_id = ?, featured = ?, starts_at = ?, ends_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+promotionColumns,
		arg.Title, arg.Slug, arg.Summary, arg.Body, arg.TenantID, arg.Featured,
		arg.StartsAt, arg.EndsAt, arg.UpdatedAt, arg.ID)
	return scanPromotion(row)
}

// PublishPromotion transitions a promotion to published. The
// published_at timestamp is set exactly once; COALESCE keeps the
// original value when an expired promotion is republished.
func (q *Queries) PublishPromotion(ctx context.Context, id int64, now time.Time) (model.Promotion, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE promotions SET status = ?, published_at = COALESCE(published_at, ?), updated_at = ?
		WHERE id = ?
		RETURNING `+promotionColumns,
		model.PromotionStatusPublished, now, now, id)
	return scanPromotion(row)
}

// ExpirePromotion transitions a promotion to expired. The published_at
// timestamp is never cleared.
func (q *Queries) ExpirePromotion(ctx context.Context, id int64, now time.Time) (model.Promotion, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE promotions SET status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+promotionColumns,
		model.PromotionStatusExpired, now, id)
	return scanPromotion(row)
}

// DeletePromotion removes a promotion.
func (q *Queries) DeletePromotion(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = ?`, id)
	return err
}

// ListPromotionsToPublish returns staging promotions whose start time
// has arrived, for the scheduler sweep.
func (q *Queries) ListPromotionsToPublish(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE status = ? AND starts_at <= ?
		ORDER BY starts_at ASC`, model.PromotionStatusStaging, now)
	if err != nil {
		return nil, err
	}
	return scanPromotions(rows)
}

// ListPromotionsToExpire returns published promotions whose end time has
// passed, for the scheduler sweep.
func (q *Queries) ListPromotionsToExpire(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE status = ? AND ends_at IS NOT NULL AND ends_at < ?
		ORDER BY ends_at ASC`, model.PromotionStatusPublished, now)
	if err != nil {
		return nil, err
	}
	return scanPromotions(rows)
}

// ListPublishedPromotions returns all published promotions ordered by
// start time, for delivery and aggregation.
func (q *Queries) ListPublishedPromotions(ctx context.Context) ([]model.Promotion, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE status = ?
		ORDER BY starts_at ASC, id ASC`, model.PromotionStatusPublished)
	if err != nil {
		return nil, err
	}
	return scanPromotions(rows)
}

// CountPromotionsByStatus returns promotion counts grouped by lifecycle
// status, for the dashboard.
func (q *Queries) CountPromotionsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM promotions
		GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
