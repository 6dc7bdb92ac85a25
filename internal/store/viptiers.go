// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const vipTierColumns = `id, name, slug, rank, min_points, color, benefits,
	active, created_at, updated_at`

func scanVIPTier(row *sql.Row) (model.VIPTier, error) {
	var t model.VIPTier
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Rank, &t.MinPoints, &t.Color,
		&t.Benefits, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanVIPTiers(rows *sql.Rows) ([]model.VIPTier, error) {
	defer rows.Close()
	var tiers []model.VIPTier
	for rows.Next() {
		var t model.VIPTier
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Rank, &t.MinPoints, &t.Color,
			&t.Benefits, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// CreateVIPTierParams holds fields for creating a loyalty tier.
type CreateVIPTierParams struct {
	Name      string
	Slug      string
	Rank      int64
	MinPoints int64
	Color     string
	Benefits  string // JSON array of strings
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateVIPTier inserts a new loyalty tier and returns the stored row.
func (q *Queries) CreateVIPTier(ctx context.Context, arg CreateVIPTierParams) (model.VIPTier, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO vip_tiers (name, slug, rank, min_points, color, benefits,
			active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+vipTierColumns,
		arg.Name, arg.Slug, arg.Rank, arg.MinPoints, arg.Color, arg.Benefits,
		arg.Active, arg.CreatedAt, arg.UpdatedAt)
	return scanVIPTier(row)
}

// GetVIPTierByID fetches a single tier by primary key.
func (q *Queries) GetVIPTierByID(ctx context.Context, id int64) (model.VIPTier, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+vipTierColumns+` FROM vip_tiers WHERE id = ?`, id)
	return scanVIPTier(row)
}

// GetVIPTierBySlug fetches a single tier by unique slug.
func (q *Queries) GetVIPTierBySlug(ctx context.Context, slug string) (model.VIPTier, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+vipTierColumns+` FROM vip_tiers WHERE slug = ?`, slug)
	return scanVIPTier(row)
}

// ListVIPTiers returns all tiers ordered by rank, lowest first.
func (q *Queries) ListVIPTiers(ctx context.Context) ([]model.VIPTier, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+vipTierColumns+` FROM vip_tiers ORDER BY rank ASC`)
	if err != nil {
		return nil, err
	}
	return scanVIPTiers(rows)
}

// ListActiveVIPTiers returns active tiers ordered by rank, for delivery.
func (q *Queries) ListActiveVIPTiers(ctx context.Context) ([]model.VIPTier, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+vipTierColumns+` FROM vip_tiers WHERE active = 1 ORDER BY rank ASC`)
	if err != nil {
		return nil, err
	}
	return scanVIPTiers(rows)
}

// UpdateVIPTierParams holds fields for updating a loyalty tier.
type UpdateVIPTierParams struct {
	ID        int64
	Name      string
	Slug      string
	Rank      int64
	MinPoints int64
	Color     string
	Benefits  string
	Active    bool
	UpdatedAt time.Time
}

// UpdateVIPTier updates a loyalty tier and returns the stored row.
func (q *Queries) UpdateVIPTier(ctx context.Context, arg UpdateVIPTierParams) (model.VIPTier, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE vip_tiers SET name = ?, slug = ?, rank = ?, min_points = ?,
			color = ?, benefits = ?, active = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+vipTierColumns,
		arg.Name, arg.Slug, arg.Rank, arg.MinPoints, arg.Color, arg.Benefits,
		arg.Active, arg.UpdatedAt, arg.ID)
	return scanVIPTier(row)
}

// DeleteVIPTier removes a loyalty tier.
func (q *Queries) DeleteVIPTier(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM vip_tiers WHERE id = ?`, id)
	return err
}
