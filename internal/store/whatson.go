// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const whatsOnColumns = `id, item_type, item_id, position, pinned, created_at, updated_at`

func scanWhatsOnItem(row *sql.Row) (model.WhatsOnItem, error) {
	var w model.WhatsOnItem
	err := row.Scan(&w.ID, &w.ItemType, &w.ItemID, &w.Position, &w.Pinned,
		&w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func scanWhatsOnItems(rows *sql.Rows) ([]model.WhatsOnItem, error) {
	defer rows.Close()
	var items []model.WhatsOnItem
	for rows.Next() {
		var w model.WhatsOnItem
		if err := rows.Scan(&w.ID, &w.ItemType, &w.ItemID, &w.Position, &w.Pinned,
			&w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// CreateWhatsOnItemParams holds fields for adding a homepage feed entry.
type CreateWhatsOnItemParams struct {
	ItemType  string
	ItemID    int64
	Position  int64
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateWhatsOnItem adds an entry to the homepage feed. Each piece of
// content appears at most once; duplicates fail on the unique index.
func (q *Queries) CreateWhatsOnItem(ctx context.Context, arg CreateWhatsOnItemParams) (model.WhatsOnItem, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO whats_on_items (item_type, item_id, position, pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+whatsOnColumns,
		arg.ItemType, arg.ItemID, arg.Position, arg.Pinned, arg.CreatedAt, arg.UpdatedAt)
	return scanWhatsOnItem(row)
}

// GetWhatsOnItemByID fetches a single feed entry by primary key.
func (q *Queries) GetWhatsOnItemByID(ctx context.Context, id int64) (model.WhatsOnItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+whatsOnColumns+` FROM whats_on_items WHERE id = ?`, id)
	return scanWhatsOnItem(row)
}

// GetWhatsOnItemByRef fetches the feed entry for a content item, if any.
func (q *Queries) GetWhatsOnItemByRef(ctx context.Context, itemType string, itemID int64) (model.WhatsOnItem, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+whatsOnColumns+` FROM whats_on_items
		WHERE item_type = ? AND item_id = ?`, itemType, itemID)
	return scanWhatsOnItem(row)
}

// ListWhatsOnItems returns the entire feed in display order: pinned
// entries first, then by position.
func (q *Queries) ListWhatsOnItems(ctx context.Context) ([]model.WhatsOnItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+whatsOnColumns+` FROM whats_on_items
		ORDER BY pinned DESC, position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return scanWhatsOnItems(rows)
}

// MaxWhatsOnPosition returns the highest position in the feed, or zero
// when the feed is empty. New entries append at max+1.
func (q *Queries) MaxWhatsOnPosition(ctx context.Context) (int64, error) {
	var pos sql.NullInt64
	err := q.db.QueryRowContext(ctx, `SELECT MAX(position) FROM whats_on_items`).Scan(&pos)
	if err != nil {
		return 0, err
	}
	return pos.Int64, nil
}

// UpdateWhatsOnPosition moves a feed entry to a new position.
func (q *Queries) UpdateWhatsOnPosition(ctx context.Context, id, position int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE whats_on_items SET position = ?, updated_at = ? WHERE id = ?`,
		position, now, id)
	return err
}

// SetWhatsOnPinned pins or unpins a feed entry.
func (q *Queries) SetWhatsOnPinned(ctx context.Context, id int64, pinned bool, now time.Time) (model.WhatsOnItem, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE whats_on_items SET pinned = ?, updated_at = ? WHERE id = ?
		RETURNING `+whatsOnColumns,
		pinned, now, id)
	return scanWhatsOnItem(row)
}

// DeleteWhatsOnItem removes a feed entry.
func (q *Queries) DeleteWhatsOnItem(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM whats_on_items WHERE id = ?`, id)
	return err
}

// DeleteWhatsOnItemByRef removes the feed entry for a content item when
// the underlying content is deleted. Missing entries are not an error.
func (q *Queries) DeleteWhatsOnItemByRef(ctx context.Context, itemType string, itemID int64) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM whats_on_items WHERE item_type = ? AND item_id = ?`,
		itemType, itemID)
	return err
}
