// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const apiKeyColumns = `id, uuid, name, key_hash, key_prefix, permissions,
	is_active, expires_at, last_used_at, created_by, created_at, updated_at`

func scanAPIKey(row *sql.Row) (model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.UUID, &k.Name, &k.KeyHash, &k.KeyPrefix,
		&k.Permissions, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt,
		&k.CreatedBy, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

func scanAPIKeys(rows *sql.Rows) ([]model.APIKey, error) {
	defer rows.Close()
	var keys []model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.UUID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.Permissions, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt,
			&k.CreatedBy, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CreateAPIKeyParams holds fields for registering a delivery API key.
// KeyHash is the SHA-256 of the raw key; the raw key itself is never
// stored.
type CreateAPIKeyParams struct {
	UUID        string
	Name        string
	KeyHash     string
	KeyPrefix   string
	Permissions string
	IsActive    bool
	ExpiresAt   sql.NullTime
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateAPIKey registers a delivery API key and returns the stored row.
func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (uuid, name, key_hash, key_prefix, permissions,
			is_active, expires_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+apiKeyColumns,
		arg.UUID, arg.Name, arg.KeyHash, arg.KeyPrefix, arg.Permissions,
		arg.IsActive, arg.ExpiresAt, arg.CreatedBy, arg.CreatedAt, arg.UpdatedAt)
	return scanAPIKey(row)
}

// GetAPIKeyByID fetches a single key by primary key.
func (q *Queries) GetAPIKeyByID(ctx context.Context, id int64) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id)
	return scanAPIKey(row)
}

// GetAPIKeyByHash looks up a key by the SHA-256 of the presented bearer
// token. Only active keys match; expiry is checked by the caller.
func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys
		WHERE key_hash = ? AND is_active = 1`, keyHash)
	return scanAPIKey(row)
}

// ListAPIKeys returns all keys, newest first.
func (q *Queries) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return scanAPIKeys(rows)
}

// UpdateAPIKeyParams holds the mutable fields of a delivery key. The
// hash and prefix are fixed at creation.
type UpdateAPIKeyParams struct {
	ID          int64
	Name        string
	Permissions string
	IsActive    bool
	ExpiresAt   sql.NullTime
	UpdatedAt   time.Time
}

// UpdateAPIKey updates key metadata and returns the stored row.
func (q *Queries) UpdateAPIKey(ctx context.Context, arg UpdateAPIKeyParams) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE api_keys SET name = ?, permissions = ?, is_active = ?,
			expires_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+apiKeyColumns,
		arg.Name, arg.Permissions, arg.IsActive, arg.ExpiresAt, arg.UpdatedAt, arg.ID)
	return scanAPIKey(row)
}

// TouchAPIKeyLastUsed records the most recent successful use of a key.
func (q *Queries) TouchAPIKeyLastUsed(ctx context.Context, id int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, now, id)
	return err
}

// DeleteAPIKey removes a delivery key.
func (q *Queries) DeleteAPIKey(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	return err
}
