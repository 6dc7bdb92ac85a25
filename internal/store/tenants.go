// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const tenantColumns = `id, name, slug, category, floor, unit, phone, website,
	description, logo_url, status, featured, opens_at, closes_at, created_at, updated_at`

func scanTenant(row *sql.Row) (model.Tenant, error) {
	var t model.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Category, &t.Floor, &t.Unit,
		&t.Phone, &t.Website, &t.Description, &t.LogoURL, &t.Status, &t.Featured,
		&t.OpensAt, &t.ClosesAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanTenants(rows *sql.Rows) ([]model.Tenant, error) {
	defer rows.Close()
	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Category, &t.Floor, &t.Unit,
			&t.Phone, &t.Website, &t.Description, &t.LogoURL, &t.Status, &t.Featured,
			&t.OpensAt, &t.ClosesAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// CreateTenantParams holds fields for creating a storefront record.
type CreateTenantParams struct {
	Name        string
	Slug        string
	Category    string
	Floor       string
	Unit        string
	Phone       string
	Website     string
	Description string
	LogoURL     string
	Status      string
	Featured    bool
	OpensAt     string
	ClosesAt    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateTenant inserts a new storefront record and returns the stored row.
func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (model.Tenant, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO tenants (name, slug, category, floor, unit, phone, website,
			description, logo_url, status, featured, opens_at, closes_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+tenantColumns,
		arg.Name, arg.Slug, arg.Category, arg.Floor, arg.Unit, arg.Phone,
		arg.Website, arg.Description, arg.LogoURL, arg.Status, arg.Featured,
		arg.OpensAt, arg.ClosesAt, arg.CreatedAt, arg.UpdatedAt)
	return scanTenant(row)
}

// GetTenantByID fetches a single tenant by primary key.
func (q *Queries) GetTenantByID(ctx context.Context, id int64) (model.Tenant, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

// GetTenantBySlug fetches a single tenant by unique slug.
func (q *Queries) GetTenantBySlug(ctx context.Context, slug string) (model.Tenant, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = ?`, slug)
	return scanTenant(row)
}

// ListTenantsParams holds filters for the storefront directory list.
type ListTenantsParams struct {
	Status   string // empty matches all
	Category string // empty matches all
	Search   string // matches name substring
	Limit    int64
	Offset   int64
}

// ListTenants returns storefront records ordered by name.
func (q *Queries) ListTenants(ctx context.Context, arg ListTenantsParams) ([]model.Tenant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE (? = '' OR status = ?)
		  AND (? = '' OR category = ?)
		  AND (? = '' OR name LIKE '%' || ? || '%')
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?`,
		arg.Status, arg.Status,
		arg.Category, arg.Category,
		arg.Search, arg.Search,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanTenants(rows)
}

// CountTenants returns the number of tenants matching the same filters
// as ListTenants.
func (q *Queries) CountTenants(ctx context.Context, arg ListTenantsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tenants
		WHERE (? = '' OR status = ?)
		  AND (? = '' OR category = ?)
		  AND (? = '' OR name LIKE '%' || ? || '%')`,
		arg.Status, arg.Status,
		arg.Category, arg.Category,
		arg.Search, arg.Search).Scan(&count)
	return count, err
}

// UpdateTenantParams holds fields for updating a storefront record.
type UpdateTenantParams struct {
	ID          int64
	Name        string
	Slug        string
	Category    string
	Floor       string
	Unit        string
	Phone       string
	Website     string
	Description string
	LogoURL     string
	Status      string
	Featured    bool
	OpensAt     string
	ClosesAt    string
	UpdatedAt   time.Time
}

// UpdateTenant updates a storefront record and returns the stored row.
func (q *Queries) UpdateTenant(ctx context.Context, arg UpdateTenantParams) (model.Tenant, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE tenants SET name = ?, slug = ?, category = ?, floor = ?, unit = ?,
			phone = ?, website = ?, description = ?, logo_url = ?, status = ?,
			featured = ?, opens_at = ?, closes_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+tenantColumns,
		arg.Name, arg.Slug, arg.Category, arg.Floor, arg.Unit, arg.Phone,
		arg.Website, arg.Description, arg.LogoURL, arg.Status, arg.Featured,
		arg.OpensAt, arg.ClosesAt, arg.UpdatedAt, arg.ID)
	return scanTenant(row)
}

// DeleteTenant removes a storefront record.
func (q *Queries) DeleteTenant(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	return err
}

// ListPublishedTenants returns published storefronts ordered by name,
// for the public directory.
func (q *Queries) ListPublishedTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE status = ?
		ORDER BY name ASC, id ASC`, model.StatusPublished)
	if err != nil {
		return nil, err
	}
	return scanTenants(rows)
}

// CountTenantsByCategory returns published storefront counts per category
// for the dashboard.
func (q *Queries) CountTenantsByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM tenants
		WHERE status = ?
		GROUP BY category`, model.StatusPublished)
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
