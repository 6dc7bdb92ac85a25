// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const roleColumns = `id, name, description, is_system, created_at, updated_at`

func scanRole(row *sql.Row) (model.Role, error) {
	var r model.Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func scanRoles(rows *sql.Rows) ([]model.Role, error) {
	defer rows.Close()
	var roles []model.Role
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func scanPermissions(rows *sql.Rows) ([]model.Permission, error) {
	defer rows.Close()
	var perms []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Module, &p.Action, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreateRoleParams holds fields for creating a role.
type CreateRoleParams struct {
	Name        string
	Description string
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRole inserts a new role and returns the stored row.
func (q *Queries) CreateRole(ctx context.Context, arg CreateRoleParams) (model.Role, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, description, is_system, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+roleColumns,
		arg.Name, arg.Description, arg.IsSystem, arg.CreatedAt, arg.UpdatedAt)
	return scanRole(row)
}

// GetRoleByID fetches a single role by primary key.
func (q *Queries) GetRoleByID(ctx context.Context, id int64) (model.Role, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	return scanRole(row)
}

// GetRoleByName fetches a single role by unique name.
func (q *Queries) GetRoleByName(ctx context.Context, name string) (model.Role, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

// ListRoles returns all roles ordered by name.
func (q *Queries) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return scanRoles(rows)
}

// UpdateRoleParams holds fields for updating a role.
type UpdateRoleParams struct {
	ID          int64
	Name        string
	Description string
	UpdatedAt   time.Time
}

// UpdateRole updates name and description. The is_system flag is immutable.
func (q *Queries) UpdateRole(ctx context.Context, arg UpdateRoleParams) (model.Role, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE roles SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+roleColumns,
		arg.Name, arg.Description, arg.UpdatedAt, arg.ID)
	return scanRole(row)
}

// DeleteRole removes a non-system role. Assignments cascade.
func (q *Queries) DeleteRole(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ? AND is_system = 0`, id)
	return err
}

// CreatePermissionParams holds fields for creating a permission.
type CreatePermissionParams struct {
	Module      string
	Action      string
	Description string
	CreatedAt   time.Time
}

// CreatePermission inserts a permission into the catalog. The
// (module, action) pair is unique; duplicates are ignored.
func (q *Queries) CreatePermission(ctx context.Context, arg CreatePermissionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO permissions (module, action, description, created_at)
		VALUES (?, ?, ?, ?)`,
		arg.Module, arg.Action, arg.Description, arg.CreatedAt)
	return err
}

// ListPermissions returns the whole permission catalog.
func (q *Queries) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, module, action, description, created_at
		FROM permissions
		ORDER BY module, action`)
	if err != nil {
		return nil, err
	}
	return scanPermissions(rows)
}

// GetPermission fetches a permission by its (module, action) pair.
func (q *Queries) GetPermission(ctx context.Context, module, action string) (model.Permission, error) {
	var p model.Permission
	err := q.db.QueryRowContext(ctx, `
		SELECT id, module, action, description, created_at
		FROM permissions WHERE module = ? AND action = ?`, module, action).
		Scan(&p.ID, &p.Module, &p.Action, &p.Description, &p.CreatedAt)
	return p, err
}

// GetRolePermissions returns the permissions granted to a role.
func (q *Queries) GetRolePermissions(ctx context.Context, roleID int64) ([]model.Permission, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.id, p.module, p.action, p.description, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.module, p.action`, roleID)
	if err != nil {
		return nil, err
	}
	return scanPermissions(rows)
}

// AddRolePermission grants a permission to a role. Duplicates are ignored.
func (q *Queries) AddRolePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)`,
		roleID, permissionID)
	return err
}

// DeleteRolePermissions clears all permission grants for a role.
func (q *Queries) DeleteRolePermissions(ctx context.Context, roleID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, roleID)
	return err
}
