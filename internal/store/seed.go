// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/model"
)

// First-boot admin account. Operators are told to change it on the
// first sign-in.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// Seed creates initial data: the permission catalog, the system roles
// with their grants, and a default super admin. Safe to run on every
// start; existing rows are left alone.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)
	now := time.Now()

	if err := seedPermissions(ctx, queries, now); err != nil {
		return err
	}
	if err := seedRoles(ctx, queries, now); err != nil {
		return err
	}
	return seedAdmin(ctx, queries, now)
}

// seedPermissions inserts the module.action catalog. The unique index
// on (module, action) keeps reruns idempotent.
func seedPermissions(ctx context.Context, queries *Queries, now time.Time) error {
	for _, p := range model.PermissionCatalog() {
		err := queries.CreatePermission(ctx, CreatePermissionParams{
			Module:    p.Module,
			Action:    p.Action,
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("seeding permission %s: %w", model.PermissionName(p.Module, p.Action), err)
		}
	}
	return nil
}

// seedRoles creates the built-in roles and their permission grants.
// super_admin carries no explicit grants; it bypasses permission checks
// entirely.
func seedRoles(ctx context.Context, queries *Queries, now time.Time) error {
	roles := []struct {
		name        string
		description string
		grants      func(model.Permission) bool
	}{
		{model.RoleSuperAdmin, "Full access to everything", nil},
		{model.RoleAdmin, "Manage all content and users", func(model.Permission) bool {
			return true
		}},
		{model.RoleEditor, "Create and edit content", func(p model.Permission) bool {
			switch p.Module {
			case model.ModuleUsers, model.ModuleRoles, model.ModuleAPIKeys:
				return false
			}
			return p.Action != model.ActionDelete
		}},
		{model.RoleViewer, "Read-only access", func(p model.Permission) bool {
			return p.Action == model.ActionRead
		}},
	}

	catalog := model.PermissionCatalog()
	for _, r := range roles {
		role, err := queries.GetRoleByName(ctx, r.name)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("checking for role %s: %w", r.name, err)
		}

		role, err = queries.CreateRole(ctx, CreateRoleParams{
			Name:        r.name,
			Description: r.description,
			IsSystem:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("creating role %s: %w", r.name, err)
		}

		if r.grants == nil {
			continue
		}
		for _, p := range catalog {
			if !r.grants(p) {
				continue
			}
			perm, err := queries.GetPermission(ctx, p.Module, p.Action)
			if err != nil {
				return fmt.Errorf("looking up permission %s: %w", model.PermissionName(p.Module, p.Action), err)
			}
			if err := queries.AddRolePermission(ctx, role.ID, perm.ID); err != nil {
				return fmt.Errorf("granting %s to %s: %w", model.PermissionName(p.Module, p.Action), r.name, err)
			}
		}
	}
	return nil
}

// seedAdmin creates the default super admin account on first run.
func seedAdmin(ctx context.Context, queries *Queries, now time.Time) error {
	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultAdminEmail,
		PasswordHash: passwordHash,
		Name:         DefaultAdminName,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	superAdmin, err := queries.GetRoleByName(ctx, model.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("looking up super admin role: %w", err)
	}
	if err := queries.AddUserRole(ctx, user.ID, superAdmin.ID); err != nil {
		return fmt.Errorf("assigning super admin role: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}
