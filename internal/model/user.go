// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including User, Role, Tenant, Event and Promotion structures.
package model

import (
	"database/sql"
	"time"
)

// User represents an admin backend user account.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Name         string       `json:"name"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// UserWithRoles bundles a user with the roles assigned to it.
type UserWithRoles struct {
	User
	Roles []Role `json:"roles"`
}

// HasRole reports whether any assigned role matches name.
func (u *UserWithRoles) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the user holds the super admin role.
func (u *UserWithRoles) IsSuperAdmin() bool {
	return u.HasRole(RoleSuperAdmin)
}
