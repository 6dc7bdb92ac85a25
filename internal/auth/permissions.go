// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"github.com/galleria-dev/galleria/internal/model"
)

// Perm names a single module.action capability to check.
type Perm struct {
	Module string
	Action string
}

// PermissionSet is a snapshot of a user's effective permissions, built
// from the union of all assigned roles' permission sets. It is loaded
// once per session and rebuilt on explicit refresh, sign-out or any
// role/permission mutation. All checks are pure reads over the snapshot.
type PermissionSet struct {
	SuperAdmin bool                `json:"super_admin"`
	Names      map[string]struct{} `json:"names"`
}

// NewPermissionSet builds a snapshot from the user's roles and their
// permissions. Holding the super admin role grants everything.
func NewPermissionSet(roles []model.Role, perms []model.Permission) *PermissionSet {
	set := &PermissionSet{
		Names: make(map[string]struct{}, len(perms)),
	}
	for _, r := range roles {
		if r.Name == model.RoleSuperAdmin {
			set.SuperAdmin = true
			break
		}
	}
	for _, p := range perms {
		set.Names[p.Name()] = struct{}{}
	}
	return set
}

// HasPermission reports whether the snapshot grants module.action.
// Super admins pass unconditionally.
func (s *PermissionSet) HasPermission(module, action string) bool {
	if s == nil {
		return false
	}
	if s.SuperAdmin {
		return true
	}
	_, ok := s.Names[model.PermissionName(module, action)]
	return ok
}

// HasAnyPermission reports whether any of the listed capabilities is
// granted, with the same super admin short-circuit.
func (s *PermissionSet) HasAnyPermission(perms ...Perm) bool {
	if s == nil {
		return false
	}
	if s.SuperAdmin {
		return true
	}
	for _, p := range perms {
		if s.HasPermission(p.Module, p.Action) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every listed capability is granted,
// with the same super admin short-circuit. An empty list is granted.
func (s *PermissionSet) HasAllPermissions(perms ...Perm) bool {
	if s == nil {
		return false
	}
	if s.SuperAdmin {
		return true
	}
	for _, p := range perms {
		if !s.HasPermission(p.Module, p.Action) {
			return false
		}
	}
	return true
}

// List returns the granted permission names in no particular order.
// Super admin snapshots report only the wildcard marker.
func (s *PermissionSet) List() []string {
	if s == nil {
		return nil
	}
	if s.SuperAdmin {
		return []string{"*"}
	}
	names := make([]string, 0, len(s.Names))
	for name := range s.Names {
		names = append(names, name)
	}
	return names
}
