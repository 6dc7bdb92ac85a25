// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Permission modules.
const (
	ModuleEvents     = "events"
	ModuleTenants    = "tenants"
	ModulePosts      = "posts"
	ModulePromotions = "promotions"
	ModuleVIPTiers   = "vip_tiers"
	ModuleWhatsOn    = "whats_on"
	ModuleActivity   = "activity"
	ModuleUsers      = "users"
	ModuleRoles      = "roles"
	ModuleAPIKeys    = "api_keys"
	ModuleDashboard  = "dashboard"
)

// Permission actions.
const (
	ActionRead    = "read"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionPublish = "publish"
)

// Permission is a single module.action capability. The (module, action)
// pair is unique.
type Permission struct {
	ID          int64     `json:"id"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the canonical "module.action" permission name.
func (p *Permission) Name() string {
	return PermissionName(p.Module, p.Action)
}

// PermissionName builds the canonical "module.action" name.
func PermissionName(module, action string) string {
	return module + "." + action
}

// PermissionCatalog returns the full set of permissions the backend knows
// about, in seed order. Publish applies only to content that has a
// publish lifecycle.
func PermissionCatalog() []Permission {
	crud := []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
	crudPublish := []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionPublish}
	type moduleSpec struct {
		module  string
		actions []string
	}
	specs := []moduleSpec{
		{ModuleEvents, crudPublish},
		{ModuleTenants, crudPublish},
		{ModulePosts, crudPublish},
		{ModulePromotions, crudPublish},
		{ModuleVIPTiers, crud},
		{ModuleWhatsOn, crud},
		{ModuleActivity, []string{ActionRead, ActionDelete}},
		{ModuleUsers, crud},
		{ModuleRoles, crud},
		{ModuleAPIKeys, crud},
		{ModuleDashboard, []string{ActionRead}},
	}

	var catalog []Permission
	for _, s := range specs {
		for _, a := range s.actions {
			catalog = append(catalog, Permission{Module: s.module, Action: a})
		}
	}
	return catalog
}
