// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

// RolesHandler handles admin role and permission catalog routes.
type RolesHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewRolesHandler creates a new RolesHandler.
func NewRolesHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *RolesHandler {
	return &RolesHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// RoleResponse represents a role with its permission names.
type RoleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	UserCount   int64     `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRoleRequest is the request body for creating a role.
type CreateRoleRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	PermissionIDs []int64 `json:"permission_ids,omitempty"`
}

// UpdateRoleRequest is the request body for partial role updates.
type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SetPermissionsRequest is the request body for replacing a role's
// permission set.
type SetPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (h *RolesHandler) roleToResponse(r *http.Request, role model.Role) (RoleResponse, error) {
	resp := RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: []string{},
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}

	perms, err := h.queries.GetRolePermissions(r.Context(), role.ID)
	if err != nil {
		return resp, err
	}
	for i := range perms {
		resp.Permissions = append(resp.Permissions, perms[i].Name())
	}

	count, err := h.queries.CountUsersWithRole(r.Context(), role.ID)
	if err != nil {
		return resp, err
	}
	resp.UserCount = count
	return resp, nil
}

// List handles GET /admin/api/v1/roles. The handful of roles is
// returned whole.
func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.queries.ListRoles(r.Context())
	if err != nil {
		slog.Error("failed to list roles", "error", err)
		WriteInternalError(w, "Failed to list roles")
		return
	}

	responses := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp, err := h.roleToResponse(r, role)
		if err != nil {
			slog.Error("failed to load role details", "error", err, "role_id", role.ID)
			WriteInternalError(w, "Failed to list roles")
			return
		}
		responses = append(responses, resp)
	}
	WriteSuccess(w, responses, nil)
}

// Get handles GET /admin/api/v1/roles/{id}.
func (h *RolesHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, ok := requireEntityByID(w, r, "role", func(id int64) (model.Role, error) {
		return h.queries.GetRoleByID(r.Context(), id)
	})
	if !ok {
		return
	}

	resp, err := h.roleToResponse(r, role)
	if err != nil {
		slog.Error("failed to load role details", "error", err, "role_id", role.ID)
		WriteInternalError(w, "Failed to retrieve role")
		return
	}
	WriteSuccess(w, resp, nil)
}

// Create handles POST /admin/api/v1/roles. Created roles are never
// system roles.
func (h *RolesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.Name == "" {
		WriteValidationError(w, map[string]string{"name": "Name is required"})
		return
	}

	if _, err := h.queries.GetRoleByName(r.Context(), req.Name); err == nil {
		WriteValidationError(w, map[string]string{"name": "Role name is already in use"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to check role name", "error", err)
		WriteInternalError(w, "Failed to create role")
		return
	}

	if !h.validatePermissionIDs(w, r, req.PermissionIDs) {
		return
	}

	now := time.Now().UTC()
	role, err := h.queries.CreateRole(r.Context(), store.CreateRoleParams{
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		slog.Error("failed to create role", "error", err)
		WriteInternalError(w, "Failed to create role")
		return
	}

	for _, permID := range req.PermissionIDs {
		if err := h.queries.AddRolePermission(r.Context(), role.ID, permID); err != nil {
			slog.Error("failed to grant permission", "error", err, "role_id", role.ID, "permission_id", permID)
			WriteInternalError(w, "Failed to create role")
			return
		}
	}

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelInfo, "Role created: "+role.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"role_id": role.ID})

	resp, err := h.roleToResponse(r, role)
	if err != nil {
		slog.Error("failed to load role details", "error", err, "role_id", role.ID)
		WriteInternalError(w, "Failed to create role")
		return
	}
	WriteCreated(w, resp)
}

// Update handles PUT /admin/api/v1/roles/{id}. System role names are
// locked; only the description can change.
func (h *RolesHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "role", func(id int64) (model.Role, error) {
		return h.queries.GetRoleByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	params := store.UpdateRoleParams{
		ID:          existing.ID,
		Name:        existing.Name,
		Description: existing.Description,
		UpdatedAt:   time.Now().UTC(),
	}

	if req.Name != nil && *req.Name != existing.Name {
		if existing.IsSystem {
			WriteValidationError(w, map[string]string{"name": "System role names cannot be changed"})
			return
		}
		if *req.Name == "" {
			WriteValidationError(w, map[string]string{"name": "Name is required"})
			return
		}
		if _, err := h.queries.GetRoleByName(r.Context(), *req.Name); err == nil {
			WriteValidationError(w, map[string]string{"name": "Role name is already in use"})
			return
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to check role name", "error", err)
			WriteInternalError(w, "Failed to update role")
			return
		}
		params.Name = *req.Name
	}
	if req.Description != nil {
		params.Description = *req.Description
	}

	role, err := h.queries.UpdateRole(r.Context(), params)
	if err != nil {
		slog.Error("failed to update role", "error", err, "role_id", existing.ID)
		WriteInternalError(w, "Failed to update role")
		return
	}

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelInfo, "Role updated: "+role.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"role_id": role.ID})

	resp, err := h.roleToResponse(r, role)
	if err != nil {
		slog.Error("failed to load role details", "error", err, "role_id", role.ID)
		WriteInternalError(w, "Failed to update role")
		return
	}
	WriteSuccess(w, resp, nil)
}

// SetPermissions handles PUT /admin/api/v1/roles/{id}/permissions. The
// given set replaces the role's current grants. Every active session
// snapshot is invalidated since any user might hold this role.
func (h *RolesHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "role", func(id int64) (model.Role, error) {
		return h.queries.GetRoleByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if !h.validatePermissionIDs(w, r, req.PermissionIDs) {
		return
	}

	if err := h.queries.DeleteRolePermissions(r.Context(), existing.ID); err != nil {
		slog.Error("failed to clear permissions", "error", err, "role_id", existing.ID)
		WriteInternalError(w, "Failed to set permissions")
		return
	}
	for _, permID := range req.PermissionIDs {
		if err := h.queries.AddRolePermission(r.Context(), existing.ID, permID); err != nil {
			slog.Error("failed to grant permission", "error", err, "role_id", existing.ID, "permission_id", permID)
			WriteInternalError(w, "Failed to set permissions")
			return
		}
	}

	h.cacheManager.InvalidateAllPermissions(r.Context())

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelInfo, "Role permissions changed: "+existing.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"role_id": existing.ID, "permission_count": len(req.PermissionIDs)})

	resp, err := h.roleToResponse(r, existing)
	if err != nil {
		slog.Error("failed to load role details", "error", err, "role_id", existing.ID)
		WriteInternalError(w, "Failed to set permissions")
		return
	}
	WriteSuccess(w, resp, nil)
}

// Delete handles DELETE /admin/api/v1/roles/{id}. System roles and
// roles still assigned to users are protected.
func (h *RolesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "role", func(id int64) (model.Role, error) {
		return h.queries.GetRoleByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if existing.IsSystem {
		WriteValidationError(w, map[string]string{"id": "System roles cannot be deleted"})
		return
	}

	holders, err := h.queries.CountUsersWithRole(r.Context(), existing.ID)
	if err != nil {
		slog.Error("failed to count role holders", "error", err, "role_id", existing.ID)
		WriteInternalError(w, "Failed to delete role")
		return
	}
	if holders > 0 {
		WriteValidationError(w, map[string]string{"id": "Role is still assigned to users"})
		return
	}

	if err := h.queries.DeleteRole(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete role", "error", err, "role_id", existing.ID)
		WriteInternalError(w, "Failed to delete role")
		return
	}

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelWarning, "Role deleted: "+existing.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"role_id": existing.ID})

	WriteNoContent(w)
}

// ListPermissions handles GET /admin/api/v1/permissions. The catalog is
// seeded at startup and read-only at runtime.
func (h *RolesHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.queries.ListPermissions(r.Context())
	if err != nil {
		slog.Error("failed to list permissions", "error", err)
		WriteInternalError(w, "Failed to list permissions")
		return
	}
	WriteSuccess(w, perms, nil)
}

// validatePermissionIDs confirms every referenced permission exists in
// the catalog.
func (h *RolesHandler) validatePermissionIDs(w http.ResponseWriter, r *http.Request, permissionIDs []int64) bool {
	if len(permissionIDs) == 0 {
		return true
	}
	catalog, err := h.queries.ListPermissions(r.Context())
	if err != nil {
		slog.Error("failed to load permission catalog", "error", err)
		WriteInternalError(w, "Failed to validate permissions")
		return false
	}
	known := make(map[int64]bool, len(catalog))
	for _, p := range catalog {
		known[p.ID] = true
	}
	for _, id := range permissionIDs {
		if !known[id] {
			WriteValidationError(w, map[string]string{"permission_ids": "Unknown permission"})
			return false
		}
	}
	return true
}
