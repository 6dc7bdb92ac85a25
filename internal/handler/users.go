// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

// UsersHandler handles admin user management routes.
type UsersHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewUsersHandler builds the user management handler.
func NewUsersHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *UsersHandler {
	return &UsersHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// CreateUserRequest is the request body for creating an admin user.
type CreateUserRequest struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Active   *bool   `json:"active,omitempty"`
	RoleIDs  []int64 `json:"role_ids,omitempty"`
}

// UpdateUserRequest is the request body for partial user updates. A
// password, when present, replaces the stored hash.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	Password *string `json:"password,omitempty"`
}

// AssignRolesRequest is the request body for replacing a user's roles.
type AssignRolesRequest struct {
	RoleIDs []int64 `json:"role_ids"`
}

// List handles GET /admin/api/v1/users. Each user carries their role
// names.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, offset := Pagination(r)

	users, total, err := ListAndCount(
		func() ([]model.User, error) {
			return h.queries.ListUsers(r.Context(), store.ListUsersParams{Limit: int64(perPage), Offset: offset})
		},
		func() (int64, error) { return h.queries.CountUsers(r.Context()) },
	)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		WriteInternalError(w, "Failed to list users")
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp := userToResponse(u)
		roles, err := h.queries.GetUserRoles(r.Context(), u.ID)
		if err != nil {
			slog.Error("failed to load user roles", "error", err, "user_id", u.ID)
			WriteInternalError(w, "Failed to list users")
			return
		}
		for _, role := range roles {
			resp.Roles = append(resp.Roles, role.Name)
		}
		responses = append(responses, resp)
	}

	WriteSuccess(w, responses, ListMeta(total, page, perPage))
}

// Get handles GET /admin/api/v1/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}

	resp := userToResponse(user)
	roles, err := h.queries.GetUserRoles(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load user roles", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to retrieve user")
		return
	}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	WriteSuccess(w, resp, nil)
}

// Create handles POST /admin/api/v1/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Email == "" {
		fieldErrors["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		fieldErrors["email"] = "Invalid email address"
	}
	if req.Name == "" {
		fieldErrors["name"] = "Name is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	} else if len(req.Password) < 8 {
		fieldErrors["password"] = "Password must be at least 8 characters long"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if _, err := h.queries.GetUserByEmail(r.Context(), req.Email); err == nil {
		WriteValidationError(w, map[string]string{"email": "Email is already in use"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to check email", "error", err)
		WriteInternalError(w, "Failed to create user")
		return
	}

	if !h.validateRoleIDs(w, r, req.RoleIDs) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		WriteInternalError(w, "Failed to create user")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		WriteInternalError(w, "Failed to create user")
		return
	}

	resp := userToResponse(user)
	for _, roleID := range req.RoleIDs {
		if err := h.queries.AddUserRole(r.Context(), user.ID, roleID); err != nil {
			slog.Error("failed to assign role", "error", err, "user_id", user.ID, "role_id", roleID)
			WriteInternalError(w, "Failed to create user")
			return
		}
	}
	if len(req.RoleIDs) > 0 {
		roles, err := h.queries.GetUserRoles(r.Context(), user.ID)
		if err == nil {
			for _, role := range roles {
				resp.Roles = append(resp.Roles, role.Name)
			}
		}
	}

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelInfo, "User created: "+user.Email,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"target_user_id": user.ID})

	WriteCreated(w, resp)
}

// Update handles PUT /admin/api/v1/users/{id}. Deactivating a user
// invalidates their cached permission snapshot so open sessions lose
// access on the next request.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	params := store.UpdateUserParams{
		ID:        existing.ID,
		Email:     existing.Email,
		Name:      existing.Name,
		Active:    existing.Active,
		UpdatedAt: now,
	}

	fieldErrors := make(map[string]string)
	if req.Email != nil {
		if *req.Email == "" {
			fieldErrors["email"] = "Email is required"
		} else if _, err := mail.ParseAddress(*req.Email); err != nil {
			fieldErrors["email"] = "Invalid email address"
		}
		params.Email = *req.Email
	}
	if req.Name != nil {
		if *req.Name == "" {
			fieldErrors["name"] = "Name is required"
		}
		params.Name = *req.Name
	}
	if req.Active != nil {
		params.Active = *req.Active
	}
	if req.Password != nil && len(*req.Password) < 8 {
		fieldErrors["password"] = "Password must be at least 8 characters long"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if params.Email != existing.Email {
		if other, err := h.queries.GetUserByEmail(r.Context(), params.Email); err == nil && other.ID != existing.ID {
			WriteValidationError(w, map[string]string{"email": "Email is already in use"})
			return
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to check email", "error", err)
			WriteInternalError(w, "Failed to update user")
			return
		}
	}

	user, err := h.queries.UpdateUser(r.Context(), params)
	if err != nil {
		slog.Error("failed to update user", "error", err, "user_id", existing.ID)
		WriteInternalError(w, "Failed to update user")
		return
	}

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			WriteInternalError(w, "Failed to update user")
			return
		}
		if err := h.queries.UpdateUserPassword(r.Context(), user.ID, hash, now); err != nil {
			slog.Error("failed to update password", "error", err, "user_id", user.ID)
			WriteInternalError(w, "Failed to update user")
			return
		}
	}

	if req.Active != nil && !*req.Active {
		h.cacheManager.InvalidateUserPermissions(r.Context(), user.ID)
	}

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelInfo, "User updated: "+user.Email,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"target_user_id": user.ID})

	resp := userToResponse(user)
	roles, rolesErr := h.queries.GetUserRoles(r.Context(), user.ID)
	if rolesErr == nil {
		for _, role := range roles {
			resp.Roles = append(resp.Roles, role.Name)
		}
	}
	WriteSuccess(w, resp, nil)
}

// AssignRoles handles PUT /admin/api/v1/users/{id}/roles. The given set
// replaces all current assignments.
func (h *UsersHandler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req AssignRolesRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if !h.validateRoleIDs(w, r, req.RoleIDs) {
		return
	}
	if !h.guardLastSuperAdmin(w, r, existing.ID, req.RoleIDs) {
		return
	}

	if err := h.queries.DeleteUserRoles(r.Context(), existing.ID); err != nil {
		slog.Error("failed to clear roles", "error", err, "user_id", existing.ID)
		WriteInternalError(w, "Failed to assign roles")
		return
	}
	for _, roleID := range req.RoleIDs {
		if err := h.queries.AddUserRole(r.Context(), existing.ID, roleID); err != nil {
			slog.Error("failed to assign role", "error", err, "user_id", existing.ID, "role_id", roleID)
			WriteInternalError(w, "Failed to assign roles")
			return
		}
	}

	// The permission snapshot is stale the moment assignments change.
	h.cacheManager.InvalidateUserPermissions(r.Context(), existing.ID)

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelInfo, "User roles changed: "+existing.Email,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"target_user_id": existing.ID, "role_count": len(req.RoleIDs)})

	resp := userToResponse(existing)
	roles, err := h.queries.GetUserRoles(r.Context(), existing.ID)
	if err != nil {
		slog.Error("failed to load user roles", "error", err, "user_id", existing.ID)
		WriteInternalError(w, "Failed to assign roles")
		return
	}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	WriteSuccess(w, resp, nil)
}

// Delete handles DELETE /admin/api/v1/users/{id}. Users cannot delete
// themselves, and the last super admin cannot be removed.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if existing.ID == middleware.GetUserID(r) {
		WriteValidationError(w, map[string]string{"id": "You cannot delete your own account"})
		return
	}
	if !h.guardLastSuperAdmin(w, r, existing.ID, nil) {
		return
	}

	if err := h.queries.DeleteUser(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete user", "error", err, "user_id", existing.ID)
		WriteInternalError(w, "Failed to delete user")
		return
	}

	h.cacheManager.InvalidateUserPermissions(r.Context(), existing.ID)

	_ = h.activity.LogUser(r.Context(), model.ActivityLevelWarning, "User deleted: "+existing.Email,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"target_user_id": existing.ID})

	WriteNoContent(w)
}

// validateRoleIDs confirms every referenced role exists.
func (h *UsersHandler) validateRoleIDs(w http.ResponseWriter, r *http.Request, roleIDs []int64) bool {
	for _, roleID := range roleIDs {
		if _, err := h.queries.GetRoleByID(r.Context(), roleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				WriteValidationError(w, map[string]string{"role_ids": "Unknown role"})
				return false
			}
			slog.Error("failed to check role", "error", err, "role_id", roleID)
			WriteInternalError(w, "Failed to validate roles")
			return false
		}
	}
	return true
}

// guardLastSuperAdmin blocks removing the super_admin role from its
// only holder, which would lock everyone out of role management.
// newRoleIDs is nil when the user is being deleted outright.
func (h *UsersHandler) guardLastSuperAdmin(w http.ResponseWriter, r *http.Request, userID int64, newRoleIDs []int64) bool {
	superRole, err := h.queries.GetRoleByName(r.Context(), model.RoleSuperAdmin)
	if err != nil {
		slog.Error("failed to load super admin role", "error", err)
		WriteInternalError(w, "Failed to validate roles")
		return false
	}

	for _, roleID := range newRoleIDs {
		if roleID == superRole.ID {
			return true
		}
	}

	current, err := h.queries.GetUserRoles(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load user roles", "error", err, "user_id", userID)
		WriteInternalError(w, "Failed to validate roles")
		return false
	}
	holdsSuper := false
	for _, role := range current {
		if role.ID == superRole.ID {
			holdsSuper = true
			break
		}
	}
	if !holdsSuper {
		return true
	}

	holders, err := h.queries.CountUsersWithRole(r.Context(), superRole.ID)
	if err != nil {
		slog.Error("failed to count super admins", "error", err)
		WriteInternalError(w, "Failed to validate roles")
		return false
	}
	if holders <= 1 {
		WriteValidationError(w, map[string]string{"role_ids": "Cannot remove the last super admin"})
		return false
	}
	return true
}
