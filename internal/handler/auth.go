// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// AuthHandler owns the session lifecycle routes under /auth.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	activity        *service.ActivityService
	cacheManager    *cache.Manager
	perms           *cache.TypedCache[auth.PermissionSet]
}

// NewAuthHandler assembles the dependency set behind the auth routes.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, lp *middleware.LoginProtection, activity *service.ActivityService, cm *cache.Manager, perms *cache.TypedCache[auth.PermissionSet]) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		sessionManager:  sm,
		loginProtection: lp,
		activity:        activity,
		cacheManager:    cm,
		perms:           perms,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Roles       []string   `json:"roles,omitempty"`
}

func userToResponse(u model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: util.TimePtrFromNull(u.LastLoginAt),
	}
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is the payload returned by login, me and refresh.
type SessionResponse struct {
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Email == "" {
		fieldErrors["email"] = "Email is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	clientIP := middleware.ClientIP(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(req.Email); locked {
			_ = h.activity.LogAuth(r.Context(), model.ActivityLevelWarning, "Login attempt on locked account", nil, clientIP, r.UserAgent(), map[string]any{"email": req.Email})
			WriteRateLimited(w, "Account temporarily locked. Try again in "+formatDuration(remaining)+".")
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", req.Email)
			_ = h.activity.LogAuth(r.Context(), model.ActivityLevelWarning, "Login failed: user not found", nil, clientIP, r.UserAgent(), map[string]any{"email": req.Email})
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record the failure even for unknown emails to prevent enumeration.
		h.recordFailure(w, req.Email)
		return
	}

	valid, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		WriteUnauthorized(w, "Invalid email or password")
		return
	}
	if !valid {
		slog.Debug("invalid password attempt", "email", req.Email)
		_ = h.activity.LogAuth(r.Context(), model.ActivityLevelWarning, "Login failed: invalid password", &user.ID, clientIP, r.UserAgent(), map[string]any{"email": req.Email})
		h.recordFailure(w, req.Email)
		return
	}

	if !user.Active {
		_ = h.activity.LogAuth(r.Context(), model.ActivityLevelWarning, "Login attempt on disabled account", &user.ID, clientIP, r.UserAgent(), map[string]any{"email": req.Email})
		WriteForbidden(w, "Account is disabled")
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(req.Email)
	}

	now := time.Now().UTC()

	// A successful login is the one moment the plaintext is in hand, so
	// hashes on stale parameters get upgraded here.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, hashErr := auth.HashPassword(req.Password); hashErr == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, newHash, now); err != nil {
				slog.Error("password upgrade not stored", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password hash upgraded", "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), user.ID, now); err != nil {
		// Not worth failing the login over.
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	// Regenerate the session ID to prevent session fixation.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("session renewal error", "error", err)
		WriteInternalError(w, "Failed to establish session")
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	set, err := h.loadPermissionSet(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load permissions at login", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to load permissions")
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.activity.LogAuth(r.Context(), model.ActivityLevelInfo, "User logged in", &user.ID, clientIP, r.UserAgent(), map[string]any{"email": user.Email})

	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	WriteSuccess(w, SessionResponse{
		User:        userToResponse(user),
		Permissions: set.List(),
	}, nil)
}

// recordFailure counts a failed attempt and writes the matching error
// response: 429 when the attempt triggers a lockout, 401 otherwise. The
// remaining-attempt count is surfaced once it runs low.
func (h *AuthHandler) recordFailure(w http.ResponseWriter, email string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			WriteRateLimited(w, "Too many failed attempts. Account locked for "+formatDuration(lockDuration)+".")
			return
		}
		remaining := h.loginProtection.GetRemainingAttempts(email)
		if remaining <= 3 && remaining > 0 {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid email or password",
				map[string]string{"attempts_remaining": strconv.Itoa(remaining)})
			return
		}
	}
	WriteUnauthorized(w, "Invalid email or password")
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if userID > 0 {
		_ = h.activity.LogAuth(r.Context(), model.ActivityLevelInfo, "User logged out", &userID, middleware.ClientIP(r), r.UserAgent(), nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
		WriteInternalError(w, "Failed to end session")
		return
	}

	if userID > 0 {
		h.cacheManager.InvalidateUserPermissions(r.Context(), userID)
		slog.Info("user logged out", "user_id", userID)
	}

	WriteNoContent(w)
}

// Me handles GET /auth/me. The route runs behind RequireAuth and
// LoadUser, so the user and permission snapshot are already in context.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	resp := userToResponse(*user)
	roles, err := h.queries.GetUserRoles(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load roles", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to load roles")
		return
	}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}

	var permissions []string
	if set := middleware.GetPermissions(r); set != nil {
		permissions = set.List()
	}

	WriteSuccess(w, SessionResponse{
		User:        resp,
		Permissions: permissions,
	}, nil)
}

// Refresh handles POST /auth/refresh. It discards the cached permission
// snapshot and rebuilds it from current role assignments, so a user can
// pick up permission changes without signing out.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	h.cacheManager.InvalidateUserPermissions(r.Context(), user.ID)

	set, err := h.loadPermissionSet(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to rebuild permission snapshot", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to refresh permissions")
		return
	}

	WriteSuccess(w, SessionResponse{
		User:        userToResponse(*user),
		Permissions: set.List(),
	}, nil)
}

// loadPermissionSet builds the user's permission snapshot and caches it.
func (h *AuthHandler) loadPermissionSet(ctx context.Context, userID int64) (*auth.PermissionSet, error) {
	return h.perms.GetOrSet(ctx, cache.UserPermissionsKey(userID), func() (*auth.PermissionSet, error) {
		roles, err := h.queries.GetUserRoles(ctx, userID)
		if err != nil {
			return nil, err
		}
		grants, err := h.queries.GetUserPermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
		return auth.NewPermissionSet(roles, grants), nil
	})
}

// formatDuration renders d the way the lockout messages need it,
// "15 minutes" style.
func formatDuration(d time.Duration) string {
	unit, n := "hour", int(d.Hours())
	switch {
	case d < time.Minute:
		unit, n = "second", int(d.Seconds())
	case d < time.Hour:
		unit, n = "minute", int(d.Minutes())
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
