// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides the HTTP middleware for Galleria:
// session auth, permission gates, API key checks, rate limiting, and
// the request hardening applied to every route.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

// ContextKey is the private key type for request context values.
type ContextKey string

const (
	// ContextKeyUser holds the signed-in model.User.
	ContextKeyUser ContextKey = "user"
	// ContextKeyPerms holds the user's *auth.PermissionSet.
	ContextKeyPerms ContextKey = "perms"
)

// SessionKeyUserID is the session key holding the signed-in user's ID.
const SessionKeyUserID = "user_id"

// permLoadTimeout bounds the permission snapshot bootstrap so a slow
// cache backend cannot stall admin requests.
const permLoadTimeout = 3 * time.Second

// RequireAuth creates middleware that requires an authenticated session.
func RequireAuth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), SessionKeyUserID) <= 0 {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser creates middleware that loads the current user and their
// permission snapshot into the request context. The snapshot is served
// from the typed cache keyed by user ID and rebuilt from the database on
// a miss, so role changes take effect after the cached entry is
// invalidated. Use after RequireAuth.
func LoadUser(sm *scs.SessionManager, db *sql.DB, perms *cache.TypedCache[auth.PermissionSet]) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			// A session naming a removed or disabled user is dead
			// weight either way, so destroy it on both paths.
			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil || !user.Active {
				_ = sm.Destroy(r.Context())
				msg := "Session is no longer valid"
				if err == nil {
					msg = "Account is disabled"
				}
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", msg, nil)
				return
			}

			loadCtx, cancel := context.WithTimeout(r.Context(), permLoadTimeout)
			set, err := perms.GetOrSet(loadCtx, cache.UserPermissionsKey(userID), func() (*auth.PermissionSet, error) {
				roles, err := queries.GetUserRoles(loadCtx, userID)
				if err != nil {
					return nil, err
				}
				grants, err := queries.GetUserPermissions(loadCtx, userID)
				if err != nil {
					return nil, err
				}
				return auth.NewPermissionSet(roles, grants), nil
			})
			cancel()
			if err != nil {
				slog.Error("failed to load permission snapshot", "error", err, "user_id", userID)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load permissions", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = context.WithValue(ctx, ContextKeyPerms, set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the signed-in user from the request context, nil when
// absent.
func GetUser(r *http.Request) *model.User {
	if user, ok := r.Context().Value(ContextKeyUser).(model.User); ok {
		return &user
	}
	return nil
}

// GetUserID returns the signed-in user's ID, or 0 when no user is in
// context.
func GetUserID(r *http.Request) int64 {
	user := GetUser(r)
	if user == nil {
		return 0
	}
	return user.ID
}

// GetUserIDPtr returns the user ID as a pointer for optional columns,
// nil when no user is in context.
func GetUserIDPtr(r *http.Request) *int64 {
	user := GetUser(r)
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}

// GetUserEmail returns the signed-in user's email, or empty when absent.
func GetUserEmail(r *http.Request) string {
	user := GetUser(r)
	if user == nil {
		return ""
	}
	return user.Email
}

// GetPermissions retrieves the permission snapshot from the request
// context. Returns nil if none is in context; snapshot checks treat a
// nil receiver as denying everything.
func GetPermissions(r *http.Request) *auth.PermissionSet {
	if set, ok := r.Context().Value(ContextKeyPerms).(*auth.PermissionSet); ok {
		return set
	}
	return nil
}

// logDenial records a 403 in the application log and, when an activity
// service is wired, the admin-visible activity log.
func logDenial(r *http.Request, activity *service.ActivityService, userID int64, required string) {
	slog.Warn("access denied",
		"status", http.StatusForbidden,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", userID,
		"permission", required,
		"remote_addr", r.RemoteAddr,
	)
	if activity == nil {
		return
	}
	metadata := map[string]any{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     http.StatusForbidden,
		"permission": required,
	}
	_ = activity.LogAuth(r.Context(), model.ActivityLevelWarning, "Access denied: missing permission", &userID, ClientIP(r), r.UserAgent(), metadata)
}

// RequirePermission creates middleware that requires the module.action
// permission. Use after LoadUser.
func RequirePermission(module, action string) func(http.Handler) http.Handler {
	return RequirePermissionWithLog(module, action, nil)
}

// RequirePermissionWithLog creates middleware that requires the
// module.action permission and records denials. If activity is provided,
// 403 responses are also written to the activity log (visible in the
// admin panel).
func RequirePermissionWithLog(module, action string, activity *service.ActivityService) func(http.Handler) http.Handler {
	permission := model.PermissionName(module, action)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if !GetPermissions(r).HasPermission(module, action) {
				logDenial(r, activity, user.ID, permission)
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Missing required permission: "+permission, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAllPermissions creates middleware that requires every listed
// capability at once. Used for bulk operations spanning modules, such
// as content export and import. Use after LoadUser.
func RequireAllPermissions(activity *service.ActivityService, perms ...auth.Perm) func(http.Handler) http.Handler {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = model.PermissionName(p.Module, p.Action)
	}
	required := strings.Join(names, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if !GetPermissions(r).HasAllPermissions(perms...) {
				logDenial(r, activity, user.ID, required)
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Missing required permissions: "+required, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
