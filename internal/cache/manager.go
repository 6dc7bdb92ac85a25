// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// Well-known cache keys for Galleria's cached payloads.
const (
	// KeyWhatsOnFeed holds the assembled What's On feed payload.
	KeyWhatsOnFeed = "feed:whats-on"

	// KeyDashboard holds the aggregated dashboard summary.
	KeyDashboard = "dashboard:summary"

	// permKeyPrefix scopes per-user permission snapshots.
	permKeyPrefix = "perm:user:"
)

// UserPermissionsKey returns the cache key for a user's permission snapshot.
func UserPermissionsKey(userID int64) string {
	return fmt.Sprintf("%s%d", permKeyPrefix, userID)
}

// Manager wraps a cache backend with invalidation helpers for the
// application's cached payloads. Handlers call the Invalidate* methods
// after mutations so stale permission snapshots, feed payloads and
// dashboard summaries never outlive the data they were built from.
type Manager struct {
	backend Cacher
}

// NewManager creates a manager over the given cache backend.
func NewManager(backend Cacher) *Manager {
	return &Manager{backend: backend}
}

// Backend returns the underlying cache for typed wrappers.
func (m *Manager) Backend() Cacher {
	return m.backend
}

// InvalidateUserPermissions drops the cached permission snapshot for one user.
// Call after changing the user's role assignments or deactivating the user.
func (m *Manager) InvalidateUserPermissions(ctx context.Context, userID int64) {
	if err := m.backend.Delete(ctx, UserPermissionsKey(userID)); err != nil {
		slog.Warn("failed to invalidate permission snapshot", "user_id", userID, "error", err)
	}
}

// InvalidateAllPermissions drops every cached permission snapshot.
// Call after editing a role's permission set, since any user holding the
// role is affected.
func (m *Manager) InvalidateAllPermissions(ctx context.Context) {
	pd, ok := m.backend.(PrefixDeleter)
	if !ok {
		// Backend cannot delete by prefix; drop everything instead.
		if err := m.backend.Clear(ctx); err != nil {
			slog.Warn("failed to clear cache", "error", err)
		}
		return
	}
	if err := pd.DeleteByPrefix(ctx, permKeyPrefix); err != nil {
		slog.Warn("failed to invalidate permission snapshots", "error", err)
	}
}

// InvalidateFeed drops the cached What's On feed payload.
// Call after any feed item mutation or reorder.
func (m *Manager) InvalidateFeed(ctx context.Context) {
	if err := m.backend.Delete(ctx, KeyWhatsOnFeed); err != nil {
		slog.Warn("failed to invalidate feed cache", "error", err)
	}
}

// InvalidateDashboard drops the cached dashboard summary.
func (m *Manager) InvalidateDashboard(ctx context.Context) {
	if err := m.backend.Delete(ctx, KeyDashboard); err != nil {
		slog.Warn("failed to invalidate dashboard cache", "error", err)
	}
}

// InvalidateContent drops caches derived from content tables.
// Call after creating, updating, publishing or deleting events, tenants,
// posts, promotions or VIP tiers.
func (m *Manager) InvalidateContent(ctx context.Context) {
	m.InvalidateFeed(ctx)
	m.InvalidateDashboard(ctx)
}

// ClearAll clears the entire cache and resets statistics.
func (m *Manager) ClearAll(ctx context.Context) {
	if err := m.backend.Clear(ctx); err != nil {
		slog.Warn("failed to clear cache", "error", err)
		return
	}
	if sp, ok := m.backend.(StatsProvider); ok {
		sp.ResetStats()
	}
	slog.Info("cache cleared")
}

// Stats returns backend statistics when the backend provides them.
func (m *Manager) Stats() (Stats, bool) {
	sp, ok := m.backend.(StatsProvider)
	if !ok {
		return Stats{}, false
	}
	return sp.Stats(), true
}

// Close releases the backend's resources.
func (m *Manager) Close() error {
	return m.backend.Close()
}
