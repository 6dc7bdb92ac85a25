// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Content statuses shared by events, tenants, posts.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Event represents a mall event (fair, show, seasonal campaign).
type Event struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Summary     string        `json:"summary"`
	Body        string        `json:"body"`
	Location    string        `json:"location"`
	Status      string        `json:"status"`
	Featured    bool          `json:"featured"`
	StartAt     time.Time     `json:"start_at"`
	EndAt       sql.NullTime  `json:"end_at,omitempty"`
	PublishedAt sql.NullTime  `json:"published_at,omitempty"`
	CreatedBy   sql.NullInt64 `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsPublished returns true if the event is published.
func (e *Event) IsPublished() bool {
	return e.Status == StatusPublished
}
