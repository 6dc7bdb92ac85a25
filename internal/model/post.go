// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Post represents a blog post on the mall site.
type Post struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Body        string        `json:"body"`
	Status      string        `json:"status"`
	Featured    bool          `json:"featured"`
	AuthorID    sql.NullInt64 `json:"author_id,omitempty"`
	PublishedAt sql.NullTime  `json:"published_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsPublished reports whether the post has been published.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// IsDraft returns true if the post is a draft.
func (p *Post) IsDraft() bool {
	return p.Status == StatusDraft
}
