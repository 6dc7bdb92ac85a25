// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Promotion lifecycle statuses. Transitions: staging -> published ->
// expired, with republish (expired -> published) allowed. The first
// transition to published sets PublishedAt; it is never cleared or reset
// by later edits.
const (
	PromotionStatusStaging   = "staging"
	PromotionStatusPublished = "published"
	PromotionStatusExpired   = "expired"
)

// Promotion represents a tenant or mall-wide promotional campaign.
type Promotion struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Summary     string        `json:"summary"`
	Body        string        `json:"body"`
	TenantID    sql.NullInt64 `json:"tenant_id,omitempty"`
	Status      string        `json:"status"`
	Featured    bool          `json:"featured"`
	StartsAt    time.Time     `json:"starts_at"`
	EndsAt      sql.NullTime  `json:"ends_at,omitempty"`
	PublishedAt sql.NullTime  `json:"published_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsPublished returns true if the promotion is live.
func (p *Promotion) IsPublished() bool {
	return p.Status == PromotionStatusPublished
}

// IsExpired returns true if the promotion has been expired.
func (p *Promotion) IsExpired() bool {
	return p.Status == PromotionStatusExpired
}

// ValidPromotionStatus reports whether s is a known lifecycle status.
func ValidPromotionStatus(s string) bool {
	switch s {
	case PromotionStatusStaging, PromotionStatusPublished, PromotionStatusExpired:
		return true
	}
	return false
}
