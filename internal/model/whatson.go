// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// What's On item types. Each feed entry references a row of one of
// these content types.
const (
	WhatsOnTypeEvent     = "event"
	WhatsOnTypePost      = "post"
	WhatsOnTypePromotion = "promotion"
)

// WhatsOnItem is a curated homepage feed entry. Position orders the
// feed; pinned entries sort before the rest.
type WhatsOnItem struct {
	ID        int64     `json:"id"`
	ItemType  string    `json:"item_type"`
	ItemID    int64     `json:"item_id"`
	Position  int64     `json:"position"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidWhatsOnType reports whether t is a known feed item type.
func ValidWhatsOnType(t string) bool {
	switch t {
	case WhatsOnTypeEvent, WhatsOnTypePost, WhatsOnTypePromotion:
		return true
	}
	return false
}
