// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"
)

// VIPTier represents a loyalty program tier. Rank orders tiers from
// lowest to highest and is unique.
type VIPTier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Rank      int64     `json:"rank"`
	MinPoints int64     `json:"min_points"`
	Color     string    `json:"color"`
	Benefits  string    `json:"-"` // JSON array of strings
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BenefitList parses the stored benefits JSON into a slice.
func (t *VIPTier) BenefitList() []string {
	var benefits []string
	if t.Benefits == "" || t.Benefits == "[]" {
		return benefits
	}
	_ = json.Unmarshal([]byte(t.Benefits), &benefits)
	return benefits
}

// BenefitsToJSON serializes a benefit list for storage.
func BenefitsToJSON(benefits []string) (string, error) {
	if len(benefits) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(benefits)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
