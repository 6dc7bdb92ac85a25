// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Tenant categories shown in the storefront directory.
const (
	TenantCategoryFashion       = "fashion"
	TenantCategoryFood          = "food"
	TenantCategoryEntertainment = "entertainment"
	TenantCategoryServices      = "services"
	TenantCategoryLifestyle     = "lifestyle"
)

// Tenant represents a mall storefront/retailer record. The name is a
// domain term and has nothing to do with multi-tenancy.
type Tenant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Floor       string    `json:"floor"`
	Unit        string    `json:"unit"`
	Phone       string    `json:"phone"`
	Website     string    `json:"website"`
	Description string    `json:"description"`
	LogoURL     string    `json:"logo_url"`
	Status      string    `json:"status"`
	Featured    bool      `json:"featured"`
	OpensAt     string    `json:"opens_at"`
	ClosesAt    string    `json:"closes_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPublished returns true if the tenant is visible in the directory.
func (t *Tenant) IsPublished() bool {
	return t.Status == StatusPublished
}

// TenantCategories lists the valid tenant categories.
func TenantCategories() []string {
	return []string{
		TenantCategoryFashion,
		TenantCategoryFood,
		TenantCategoryEntertainment,
		TenantCategoryServices,
		TenantCategoryLifestyle,
	}
}
