// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transfer moves Galleria content between installations as a
// single JSON document. Entities are keyed by slug so an export can be
// replayed into a database with different row IDs.
package transfer

import "time"

// ExportVersion names the document layout. Importers refuse anything
// newer than they know.
const ExportVersion = "1.0"

// ExportData is the complete export document.
type ExportData struct {
	Version    string            `json:"version"`
	UUID       string            `json:"uuid"`
	ExportedAt time.Time         `json:"exported_at"`
	Counts     map[string]int    `json:"counts"`
	Tenants    []ExportTenant    `json:"tenants,omitempty"`
	Events     []ExportEvent     `json:"events,omitempty"`
	Posts      []ExportPost      `json:"posts,omitempty"`
	Promotions []ExportPromotion `json:"promotions,omitempty"`
	VIPTiers   []ExportVIPTier   `json:"vip_tiers,omitempty"`
	Feed       []ExportFeedItem  `json:"feed,omitempty"`
}

// ExportTenant is a storefront directory entry.
type ExportTenant struct {
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Floor       string    `json:"floor,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Status      string    `json:"status"`
	Featured    bool      `json:"featured"`
	OpensAt     string    `json:"opens_at,omitempty"`
	ClosesAt    string    `json:"closes_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExportEvent is a mall event. Authors are local admin accounts and do
// not travel with content.
type ExportEvent struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body,omitempty"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ExportPost is a blog post.
type ExportPost struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Body        string     `json:"body,omitempty"`
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ExportPromotion is a promotion. TenantSlug references the linked
// storefront by slug; empty means mall-wide.
type ExportPromotion struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body,omitempty"`
	TenantSlug  string     `json:"tenant_slug,omitempty"`
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ExportVIPTier is a loyalty tier.
type ExportVIPTier struct {
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Rank      int64     `json:"rank"`
	MinPoints int64     `json:"min_points"`
	Color     string    `json:"color,omitempty"`
	Benefits  []string  `json:"benefits,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportFeedItem is a What's On entry referencing content by type and
// slug. Array order is feed order.
type ExportFeedItem struct {
	ItemType string `json:"item_type"`
	Slug     string `json:"slug"`
	Pinned   bool   `json:"pinned"`
}

// ExportOptions selects the sections an export carries.
type ExportOptions struct {
	IncludeTenants    bool   `json:"include_tenants"`
	IncludeEvents     bool   `json:"include_events"`
	IncludePosts      bool   `json:"include_posts"`
	IncludePromotions bool   `json:"include_promotions"`
	IncludeVIPTiers   bool   `json:"include_vip_tiers"`
	IncludeFeed       bool   `json:"include_feed"`
	ContentStatus     string `json:"content_status"` // "all" or "published"
}

// DefaultExportOptions selects every section with no status filter.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeTenants:    true,
		IncludeEvents:     true,
		IncludePosts:      true,
		IncludePromotions: true,
		IncludeVIPTiers:   true,
		IncludeFeed:       true,
		ContentStatus:     "all",
	}
}

// ConflictStrategy selects what happens when an imported slug already
// exists.
type ConflictStrategy string

const (
	// ConflictSkip leaves existing rows untouched.
	ConflictSkip ConflictStrategy = "skip"
	// ConflictOverwrite updates existing rows with imported values.
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// ImportOptions configures an import run.
type ImportOptions struct {
	DryRun           bool             `json:"dry_run"`
	ConflictStrategy ConflictStrategy `json:"conflict_strategy"`
	ImportTenants    bool             `json:"import_tenants"`
	ImportEvents     bool             `json:"import_events"`
	ImportPosts      bool             `json:"import_posts"`
	ImportPromotions bool             `json:"import_promotions"`
	ImportVIPTiers   bool             `json:"import_vip_tiers"`
	ImportFeed       bool             `json:"import_feed"`
}

// DefaultImportOptions returns options that import everything, skipping
// rows that already exist.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		DryRun:           false,
		ConflictStrategy: ConflictSkip,
		ImportTenants:    true,
		ImportEvents:     true,
		ImportPosts:      true,
		ImportPromotions: true,
		ImportVIPTiers:   true,
		ImportFeed:       true,
	}
}

// ImportError describes one entity that could not be imported.
type ImportError struct {
	Entity  string `json:"entity"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Success bool           `json:"success"`
	DryRun  bool           `json:"dry_run"`
	Created map[string]int `json:"created"`
	Updated map[string]int `json:"updated"`
	Skipped map[string]int `json:"skipped"`
	Errors  []ImportError  `json:"errors,omitempty"`
}

// NewImportResult creates an empty result.
func NewImportResult(dryRun bool) *ImportResult {
	return &ImportResult{
		Success: true,
		DryRun:  dryRun,
		Created: make(map[string]int),
		Updated: make(map[string]int),
		Skipped: make(map[string]int),
	}
}

// IncrementCreated counts a newly created entity.
func (r *ImportResult) IncrementCreated(entity string) {
	r.Created[entity]++
}

// IncrementUpdated counts an overwritten entity.
func (r *ImportResult) IncrementUpdated(entity string) {
	r.Updated[entity]++
}

// IncrementSkipped counts an entity left untouched.
func (r *ImportResult) IncrementSkipped(entity string) {
	r.Skipped[entity]++
}

// AddError records a failed entity and marks the run unsuccessful.
func (r *ImportResult) AddError(entity, id, message string) {
	r.Success = false
	r.Errors = append(r.Errors, ImportError{Entity: entity, ID: id, Message: message})
}

// TotalCreated sums created counts across entity types.
func (r *ImportResult) TotalCreated() int {
	total := 0
	for _, n := range r.Created {
		total += n
	}
	return total
}

// TotalUpdated sums updated counts across entity types.
func (r *ImportResult) TotalUpdated() int {
	total := 0
	for _, n := range r.Updated {
		total += n
	}
	return total
}

// TotalSkipped sums skipped counts across entity types.
func (r *ImportResult) TotalSkipped() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}
