// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// exportListLimit bounds per-section queries. A mall install has at
// most a few hundred rows per content type.
const exportListLimit = 10000

// Exporter assembles Galleria content into an export document.
type Exporter struct {
	store  *store.Queries
	logger *slog.Logger
}

// NewExporter builds an exporter reading through q.
func NewExporter(q *store.Queries, logger *slog.Logger) *Exporter {
	return &Exporter{store: q, logger: logger}
}

// Export generates an ExportData document based on the provided
// options. A section that fails to load is logged and left empty rather
// than failing the whole export.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) (*ExportData, error) {
	data := &ExportData{
		Version:    ExportVersion,
		UUID:       uuid.NewString(),
		ExportedAt: time.Now().UTC(),
	}

	if opts.IncludeTenants {
		if err := e.exportTenants(ctx, data, opts); err != nil {
			e.logger.Warn("failed to export tenants", "error", err)
		}
	}
	if opts.IncludeEvents {
		if err := e.exportEvents(ctx, data, opts); err != nil {
			e.logger.Warn("failed to export events", "error", err)
		}
	}
	if opts.IncludePosts {
		if err := e.exportPosts(ctx, data, opts); err != nil {
			e.logger.Warn("failed to export posts", "error", err)
		}
	}
	if opts.IncludePromotions {
		if err := e.exportPromotions(ctx, data, opts); err != nil {
			e.logger.Warn("failed to export promotions", "error", err)
		}
	}
	if opts.IncludeVIPTiers {
		if err := e.exportVIPTiers(ctx, data); err != nil {
			e.logger.Warn("failed to export vip tiers", "error", err)
		}
	}
	if opts.IncludeFeed {
		if err := e.exportFeed(ctx, data); err != nil {
			e.logger.Warn("failed to export feed", "error", err)
		}
	}

	data.Counts = map[string]int{
		"tenants":    len(data.Tenants),
		"events":     len(data.Events),
		"posts":      len(data.Posts),
		"promotions": len(data.Promotions),
		"vip_tiers":  len(data.VIPTiers),
		"feed":       len(data.Feed),
	}

	return data, nil
}

// ExportToWriter writes the export as indented JSON.
func (e *Exporter) ExportToWriter(ctx context.Context, opts ExportOptions, w io.Writer) error {
	doc, err := e.Export(ctx, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportToFile writes the export document to path, creating or
// truncating the file.
func (e *Exporter) ExportToFile(ctx context.Context, opts ExportOptions, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	return e.ExportToWriter(ctx, opts, out)
}

func (e *Exporter) exportTenants(ctx context.Context, data *ExportData, opts ExportOptions) error {
	params := store.ListTenantsParams{Limit: exportListLimit}
	if opts.ContentStatus == "published" {
		params.Status = model.StatusPublished
	}
	tenants, err := e.store.ListTenants(ctx, params)
	if err != nil {
		return err
	}

	data.Tenants = make([]ExportTenant, 0, len(tenants))
	for _, t := range tenants {
		data.Tenants = append(data.Tenants, ExportTenant{
			Name:        t.Name,
			Slug:        t.Slug,
			Category:    t.Category,
			Floor:       t.Floor,
			Unit:        t.Unit,
			Phone:       t.Phone,
			Website:     t.Website,
			Description: t.Description,
			LogoURL:     t.LogoURL,
			Status:      t.Status,
			Featured:    t.Featured,
			OpensAt:     t.OpensAt,
			ClosesAt:    t.ClosesAt,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	return nil
}

func (e *Exporter) exportEvents(ctx context.Context, data *ExportData, opts ExportOptions) error {
	params := store.ListEventsParams{Limit: exportListLimit}
	if opts.ContentStatus == "published" {
		params.Status = model.StatusPublished
	}
	events, err := e.store.ListEvents(ctx, params)
	if err != nil {
		return err
	}

	data.Events = make([]ExportEvent, 0, len(events))
	for _, ev := range events {
		data.Events = append(data.Events, ExportEvent{
			Title:       ev.Title,
			Slug:        ev.Slug,
			Summary:     ev.Summary,
			Body:        ev.Body,
			Location:    ev.Location,
			Status:      ev.Status,
			Featured:    ev.Featured,
			StartAt:     ev.StartAt,
			EndAt:       util.TimePtrFromNull(ev.EndAt),
			PublishedAt: util.TimePtrFromNull(ev.PublishedAt),
			CreatedAt:   ev.CreatedAt,
			UpdatedAt:   ev.UpdatedAt,
		})
	}
	return nil
}

func (e *Exporter) exportPosts(ctx context.Context, data *ExportData, opts ExportOptions) error {
	params := store.ListPostsParams{Limit: exportListLimit}
	if opts.ContentStatus == "published" {
		params.Status = model.StatusPublished
	}
	posts, err := e.store.ListPosts(ctx, params)
	if err != nil {
		return err
	}

	data.Posts = make([]ExportPost, 0, len(posts))
	for _, p := range posts {
		data.Posts = append(data.Posts, ExportPost{
			Title:       p.Title,
			Slug:        p.Slug,
			Excerpt:     p.Excerpt,
			Body:        p.Body,
			Status:      p.Status,
			Featured:    p.Featured,
			PublishedAt: util.TimePtrFromNull(p.PublishedAt),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return nil
}

func (e *Exporter) exportPromotions(ctx context.Context, data *ExportData, opts ExportOptions) error {
	params := store.ListPromotionsParams{Limit: exportListLimit}
	if opts.ContentStatus == "published" {
		params.Status = model.PromotionStatusPublished
	}
	promotions, err := e.store.ListPromotions(ctx, params)
	if err != nil {
		return err
	}

	tenantSlugs, err := e.buildTenantSlugMap(ctx)
	if err != nil {
		e.logger.Warn("failed to resolve storefront slugs", "error", err)
		tenantSlugs = make(map[int64]string)
	}

	data.Promotions = make([]ExportPromotion, 0, len(promotions))
	for _, p := range promotions {
		exported := ExportPromotion{
			Title:       p.Title,
			Slug:        p.Slug,
			Summary:     p.Summary,
			Body:        p.Body,
			Status:      p.Status,
			Featured:    p.Featured,
			StartsAt:    p.StartsAt,
			EndsAt:      util.TimePtrFromNull(p.EndsAt),
			PublishedAt: util.TimePtrFromNull(p.PublishedAt),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		if p.TenantID.Valid {
			exported.TenantSlug = tenantSlugs[p.TenantID.Int64]
		}
		data.Promotions = append(data.Promotions, exported)
	}
	return nil
}

func (e *Exporter) exportVIPTiers(ctx context.Context, data *ExportData) error {
	tiers, err := e.store.ListVIPTiers(ctx)
	if err != nil {
		return err
	}

	data.VIPTiers = make([]ExportVIPTier, 0, len(tiers))
	for i := range tiers {
		t := tiers[i]
		data.VIPTiers = append(data.VIPTiers, ExportVIPTier{
			Name:      t.Name,
			Slug:      t.Slug,
			Rank:      t.Rank,
			MinPoints: t.MinPoints,
			Color:     t.Color,
			Benefits:  t.BenefitList(),
			Active:    t.Active,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return nil
}

// exportFeed resolves each feed entry's content slug. Entries whose
// content has been deleted are dropped from the export.
func (e *Exporter) exportFeed(ctx context.Context, data *ExportData) error {
	entries, err := e.store.ListWhatsOnItems(ctx)
	if err != nil {
		return err
	}

	data.Feed = make([]ExportFeedItem, 0, len(entries))
	for _, entry := range entries {
		slug, err := e.resolveFeedSlug(ctx, entry.ItemType, entry.ItemID)
		if err != nil {
			e.logger.Warn("skipping feed entry with missing content",
				"item_type", entry.ItemType, "item_id", entry.ItemID)
			continue
		}
		data.Feed = append(data.Feed, ExportFeedItem{
			ItemType: entry.ItemType,
			Slug:     slug,
			Pinned:   entry.Pinned,
		})
	}
	return nil
}

func (e *Exporter) resolveFeedSlug(ctx context.Context, itemType string, itemID int64) (string, error) {
	switch itemType {
	case model.WhatsOnTypeEvent:
		ev, err := e.store.GetEventByID(ctx, itemID)
		if err != nil {
			return "", err
		}
		return ev.Slug, nil
	case model.WhatsOnTypePost:
		p, err := e.store.GetPostByID(ctx, itemID)
		if err != nil {
			return "", err
		}
		return p.Slug, nil
	default:
		p, err := e.store.GetPromotionByID(ctx, itemID)
		if err != nil {
			return "", err
		}
		return p.Slug, nil
	}
}

func (e *Exporter) buildTenantSlugMap(ctx context.Context) (map[int64]string, error) {
	tenants, err := e.store.ListTenants(ctx, store.ListTenantsParams{Limit: exportListLimit})
	if err != nil {
		return nil, err
	}
	slugs := make(map[int64]string, len(tenants))
	for _, t := range tenants {
		slugs[t.ID] = t.Slug
	}
	return slugs, nil
}
