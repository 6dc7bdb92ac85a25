// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// Importer replays an export document into the database.
type Importer struct {
	store  *store.Queries
	db     *sql.DB
	logger *slog.Logger
}

// NewImporter builds an importer writing through q. The raw db handle
// runs the per-section transactions.
func NewImporter(q *store.Queries, db *sql.DB, logger *slog.Logger) *Importer {
	return &Importer{store: q, db: db, logger: logger}
}

// Validate checks the document shape without touching the database:
// format version, required fields, known statuses, and slug collisions
// inside the payload. Cross-references are resolved at import time.
func (i *Importer) Validate(data *ExportData) []ImportError {
	var errs []ImportError

	if data.Version != ExportVersion {
		errs = append(errs, ImportError{
			Entity:  "export",
			Message: fmt.Sprintf("unsupported export version %q, want %q", data.Version, ExportVersion),
		})
		return errs
	}

	seen := make(map[string]bool)
	checkSlug := func(entity, slug string) bool {
		if slug == "" || !util.IsValidSlug(slug) {
			errs = append(errs, ImportError{Entity: entity, ID: slug, Message: "invalid slug"})
			return false
		}
		key := entity + ":" + slug
		if seen[key] {
			errs = append(errs, ImportError{Entity: entity, ID: slug, Message: "duplicate slug in payload"})
			return false
		}
		seen[key] = true
		return true
	}

	for _, t := range data.Tenants {
		if !checkSlug("tenant", t.Slug) {
			continue
		}
		if t.Name == "" {
			errs = append(errs, ImportError{Entity: "tenant", ID: t.Slug, Message: "name is required"})
		}
		if !slices.Contains(model.TenantCategories(), t.Category) {
			errs = append(errs, ImportError{Entity: "tenant", ID: t.Slug, Message: "unknown category " + t.Category})
		}
		if t.Status != model.StatusDraft && t.Status != model.StatusPublished {
			errs = append(errs, ImportError{Entity: "tenant", ID: t.Slug, Message: "unknown status " + t.Status})
		}
	}
	for _, ev := range data.Events {
		if !checkSlug("event", ev.Slug) {
			continue
		}
		if ev.Title == "" {
			errs = append(errs, ImportError{Entity: "event", ID: ev.Slug, Message: "title is required"})
		}
		if ev.StartAt.IsZero() {
			errs = append(errs, ImportError{Entity: "event", ID: ev.Slug, Message: "start time is required"})
		}
		if ev.Status != model.StatusDraft && ev.Status != model.StatusPublished {
			errs = append(errs, ImportError{Entity: "event", ID: ev.Slug, Message: "unknown status " + ev.Status})
		}
	}
	for _, p := range data.Posts {
		if !checkSlug("post", p.Slug) {
			continue
		}
		if p.Title == "" {
			errs = append(errs, ImportError{Entity: "post", ID: p.Slug, Message: "title is required"})
		}
		if p.Status != model.StatusDraft && p.Status != model.StatusPublished {
			errs = append(errs, ImportError{Entity: "post", ID: p.Slug, Message: "unknown status " + p.Status})
		}
	}
	for _, p := range data.Promotions {
		if !checkSlug("promotion", p.Slug) {
			continue
		}
		if p.Title == "" {
			errs = append(errs, ImportError{Entity: "promotion", ID: p.Slug, Message: "title is required"})
		}
		if p.StartsAt.IsZero() {
			errs = append(errs, ImportError{Entity: "promotion", ID: p.Slug, Message: "start time is required"})
		}
		if !model.ValidPromotionStatus(p.Status) {
			errs = append(errs, ImportError{Entity: "promotion", ID: p.Slug, Message: "unknown status " + p.Status})
		}
	}
	for _, t := range data.VIPTiers {
		if !checkSlug("vip_tier", t.Slug) {
			continue
		}
		if t.Name == "" {
			errs = append(errs, ImportError{Entity: "vip_tier", ID: t.Slug, Message: "name is required"})
		}
		if t.Rank < 1 {
			errs = append(errs, ImportError{Entity: "vip_tier", ID: t.Slug, Message: "rank must be positive"})
		}
	}
	for _, f := range data.Feed {
		if !model.ValidWhatsOnType(f.ItemType) {
			errs = append(errs, ImportError{Entity: "feed", ID: f.Slug, Message: "unknown item type " + f.ItemType})
		}
		if f.Slug == "" {
			errs = append(errs, ImportError{Entity: "feed", Message: "slug is required"})
		}
	}

	return errs
}

// Import replays data into the database. The whole run executes in one
// transaction and rolls back when any entity fails; a dry run only
// reports what would happen.
func (i *Importer) Import(ctx context.Context, data *ExportData, opts ImportOptions) (*ImportResult, error) {
	result := NewImportResult(opts.DryRun)

	validationErrors := i.Validate(data)
	if len(validationErrors) > 0 {
		for _, err := range validationErrors {
			result.AddError(err.Entity, err.ID, err.Message)
		}
		return result, errors.New("validation failed")
	}

	if opts.DryRun {
		i.tallyDryRun(ctx, data, opts, result)
		return result, nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	queries := i.store.WithTx(tx)

	// Content first, then promotions (which reference tenants by slug),
	// then the feed (which references everything by slug).
	if opts.ImportTenants {
		i.importTenants(ctx, queries, data.Tenants, opts, result)
	}
	if opts.ImportEvents {
		i.importEvents(ctx, queries, data.Events, opts, result)
	}
	if opts.ImportPosts {
		i.importPosts(ctx, queries, data.Posts, opts, result)
	}
	if opts.ImportPromotions {
		i.importPromotions(ctx, queries, data.Promotions, opts, result)
	}
	if opts.ImportVIPTiers {
		i.importVIPTiers(ctx, queries, data.VIPTiers, opts, result)
	}
	if opts.ImportFeed {
		i.importFeed(ctx, queries, data.Feed, opts, result)
	}

	if !result.Success {
		return result, errors.New("import failed")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}

// tallyDryRun reports what a real run would do, probing existing rows
// to split counts into created, updated and skipped.
func (i *Importer) tallyDryRun(ctx context.Context, data *ExportData, opts ImportOptions, result *ImportResult) {
	count := func(entity string, exists bool) {
		if exists {
			switch opts.ConflictStrategy {
			case ConflictOverwrite:
				result.IncrementUpdated(entity)
			default:
				result.IncrementSkipped(entity)
			}
		} else {
			result.IncrementCreated(entity)
		}
	}

	if opts.ImportTenants {
		for _, t := range data.Tenants {
			_, err := i.store.GetTenantBySlug(ctx, t.Slug)
			count("tenants", err == nil)
		}
	}
	if opts.ImportEvents {
		for _, ev := range data.Events {
			_, err := i.store.GetEventBySlug(ctx, ev.Slug)
			count("events", err == nil)
		}
	}
	if opts.ImportPosts {
		for _, p := range data.Posts {
			_, err := i.store.GetPostBySlug(ctx, p.Slug)
			count("posts", err == nil)
		}
	}
	if opts.ImportPromotions {
		for _, p := range data.Promotions {
			_, err := i.store.GetPromotionBySlug(ctx, p.Slug)
			count("promotions", err == nil)
		}
	}
	if opts.ImportVIPTiers {
		for _, t := range data.VIPTiers {
			_, err := i.store.GetVIPTierBySlug(ctx, t.Slug)
			count("vip_tiers", err == nil)
		}
	}
	if opts.ImportFeed {
		for range data.Feed {
			result.IncrementCreated("feed")
		}
	}
}

func (i *Importer) importTenants(ctx context.Context, queries *store.Queries, tenants []ExportTenant, opts ImportOptions, result *ImportResult) {
	now := time.Now().UTC()
	for _, t := range tenants {
		existing, err := queries.GetTenantBySlug(ctx, t.Slug)
		switch {
		case err == nil:
			if opts.ConflictStrategy == ConflictSkip {
				result.IncrementSkipped("tenants")
				continue
			}
			_, updateErr := queries.UpdateTenant(ctx, store.UpdateTenantParams{
				ID:          existing.ID,
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
				UpdatedAt:   now,
			})
			if updateErr != nil {
				result.AddError("tenant", t.Slug, updateErr.Error())
				continue
			}
			result.IncrementUpdated("tenants")
		case errors.Is(err, sql.ErrNoRows):
			_, createErr := queries.CreateTenant(ctx, store.CreateTenantParams{
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
				UpdatedAt:   now,
			})
			if createErr != nil {
				result.AddError("tenant", t.Slug, createErr.Error())
				continue
			}
			result.IncrementCreated("tenants")
		default:
			result.AddError("tenant", t.Slug, err.Error())
		}
	}
}

func (i *Importer) importEvents(ctx context.Context, queries *store.Queries, events []ExportEvent, opts ImportOptions, result *ImportResult) {
	now := time.Now().UTC()
	for _, ev := range events {
		existing, err := queries.GetEventBySlug(ctx, ev.Slug)
		switch {
		case err == nil:
			if opts.ConflictStrategy == ConflictSkip {
				result.IncrementSkipped("events")
				continue
			}
			updated, updateErr := queries.UpdateEvent(ctx, store.UpdateEventParams{
				ID:        existing.ID,
				Title:     ev.Title,
				Slug:      ev.Slug,
				Summary:   ev.Summary,
				Body:      ev.Body,
				Location:  ev.Location,
				Status:    ev.Status,
				Featured:  ev.Featured,
				StartAt:   ev.StartAt,
				EndAt:     util.NullTimeFromPtr(ev.EndAt),
				UpdatedAt: now,
			})
			if updateErr != nil {
				result.AddError("event", ev.Slug, updateErr.Error())
				continue
			}
			if updated.Status == model.StatusPublished && !updated.PublishedAt.Valid {
				if _, pubErr := queries.PublishEvent(ctx, updated.ID, publishTime(ev.PublishedAt, now)); pubErr != nil {
					result.AddError("event", ev.Slug, pubErr.Error())
					continue
				}
			}
			result.IncrementUpdated("events")
		case errors.Is(err, sql.ErrNoRows):
			_, createErr := queries.CreateEvent(ctx, store.CreateEventParams{
				Title:       ev.Title,
				Slug:        ev.Slug,
				Summary:     ev.Summary,
				Body:        ev.Body,
				Location:    ev.Location,
				Status:      ev.Status,
				Featured:    ev.Featured,
				StartAt:     ev.StartAt,
				EndAt:       util.NullTimeFromPtr(ev.EndAt),
				PublishedAt: importedPublishAt(ev.Status, ev.PublishedAt, now),
				CreatedAt:   ev.CreatedAt,
				UpdatedAt:   now,
			})
			if createErr != nil {
				result.AddError("event", ev.Slug, createErr.Error())
				continue
			}
			result.IncrementCreated("events")
		default:
			result.AddError("event", ev.Slug, err.Error())
		}
	}
}

func (i *Importer) importPosts(ctx context.Context, queries *store.Queries, posts []ExportPost, opts ImportOptions, result *ImportResult) {
	now := time.Now().UTC()
	for _, p := range posts {
		existing, err := queries.GetPostBySlug(ctx, p.Slug)
		switch {
		case err == nil:
			if opts.ConflictStrategy == ConflictSkip {
				result.IncrementSkipped("posts")
				continue
			}
			updated, updateErr := queries.UpdatePost(ctx, store.UpdatePostParams{
				ID:        existing.ID,
				Title:     p.Title,
				Slug:      p.Slug,
				Excerpt:   p.Excerpt,
				Body:      p.Body,
				Status:    p.Status,
				Featured:  p.Featured,
				UpdatedAt: now,
			})
			if updateErr != nil {
				result.AddError("post", p.Slug, updateErr.Error())
				continue
			}
			if updated.Status == model.StatusPublished && !updated.PublishedAt.Valid {
				if _, pubErr := queries.PublishPost(ctx, updated.ID, publishTime(p.PublishedAt, now)); pubErr != nil {
					result.AddError("post", p.Slug, pubErr.Error())
					continue
				}
			}
			result.IncrementUpdated("posts")
		case errors.Is(err, sql.ErrNoRows):
			created, createErr := queries.CreatePost(ctx, store.CreatePostParams{
				Title:     p.Title,
				Slug:      p.Slug,
				Excerpt:   p.Excerpt,
				Body:      p.Body,
				Status:    p.Status,
				Featured:  p.Featured,
				CreatedAt: p.CreatedAt,
				UpdatedAt: now,
			})
			if createErr != nil {
				result.AddError("post", p.Slug, createErr.Error())
				continue
			}
			if created.Status == model.StatusPublished {
				if _, pubErr := queries.PublishPost(ctx, created.ID, publishTime(p.PublishedAt, now)); pubErr != nil {
					result.AddError("post", p.Slug, pubErr.Error())
					continue
				}
			}
			result.IncrementCreated("posts")
		default:
			result.AddError("post", p.Slug, err.Error())
		}
	}
}

func (i *Importer) importPromotions(ctx context.Context, queries *store.Queries, promotions []ExportPromotion, opts ImportOptions, result *ImportResult) {
	now := time.Now().UTC()
	for _, p := range promotions {
		tenantID, err := i.resolveTenantSlug(ctx, queries, p.TenantSlug)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				result.AddError("promotion", p.Slug, err.Error())
				continue
			}
			// The storefront may simply not be part of this import;
			// bring the promotion in as mall-wide rather than dropping it.
			i.logger.Warn("storefront not found, importing promotion as mall-wide",
				"slug", p.Slug, "tenant_slug", p.TenantSlug)
			tenantID = sql.NullInt64{}
		}

		existing, err := queries.GetPromotionBySlug(ctx, p.Slug)
		switch {
		case err == nil:
			if opts.ConflictStrategy == ConflictSkip {
				result.IncrementSkipped("promotions")
				continue
			}
			updated, updateErr := queries.UpdatePromotion(ctx, store.UpdatePromotionParams{
				ID:        existing.ID,
				Title:     p.Title,
				Slug:      p.Slug,
				Summary:   p.Summary,
				Body:      p.Body,
				TenantID:  tenantID,
				Featured:  p.Featured,
				StartsAt:  p.StartsAt,
				EndsAt:    util.NullTimeFromPtr(p.EndsAt),
				UpdatedAt: now,
			})
			if updateErr != nil {
				result.AddError("promotion", p.Slug, updateErr.Error())
				continue
			}
			if liftErr := i.liftPromotionStatus(ctx, queries, updated, p, now); liftErr != nil {
				result.AddError("promotion", p.Slug, liftErr.Error())
				continue
			}
			result.IncrementUpdated("promotions")
		case errors.Is(err, sql.ErrNoRows):
			created, createErr := queries.CreatePromotion(ctx, store.CreatePromotionParams{
				Title:     p.Title,
				Slug:      p.Slug,
				Summary:   p.Summary,
				Body:      p.Body,
				TenantID:  tenantID,
				Featured:  p.Featured,
				StartsAt:  p.StartsAt,
				EndsAt:    util.NullTimeFromPtr(p.EndsAt),
				CreatedAt: p.CreatedAt,
				UpdatedAt: now,
			})
			if createErr != nil {
				result.AddError("promotion", p.Slug, createErr.Error())
				continue
			}
			if liftErr := i.liftPromotionStatus(ctx, queries, created, p, now); liftErr != nil {
				result.AddError("promotion", p.Slug, liftErr.Error())
				continue
			}
			result.IncrementCreated("promotions")
		default:
			result.AddError("promotion", p.Slug, err.Error())
		}
	}
}

// liftPromotionStatus advances a stored promotion to match the imported
// lifecycle status. Transitions only move forward; an export claiming
// staging never demotes a promotion that is already live here.
func (i *Importer) liftPromotionStatus(ctx context.Context, queries *store.Queries, stored model.Promotion, imported ExportPromotion, now time.Time) error {
	switch imported.Status {
	case model.PromotionStatusPublished:
		if stored.Status == model.PromotionStatusStaging {
			_, err := queries.PublishPromotion(ctx, stored.ID, publishTime(imported.PublishedAt, now))
			return err
		}
	case model.PromotionStatusExpired:
		if stored.Status != model.PromotionStatusExpired {
			if stored.Status == model.PromotionStatusStaging && imported.PublishedAt != nil {
				if _, err := queries.PublishPromotion(ctx, stored.ID, *imported.PublishedAt); err != nil {
					return err
				}
			}
			_, err := queries.ExpirePromotion(ctx, stored.ID, now)
			return err
		}
	}
	return nil
}

func (i *Importer) importVIPTiers(ctx context.Context, queries *store.Queries, tiers []ExportVIPTier, opts ImportOptions, result *ImportResult) {
	now := time.Now().UTC()
	for _, t := range tiers {
		benefits, err := model.BenefitsToJSON(t.Benefits)
		if err != nil {
			result.AddError("vip_tier", t.Slug, err.Error())
			continue
		}

		existing, err := queries.GetVIPTierBySlug(ctx, t.Slug)
		switch {
		case err == nil:
			if opts.ConflictStrategy == ConflictSkip {
				result.IncrementSkipped("vip_tiers")
				continue
			}
			_, updateErr := queries.UpdateVIPTier(ctx, store.UpdateVIPTierParams{
				ID:        existing.ID,
				Name:      t.Name,
				Slug:      t.Slug,
				Rank:      t.Rank,
				MinPoints: t.MinPoints,
				Color:     t.Color,
				Benefits:  benefits,
				Active:    t.Active,
				UpdatedAt: now,
			})
			if updateErr != nil {
				result.AddError("vip_tier", t.Slug, updateErr.Error())
				continue
			}
			result.IncrementUpdated("vip_tiers")
		case errors.Is(err, sql.ErrNoRows):
			_, createErr := queries.CreateVIPTier(ctx, store.CreateVIPTierParams{
				Name:      t.Name,
				Slug:      t.Slug,
				Rank:      t.Rank,
				MinPoints: t.MinPoints,
				Color:     t.Color,
				Benefits:  benefits,
				Active:    t.Active,
				CreatedAt: t.CreatedAt,
				UpdatedAt: now,
			})
			if createErr != nil {
				result.AddError("vip_tier", t.Slug, createErr.Error())
				continue
			}
			result.IncrementCreated("vip_tiers")
		default:
			result.AddError("vip_tier", t.Slug, err.Error())
		}
	}
}

// importFeed appends imported feed entries after any existing ones,
// resolving content slugs inside the same transaction so entries can
// reference content imported moments ago.
func (i *Importer) importFeed(ctx context.Context, queries *store.Queries, feed []ExportFeedItem, opts ImportOptions, result *ImportResult) {
	now := time.Now().UTC()

	position, err := queries.MaxWhatsOnPosition(ctx)
	if err != nil {
		result.AddError("feed", "", err.Error())
		return
	}

	for _, f := range feed {
		itemID, err := i.resolveFeedRef(ctx, queries, f.ItemType, f.Slug)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				result.AddError("feed", f.Slug, err.Error())
				continue
			}
			// The referenced content was excluded from this import.
			i.logger.Warn("feed entry references missing content, skipping",
				"item_type", f.ItemType, "slug", f.Slug)
			result.IncrementSkipped("feed")
			continue
		}

		if existing, err := queries.GetWhatsOnItemByRef(ctx, f.ItemType, itemID); err == nil {
			if opts.ConflictStrategy == ConflictOverwrite && existing.Pinned != f.Pinned {
				if _, pinErr := queries.SetWhatsOnPinned(ctx, existing.ID, f.Pinned, now); pinErr != nil {
					result.AddError("feed", f.Slug, pinErr.Error())
					continue
				}
				result.IncrementUpdated("feed")
				continue
			}
			result.IncrementSkipped("feed")
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			result.AddError("feed", f.Slug, err.Error())
			continue
		}

		position++
		if _, createErr := queries.CreateWhatsOnItem(ctx, store.CreateWhatsOnItemParams{
			ItemType:  f.ItemType,
			ItemID:    itemID,
			Position:  position,
			Pinned:    f.Pinned,
			CreatedAt: now,
			UpdatedAt: now,
		}); createErr != nil {
			result.AddError("feed", f.Slug, createErr.Error())
			continue
		}
		result.IncrementCreated("feed")
	}
}

func (i *Importer) resolveTenantSlug(ctx context.Context, queries *store.Queries, slug string) (sql.NullInt64, error) {
	if slug == "" {
		return sql.NullInt64{}, nil
	}
	tenant, err := queries.GetTenantBySlug(ctx, slug)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: tenant.ID, Valid: true}, nil
}

func (i *Importer) resolveFeedRef(ctx context.Context, queries *store.Queries, itemType, slug string) (int64, error) {
	switch itemType {
	case model.WhatsOnTypeEvent:
		ev, err := queries.GetEventBySlug(ctx, slug)
		if err != nil {
			return 0, err
		}
		return ev.ID, nil
	case model.WhatsOnTypePost:
		p, err := queries.GetPostBySlug(ctx, slug)
		if err != nil {
			return 0, err
		}
		return p.ID, nil
	default:
		p, err := queries.GetPromotionBySlug(ctx, slug)
		if err != nil {
			return 0, err
		}
		return p.ID, nil
	}
}

// publishTime prefers the exported publish timestamp, falling back to
// the import time.
func publishTime(exported *time.Time, now time.Time) time.Time {
	if exported != nil {
		return *exported
	}
	return now
}

// importedPublishAt maps an exported publish timestamp for direct
// insertion. Draft content never carries one.
func importedPublishAt(status string, exported *time.Time, now time.Time) sql.NullTime {
	if status != model.StatusPublished {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: publishTime(exported, now), Valid: true}
}
