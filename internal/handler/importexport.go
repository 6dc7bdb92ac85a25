// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/transfer"
)

// maxImportBodyBytes caps import uploads. Exports carry content only,
// so even a large install stays well under this.
const maxImportBodyBytes int64 = 25 << 20 // 25 MB

// ImportExportHandler moves content between Galleria installations.
type ImportExportHandler struct {
	db           *sql.DB
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
	logger       *slog.Logger
}

// NewImportExportHandler builds the content transfer handler.
func NewImportExportHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager, logger *slog.Logger) *ImportExportHandler {
	return &ImportExportHandler{
		db:           db,
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
		logger:       logger,
	}
}

// Export streams the content of this installation as a JSON download.
// Sections default to included and can be dropped with include_* query
// parameters; status narrows content to published rows only.
func (h *ImportExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	opts := transfer.ExportOptions{
		IncludeTenants:    ParseBoolParam(r, "include_tenants", true),
		IncludeEvents:     ParseBoolParam(r, "include_events", true),
		IncludePosts:      ParseBoolParam(r, "include_posts", true),
		IncludePromotions: ParseBoolParam(r, "include_promotions", true),
		IncludeVIPTiers:   ParseBoolParam(r, "include_vip_tiers", true),
		IncludeFeed:       ParseBoolParam(r, "include_feed", true),
		ContentStatus:     r.URL.Query().Get("status"),
	}
	switch opts.ContentStatus {
	case "":
		opts.ContentStatus = "all"
	case "all", "published":
	default:
		WriteBadRequest(w, "Invalid status filter", map[string]string{"status": "must be all or published"})
		return
	}

	filename := fmt.Sprintf("galleria-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	exporter := transfer.NewExporter(h.queries, h.logger)
	if err := exporter.ExportToWriter(r.Context(), opts, w); err != nil {
		// Headers are already sent at this point; all we can do is log.
		h.logger.Error("export failed", "error", err)
		return
	}

	_ = h.activity.LogSystem(r.Context(), model.ActivityLevelInfo, "Content exported",
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"status": opts.ContentStatus})
}

// Import replays an export document into this installation. With
// dry_run=true nothing is written and the result reports what a real
// run would do.
func (h *ImportExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)

	var data transfer.ExportData
	if !DecodeJSON(w, r, &data) {
		return
	}

	opts := transfer.ImportOptions{
		DryRun:           ParseBoolParam(r, "dry_run", false),
		ConflictStrategy: transfer.ConflictSkip,
		ImportTenants:    ParseBoolParam(r, "import_tenants", true),
		ImportEvents:     ParseBoolParam(r, "import_events", true),
		ImportPosts:      ParseBoolParam(r, "import_posts", true),
		ImportPromotions: ParseBoolParam(r, "import_promotions", true),
		ImportVIPTiers:   ParseBoolParam(r, "import_vip_tiers", true),
		ImportFeed:       ParseBoolParam(r, "import_feed", true),
	}
	switch conflict := r.URL.Query().Get("conflict"); conflict {
	case "":
	case string(transfer.ConflictSkip), string(transfer.ConflictOverwrite):
		opts.ConflictStrategy = transfer.ConflictStrategy(conflict)
	default:
		WriteBadRequest(w, "Invalid conflict strategy", map[string]string{"conflict": "must be skip or overwrite"})
		return
	}

	importer := transfer.NewImporter(h.queries, h.db, h.logger)
	result, err := importer.Import(r.Context(), &data, opts)
	if err != nil {
		if result == nil {
			h.logger.Error("import failed", "error", err)
			WriteInternalError(w, "Import failed")
			return
		}
		// Validation and entity errors travel in the result body.
		WriteJSON(w, http.StatusUnprocessableEntity, Response{Data: result})
		return
	}

	if !opts.DryRun {
		h.cacheManager.InvalidateContent(r.Context())
		h.cacheManager.InvalidateFeed(r.Context())

		_ = h.activity.LogSystem(r.Context(), model.ActivityLevelInfo, "Content imported",
			middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
			map[string]any{
				"created": result.TotalCreated(),
				"updated": result.TotalUpdated(),
				"skipped": result.TotalSkipped(),
			})
	}

	WriteSuccess(w, result, nil)
}
