// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
)

// WhatsOnHandler handles admin routes for the curated What's On feed.
type WhatsOnHandler struct {
	feed         *service.FeedService
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewWhatsOnHandler creates a new WhatsOnHandler.
func NewWhatsOnHandler(feed *service.FeedService, activity *service.ActivityService, cm *cache.Manager) *WhatsOnHandler {
	return &WhatsOnHandler{
		feed:         feed,
		activity:     activity,
		cacheManager: cm,
	}
}

// AddFeedItemRequest is the request body for adding content to the feed.
type AddFeedItemRequest struct {
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
	Pinned   bool   `json:"pinned"`
}

// ReorderFeedRequest is the request body for renumbering the feed. IDs
// must name every current entry exactly once, first ID on top.
type ReorderFeedRequest struct {
	IDs []int64 `json:"ids"`
}

// PinFeedItemRequest is the request body for pinning a feed entry.
type PinFeedItemRequest struct {
	Pinned bool `json:"pinned"`
}

// List handles GET /admin/api/v1/whats-on. The curated feed is small
// and returned whole, including entries whose content has gone missing.
func (h *WhatsOnHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.feed.Items(r.Context(), time.Now().UTC())
	if err != nil {
		slog.Error("failed to load feed", "error", err)
		WriteInternalError(w, "Failed to load feed")
		return
	}
	WriteSuccess(w, items, nil)
}

// Create handles POST /admin/api/v1/whats-on. New entries append to the
// end of the feed.
func (h *WhatsOnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AddFeedItemRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if !model.ValidWhatsOnType(req.ItemType) {
		fieldErrors["item_type"] = "Item type must be 'event', 'post' or 'promotion'"
	}
	if req.ItemID < 1 {
		fieldErrors["item_id"] = "Item ID must be a positive integer"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	item, err := h.feed.Add(r.Context(), req.ItemType, req.ItemID, req.Pinned, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownFeedType):
			WriteValidationError(w, map[string]string{"item_type": "Item type must be 'event', 'post' or 'promotion'"})
		case errors.Is(err, service.ErrFeedRefNotFound):
			WriteValidationError(w, map[string]string{"item_id": "Referenced content not found"})
		case errors.Is(err, service.ErrFeedRefDuplicate):
			WriteValidationError(w, map[string]string{"item_id": "Content is already in the feed"})
		default:
			slog.Error("failed to add feed entry", "error", err)
			WriteInternalError(w, "Failed to add feed entry")
		}
		return
	}

	h.cacheManager.InvalidateFeed(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo,
		"Feed entry added: "+req.ItemType+" "+strconv.FormatInt(req.ItemID, 10),
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"feed_id": item.ID, "item_type": item.ItemType, "item_id": item.ItemID})

	WriteCreated(w, item)
}

// Reorder handles PUT /admin/api/v1/whats-on/reorder.
func (h *WhatsOnHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderFeedRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		WriteValidationError(w, map[string]string{"ids": "IDs are required"})
		return
	}

	if err := h.feed.Reorder(r.Context(), req.IDs, time.Now().UTC()); err != nil {
		if errors.Is(err, service.ErrFeedRefNotFound) {
			WriteValidationError(w, map[string]string{"ids": "IDs must name every feed entry exactly once"})
			return
		}
		slog.Error("failed to reorder feed", "error", err)
		// Reorder validates its input before touching rows; anything
		// other than a missing entry at this point is a count or
		// duplicate mismatch.
		WriteValidationError(w, map[string]string{"ids": err.Error()})
		return
	}

	h.cacheManager.InvalidateFeed(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Feed reordered",
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"count": len(req.IDs)})

	items, err := h.feed.Items(r.Context(), time.Now().UTC())
	if err != nil {
		slog.Error("failed to reload feed after reorder", "error", err)
		WriteInternalError(w, "Failed to load feed")
		return
	}
	WriteSuccess(w, items, nil)
}

// Pin handles PUT /admin/api/v1/whats-on/{id}/pin.
func (h *WhatsOnHandler) Pin(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid feed entry ID", nil)
		return
	}

	var req PinFeedItemRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	item, err := h.feed.SetPinned(r.Context(), id, req.Pinned, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrFeedRefNotFound) {
			WriteNotFound(w, "Feed entry not found")
			return
		}
		slog.Error("failed to pin feed entry", "error", err, "feed_id", id)
		WriteInternalError(w, "Failed to pin feed entry")
		return
	}

	h.cacheManager.InvalidateFeed(r.Context())
	action := "pinned"
	if !req.Pinned {
		action = "unpinned"
	}
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo,
		"Feed entry "+action+": "+item.ItemType+" "+strconv.FormatInt(item.ItemID, 10),
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"feed_id": item.ID, "pinned": req.Pinned})

	WriteSuccess(w, item, nil)
}

// Delete handles DELETE /admin/api/v1/whats-on/{id}. Only the feed
// entry goes away; the content it points at stays.
func (h *WhatsOnHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid feed entry ID", nil)
		return
	}

	if err := h.feed.Remove(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrFeedRefNotFound) {
			WriteNotFound(w, "Feed entry not found")
			return
		}
		slog.Error("failed to remove feed entry", "error", err, "feed_id", id)
		WriteInternalError(w, "Failed to remove feed entry")
		return
	}

	h.cacheManager.InvalidateFeed(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo,
		"Feed entry removed: "+strconv.FormatInt(id, 10),
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"feed_id": id})

	WriteNoContent(w)
}
