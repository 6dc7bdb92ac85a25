// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
)

// feedTTL keeps the assembled feed payload briefly cached. Schedule
// buckets inside it drift with the clock, so it must stay short.
const feedTTL = time.Minute

// WhatsOn returns the curated feed in display order, published entries
// only. An optional type parameter narrows to one content type.
func (h *Handler) WhatsOn(w http.ResponseWriter, r *http.Request) {
	itemType := r.URL.Query().Get("type")
	if itemType != "" && !model.ValidWhatsOnType(itemType) {
		handler.WriteBadRequest(w, "Invalid feed type filter",
			map[string]string{"type": "must be event, post or promotion"})
		return
	}

	items, err := h.feedCache.GetOrSetWithTTL(r.Context(), cache.KeyWhatsOnFeed, feedTTL,
		func() (*[]service.FeedItem, error) {
			list, err := h.feed.Published(r.Context(), time.Now().UTC())
			if err != nil {
				return nil, err
			}
			return &list, nil
		})
	if err != nil {
		handler.WriteInternalError(w, "Failed to load feed")
		return
	}

	feed := *items
	if itemType != "" {
		filtered := make([]service.FeedItem, 0, len(feed))
		for _, item := range feed {
			if item.ItemType == itemType {
				filtered = append(filtered, item)
			}
		}
		feed = filtered
	}

	handler.WriteSuccess(w, feed, nil)
}
