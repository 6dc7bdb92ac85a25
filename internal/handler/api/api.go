// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the read-only delivery API consumed by the mall
// app and screens. Every route sits behind an API key; content is
// served published-only with markdown bodies rendered to sanitized
// HTML.
package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
)

// deliveryListLimit bounds the rows loaded for bucket-filtered lists,
// which paginate in memory after classification.
const deliveryListLimit = 10000

// Handler carries the dependencies the delivery routes share.
type Handler struct {
	queries   *store.Queries
	feed      *service.FeedService
	feedCache *cache.TypedCache[[]service.FeedItem]
}

// NewHandler builds the delivery handler set over db.
func NewHandler(db *sql.DB, feed *service.FeedService, feedCache *cache.TypedCache[[]service.FeedItem]) *Handler {
	return &Handler{
		queries:   store.New(db),
		feed:      feed,
		feedCache: feedCache,
	}
}

// StatusResponse is the body returned by Status.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// AuthInfoResponse describes the authenticated API key.
type AuthInfoResponse struct {
	KeyPrefix   string   `json:"key_prefix"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Status reports liveness and the delivery API version.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	handler.WriteSuccess(w, StatusResponse{Status: "ok", Version: "v1"}, nil)
}

// AuthInfo echoes the key the caller authenticated with.
func (h *Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	key := middleware.GetAPIKey(r)
	if key == nil {
		handler.WriteUnauthorized(w, "Not authenticated")
		return
	}
	handler.WriteSuccess(w, AuthInfoResponse{
		KeyPrefix:   key.KeyPrefix,
		Name:        key.Name,
		Permissions: key.GetPermissions(),
	}, nil)
}

// requireEntityByID resolves the {id} route param and loads the record
// behind it. A false return means the rejection is already written:
// 400 for a malformed ID, 404 for no row, 500 otherwise.
func requireEntityByID[T any](w http.ResponseWriter, r *http.Request, kind string, fetch func(id int64) (T, error)) (T, bool) {
	var zero T

	id, err := handler.ParseIDParam(r)
	if err != nil {
		handler.WriteBadRequest(w, "Invalid "+kind+" ID", nil)
		return zero, false
	}

	row, err := fetch(id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		handler.WriteNotFound(w, upperFirst(kind)+" not found")
		return zero, false
	case err != nil:
		handler.WriteInternalError(w, "Failed to retrieve "+kind)
		return zero, false
	}
	return row, true
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pageSlice returns the page window of items for in-memory pagination.
func pageSlice[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}
