// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ListAndCount runs the paired list and count queries behind a
// paginated endpoint and hands back both results.
func ListAndCount[T any](listFn func() ([]T, error), countFn func() (int64, error)) ([]T, int64, error) {
	items, err := listFn()
	if err != nil {
		return nil, 0, err
	}
	total, err := countFn()
	return items, total, err
}

// requireEntityByID resolves the {id} route param and loads the record
// behind it. A false return means the rejection is already written:
// 400 for a malformed ID, 404 for no row, 500 otherwise.
func requireEntityByID[T any](w http.ResponseWriter, r *http.Request, kind string, fetch func(id int64) (T, error)) (T, bool) {
	var zero T

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+kind+" ID", nil)
		return zero, false
	}

	row, err := fetch(id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		WriteNotFound(w, capitalizeFirst(kind)+" not found")
		return zero, false
	case err != nil:
		WriteInternalError(w, "Failed to retrieve "+kind)
		return zero, false
	}
	return row, true
}

// SlugLookup fetches an entity ID by slug, returning sql.ErrNoRows when
// the slug is free.
type SlugLookup func(slug string) (int64, error)

// checkSlugUnique verifies a slug is not taken by another row. excludeID
// skips the row being updated; pass 0 on create. Returns false when the
// slug is taken or the lookup failed, with the response already written.
func checkSlugUnique(w http.ResponseWriter, lookup SlugLookup, slug string, excludeID int64) bool {
	ownerID, err := lookup(slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true
		}
		WriteInternalError(w, "Slug lookup failed")
		return false
	}
	if ownerID != excludeID {
		WriteValidationError(w, map[string]string{"slug": "Slug is already in use"})
		return false
	}
	return true
}

// capitalizeFirst uppercases the leading letter of s for display in
// error messages.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// parseRFC3339 parses an optional RFC3339 timestamp from a request field.
// Empty input yields a zero time with ok true.
func parseRFC3339(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
