// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Default pagination bounds for admin and delivery list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ParseIDParam parses the {id} URL parameter as an int64.
func ParseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ParsePageParam reads the "page" query parameter, answering 1 when it
// is absent or unusable.
func ParsePageParam(r *http.Request) int {
	return ParseIntParam(r, "page", 1, 1, 0)
}

// ParsePerPageParam reads the "per_page" query parameter, clamped to
// [1, maxPerPage]. Absent or unusable values fall back to defaultPerPage.
func ParsePerPageParam(r *http.Request, defaultPerPage, maxPerPage int) int {
	return ParseIntParam(r, "per_page", defaultPerPage, 1, maxPerPage)
}

// ParseIntParam reads an integer query parameter. Absent or unusable
// values, and values outside the optional bounds (a zero bound is
// open), fall back to defaultVal.
func ParseIntParam(r *http.Request, param string, defaultVal, minVal, maxVal int) int {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	if minVal > 0 && n < minVal {
		return defaultVal
	}
	if maxVal > 0 && n > maxVal {
		return defaultVal
	}
	return n
}

// ParseBoolParam reads a boolean query parameter, falling back to
// defaultVal when absent or unusable.
func ParseBoolParam(r *http.Request, param string, defaultVal bool) bool {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultVal
	}
	return b
}

// ParseQueryInt64 reads a named query parameter, answering 0 unless
// the value parses as a positive integer.
func ParseQueryInt64(r *http.Request, param string) int64 {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// Pagination returns the page, per-page and offset values for a list
// request using the shared defaults.
func Pagination(r *http.Request) (page, perPage int, offset int64) {
	page = ParsePageParam(r)
	perPage = ParsePerPageParam(r, DefaultPerPage, MaxPerPage)
	offset = int64(page-1) * int64(perPage)
	return page, perPage, offset
}

// CalculateTotalPages calculates the number of pages for the given total
// items and items per page.
func CalculateTotalPages(totalItems, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	totalPages := (totalItems + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	return totalPages
}
