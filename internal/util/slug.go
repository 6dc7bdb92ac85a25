// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds the small cross-cutting helpers the handler and
// service layers share.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonSlugChars matches everything slugs drop outright. Spaces and
	// hyphens survive this pass so separatorRuns can collapse them.
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9 -]`)
	separatorRuns = regexp.MustCompile(`[ -]+`)
)

// Slugify reduces s to a URL slug: accents fold to their base letters,
// non-Latin text transliterates to ASCII, punctuation is dropped, and
// runs of spaces or hyphens become a single hyphen.
func Slugify(s string) string {
	// Decompose accented characters and strip the combining marks.
	// The chain is stateful, so each call builds its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, _ := transform.String(fold, s)

	ascii = strings.ToLower(unidecode.Unidecode(ascii))
	ascii = nonSlugChars.ReplaceAllString(ascii, "")
	ascii = separatorRuns.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-")
}

// IsValidSlug reports whether s is already in slug form: lowercase
// alphanumerics joined by single hyphens, with neither end hyphenated.
func IsValidSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
