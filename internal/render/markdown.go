// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render converts stored markdown into HTML for delivery
// payloads.
package render

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips unsafe markup from rendered output. UGCPolicy
// allows the usual formatting tags while dropping scripts and event
// handlers.
var htmlSanitizer = bluemonday.UGCPolicy()

// Markdown converts markdown source into sanitized HTML. Raw HTML in
// the source is dropped by the renderer and the output is sanitized
// again before returning. A conversion failure falls back to the
// escaped source wrapped in a paragraph so content is never lost.
func Markdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return htmlSanitizer.Sanitize(buf.String())
}
