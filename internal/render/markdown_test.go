// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
)

func TestMarkdownBasicFormatting(t *testing.T) {
	got := Markdown("# Summer Sale\n\nUp to **50%** off.")

	if !strings.Contains(got, "<h1>Summer Sale</h1>") {
		t.Errorf("expected heading in output, got %q", got)
	}
	if !strings.Contains(got, "<strong>50%</strong>") {
		t.Errorf("expected bold text in output, got %q", got)
	}
}

func TestMarkdownEmpty(t *testing.T) {
	if got := Markdown(""); got != "" {
		t.Errorf("expected empty output for empty input, got %q", got)
	}
}

func TestMarkdownLinks(t *testing.T) {
	got := Markdown("[our site](https://example.com)")

	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("expected link in output, got %q", got)
	}
}

func TestMarkdownStripsScripts(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"hello <img src=x onerror=alert(1)> world",
		"[click](javascript:alert(1))",
	}
	for _, input := range inputs {
		got := Markdown(input)
		if strings.Contains(got, "<script") || strings.Contains(got, "onerror") || strings.Contains(got, "javascript:") {
			t.Errorf("unsafe markup survived for %q: %q", input, got)
		}
	}
}

func TestMarkdownLists(t *testing.T) {
	got := Markdown("- free parking\n- lounge access\n")

	if !strings.Contains(got, "<ul>") || !strings.Contains(got, "<li>free parking</li>") {
		t.Errorf("expected list in output, got %q", got)
	}
}
