// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"slices"
	"testing"
)

// jsonListCase is one input for a column that stores a JSON list of
// strings.
type jsonListCase struct {
	name  string
	input string
	want  []string
}

// jsonListCases builds the inputs every JSON list column has to cope
// with: the column unset, an explicit empty list, one element, and all
// of samples at once.
func jsonListCases(samples ...string) []jsonListCase {
	encode := func(items []string) string {
		data, _ := json.Marshal(items)
		return string(data)
	}

	return []jsonListCase{
		{name: "unset", input: "", want: []string{}},
		{name: "empty list", input: "[]", want: []string{}},
		{name: "one entry", input: encode(samples[:1]), want: samples[:1]},
		{name: "several entries", input: encode(samples), want: samples},
	}
}

func wantStrings(t *testing.T, label string, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

// memberCase pairs a membership probe with its expected answer.
type memberCase struct {
	item string
	want bool
}

func checkMembership(t *testing.T, cases []memberCase, has func(string) bool) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.item, func(t *testing.T) {
			if got := has(tc.item); got != tc.want {
				t.Errorf("membership(%q) = %v, want %v", tc.item, got, tc.want)
			}
		})
	}
}
