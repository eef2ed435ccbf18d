// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"punctuation", "Hello, World!", "hello-world"},
		{"numbers", "Day 123 in Lisbon", "day-123-in-lisbon"},
		{"accents", "Café résumé", "cafe-resume"},
		{"multiple spaces", "Hello   World", "hello-world"},
		{"separators", "road_trip/2024.part-one", "road-trip-2024-part-one"},
		{"cyrillic", "Привет мир", "privet-mir"},
		{"leading and trailing", "  --Porto--  ", "porto"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugifyLength(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 100))
	if len(got) > MaxSlugLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug ends with hyphen: %q", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := map[string]bool{
		"hello-world":  true,
		"day-1":        true,
		"":             false,
		"Hello":        false,
		"-start":       false,
		"end-":         false,
		"double--dash": false,
		"with space":   false,
	}
	for in, want := range tests {
		if got := IsValidSlug(in); got != want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", in, got, want)
		}
	}
}
