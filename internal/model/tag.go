// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// Tag is a post label with its own landing page.
type Tag struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Content string      `json:"content"`
	SEO     SEO         `json:"seo"`
	Media   []PostMedia `json:"media"`
}

// TagKey converts a tag label as written on a post into the key used by
// tag URLs and the tag index.
func TagKey(label string) string {
	return strings.ReplaceAll(strings.TrimSpace(label), " ", "-")
}
