// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func TestPostExcerpt(t *testing.T) {
	posted := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := Post{
		ID:           7,
		Author:       Author{ID: 1, DisplayName: "Oleg"},
		DatePosted:   posted,
		Title:        "Lisbon",
		Content:      "<p>Short part" + MoreMarker + "rest of it</p>",
		URLCanonical: "lisbon-in-spring",
		Media: []PostMedia{
			{URL: "/gallery/a/w600/a.jpg", Class: "inline"},
			{URL: "/gallery/b/w600/b.jpg", Class: MediaClassFeatured},
			{URL: "/gallery/c/w600/c.jpg", Class: MediaClassFeatured},
		},
	}

	e := p.Excerpt()
	if e.ID != 7 || e.Title != "Lisbon" || e.URL != "lisbon-in-spring" {
		t.Errorf("unexpected excerpt identity: %+v", e)
	}
	if e.ContentShort != "<p>Short part</p>" {
		t.Errorf("ContentShort = %q", e.ContentShort)
	}
	if e.ContentFull != p.Content {
		t.Errorf("ContentFull = %q", e.ContentFull)
	}
	if e.Thumbnail != "/gallery/b/w600/b.jpg" {
		t.Errorf("Thumbnail = %q", e.Thumbnail)
	}
	if !e.DatePosted.Equal(posted) {
		t.Errorf("DatePosted = %v", e.DatePosted)
	}
}

func TestPostExcerptWithoutMarkerOrMedia(t *testing.T) {
	p := Post{ID: 1, Content: "<p>All of it"}
	e := p.Excerpt()
	if e.ContentShort != "<p>All of it</p>" {
		t.Errorf("ContentShort = %q", e.ContentShort)
	}
	if e.Thumbnail != NotFoundThumbnail {
		t.Errorf("Thumbnail = %q, want %q", e.Thumbnail, NotFoundThumbnail)
	}
}

func TestSEOKey(t *testing.T) {
	tests := map[string]string{
		"Lisbon-In-Spring": "lisbon-in-spring",
		"/lisbon/":         "lisbon",
		"travel/Portugal":  "travel/portugal",
		"":                 "",
	}
	for in, want := range tests {
		if got := SEOKey(in); got != want {
			t.Errorf("SEOKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTagKey(t *testing.T) {
	if got := TagKey(" street food "); got != "street-food" {
		t.Errorf("TagKey() = %q", got)
	}
}
