// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/model"
)

func TestRSS(t *testing.T) {
	older := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	posts := []model.PostExcerpt{
		{ID: 2, Title: "Porto", URL: "porto", DatePosted: newer, ContentShort: "<p>Bridges</p>", Thumbnail: "/gallery/p/w600/p.jpg"},
		{ID: 1, Title: "Lisbon", URL: "lisbon", DatePosted: older, ContentShort: "<p>Trams</p>", Thumbnail: model.NotFoundThumbnail},
	}

	out, err := RSS(Channel{Title: "Travels", Link: "https://example.org", Description: "Notes", Language: "en"}, posts)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `<rss version="2.0"`)
	assert.Contains(t, s, "<title>Travels</title>")
	assert.Contains(t, s, `href="https://example.org/feed"`)
	assert.Contains(t, s, "<link>https://example.org/porto</link>")
	assert.Contains(t, s, "&lt;p&gt;Bridges&lt;/p&gt;", "HTML descriptions must be escaped")
	assert.Contains(t, s, `<enclosure url="https://example.org/gallery/p/w600/p.jpg"`)
	assert.Equal(t, 1, strings.Count(s, "<enclosure"), "placeholder thumbnails are not enclosed")
	assert.Contains(t, s, "<lastBuildDate>"+newer.Format(time.RFC1123Z)+"</lastBuildDate>")
	assert.Less(t, strings.Index(s, "Porto"), strings.Index(s, "Lisbon"), "order is preserved")
}
