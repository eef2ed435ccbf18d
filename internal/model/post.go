// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the blog entities shared by the store, the content
// cache and the HTTP layer.
package model

import (
	"strings"
	"time"
)

// Post states
const (
	PostStateDraft     = "draft"
	PostStatePublished = "published"
	PostStatePrivate   = "private"
)

// Body formats
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

const (
	// MoreMarker separates the short excerpt from the rest of a post body.
	MoreMarker = "<!--more-->"

	// NotFoundThumbnail is used when a post has no featured media.
	NotFoundThumbnail = "/gallery/not_found.png"

	// MediaClassFeatured marks the media item used as a post thumbnail.
	MediaClassFeatured = "featured"
)

// Author is the public projection of the user who wrote a post.
type Author struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	HomePost    string `json:"home_post"`
}

// SEO holds search-engine metadata for posts and tags.
type SEO struct {
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

// PostMedia is an image embedded in a post or tag.
type PostMedia struct {
	URL   string `json:"url"`
	Class string `json:"class"`
	Title string `json:"title"`
	Alt   string `json:"alt"`
}

// PostLocation is a place a post refers to.
type PostLocation struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Post is a blog post as loaded from the database.
type Post struct {
	ID           int64          `json:"id"`
	Author       Author         `json:"author"`
	DatePosted   time.Time      `json:"date_posted"`
	DateModified time.Time      `json:"date_modified"`
	State        string         `json:"state"`
	Format       string         `json:"format"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	SEO          SEO            `json:"seo"`
	URLCanonical string         `json:"url_canonical"`
	URLHistoric  []string       `json:"url_historic"`
	Tags         []string       `json:"tags"`
	Media        []PostMedia    `json:"media"`
	Locations    []PostLocation `json:"locations"`
	Related      []int64        `json:"related"`
}

// PostExcerpt is the list-view projection of a post.
type PostExcerpt struct {
	ID           int64     `json:"id"`
	Author       Author    `json:"author"`
	DatePosted   time.Time `json:"date_posted"`
	Title        string    `json:"title"`
	ContentShort string    `json:"content_short"`
	ContentFull  string    `json:"content_full"`
	URL          string    `json:"url"`
	Thumbnail    string    `json:"thumbnail"`
}

// IsDraft reports whether the post is excluded from the public site.
func (p Post) IsDraft() bool {
	return p.State == PostStateDraft
}

// Thumbnail returns the first featured media URL of the post.
func (p Post) Thumbnail() string {
	for _, m := range p.Media {
		if m.Class == MediaClassFeatured {
			return m.URL
		}
	}
	return NotFoundThumbnail
}

// Excerpt derives the list-view projection of the post.
func (p Post) Excerpt() PostExcerpt {
	short, _, _ := strings.Cut(p.Content, MoreMarker)
	return PostExcerpt{
		ID:           p.ID,
		Author:       p.Author,
		DatePosted:   p.DatePosted,
		Title:        p.Title,
		ContentShort: short + "</p>",
		ContentFull:  p.Content,
		URL:          p.URLCanonical,
		Thumbnail:    p.Thumbnail(),
	}
}

// SEOKey normalises a URL path for the SEO lookup indexes.
func SEOKey(url string) string {
	return strings.ToLower(strings.Trim(url, "/"))
}
