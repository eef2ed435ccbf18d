// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds the machine-facing documents of the blog: page meta
// tags, JSON-LD, sitemap.xml, the RSS feed and robots.txt.
package seo

import (
	"html/template"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/olegiv/oblog/internal/model"
)

// Meta holds the SEO tags of one page.
type Meta struct {
	Title         string
	Description   string
	Canonical     string
	OGTitle       string
	OGDescription string
	OGImage       string
	OGType        string
	OGSiteName    string
	OGLocale      string
	TwitterCard   string
	TwitterSite   string
	FacebookAppID string
	JSONLD        template.JS
}

// SiteConfig contains site-wide settings for SEO.
type SiteConfig struct {
	SiteName        string
	SiteURL         string // https://fqdn, no trailing slash
	MetaTitle       string
	MetaDescription string
	Locale          string
	TwitterHandle   string
	FacebookAppID   string
}

// SiteMeta returns the tags of a non-article page such as the index or a search.
func SiteMeta(site SiteConfig, canonical string) Meta {
	title := site.MetaTitle
	if title == "" {
		title = site.SiteName
	}
	m := base(site)
	m.Title, m.OGTitle = title, title
	m.Description, m.OGDescription = site.MetaDescription, site.MetaDescription
	m.Canonical = canonical
	return m
}

// TagMeta returns the tags of a tag listing. A tag's own SEO fields override the site's.
func TagMeta(site SiteConfig, tag model.Tag, canonical string) Meta {
	m := SiteMeta(site, canonical)
	if tag.SEO.MetaTitle != "" {
		m.Title, m.OGTitle = tag.SEO.MetaTitle, tag.SEO.MetaTitle
	} else if tag.Title != "" {
		m.Title, m.OGTitle = tag.Title, tag.Title
	}
	if tag.SEO.MetaDescription != "" {
		m.Description, m.OGDescription = tag.SEO.MetaDescription, tag.SEO.MetaDescription
	}
	for _, media := range tag.Media {
		if media.Class == model.MediaClassFeatured {
			m.OGImage = makeAbsoluteURL(media.URL, site.SiteURL)
			break
		}
	}
	return m
}

// PostMeta returns the tags of a single post, including Article JSON-LD.
func PostMeta(site SiteConfig, post model.Post) Meta {
	m := base(site)
	m.OGType = "article"
	m.Canonical = site.SiteURL + "/" + post.URLCanonical

	m.Title = post.Title
	if post.SEO.MetaTitle != "" {
		m.Title = post.SEO.MetaTitle
	}
	m.OGTitle = m.Title

	m.Description = post.SEO.MetaDescription
	if m.Description == "" {
		short, _, _ := strings.Cut(post.Content, model.MoreMarker)
		m.Description = truncateText(stripHTML(short), 160)
	}
	m.OGDescription = m.Description

	if thumb := post.Thumbnail(); thumb != model.NotFoundThumbnail {
		m.OGImage = makeAbsoluteURL(thumb, site.SiteURL)
	}
	m.JSONLD = articleSchema(site, post, m)
	return m
}

func base(site SiteConfig) Meta {
	m := Meta{
		OGType:        "website",
		OGSiteName:    site.SiteName,
		OGLocale:      site.Locale,
		TwitterCard:   "summary_large_image",
		FacebookAppID: site.FacebookAppID,
	}
	if site.TwitterHandle != "" {
		m.TwitterSite = "@" + strings.TrimPrefix(site.TwitterHandle, "@")
	}
	return m
}

type articleLD struct {
	Context          string    `json:"@context"`
	Type             string    `json:"@type"`
	Headline         string    `json:"headline"`
	Description      string    `json:"description,omitempty"`
	Image            string    `json:"image,omitempty"`
	DatePublished    string    `json:"datePublished,omitempty"`
	DateModified     string    `json:"dateModified,omitempty"`
	Author           *personLD `json:"author,omitempty"`
	Publisher        *personLD `json:"publisher,omitempty"`
	MainEntityOfPage string    `json:"mainEntityOfPage"`
	Keywords         string    `json:"keywords,omitempty"`
}

type personLD struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

func articleSchema(site SiteConfig, post model.Post, m Meta) template.JS {
	a := articleLD{
		Context:          "https://schema.org",
		Type:             "BlogPosting",
		Headline:         post.Title,
		Description:      m.Description,
		Image:            m.OGImage,
		MainEntityOfPage: m.Canonical,
		Keywords:         strings.Join(post.Tags, ", "),
	}
	if !post.DatePosted.IsZero() {
		a.DatePublished = post.DatePosted.UTC().Format(time.RFC3339)
	}
	if !post.DateModified.IsZero() {
		a.DateModified = post.DateModified.UTC().Format(time.RFC3339)
	}
	if post.Author.DisplayName != "" {
		a.Author = &personLD{Type: "Person", Name: post.Author.DisplayName}
	}
	if site.SiteName != "" {
		a.Publisher = &personLD{Type: "Organization", Name: site.SiteName}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return template.JS(data)
}

// stripHTML removes tags and collapses whitespace.
func stripHTML(html string) string {
	var result strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// truncateText cuts text to at most maxLen runes at a word boundary.
func truncateText(text string, maxLen int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxLen {
		return string(runes)
	}
	truncated := string(runes[:maxLen])
	if i := strings.LastIndex(truncated, " "); i > len(truncated)/2 {
		truncated = truncated[:i]
	}
	return strings.TrimSpace(truncated) + "..."
}

func makeAbsoluteURL(url, siteURL string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return strings.TrimSuffix(siteURL, "/") + url
}
