// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// Sitemap lists every public URL of the site.
type Sitemap struct {
	URLs []SitemapURL
}

// SitemapURL is one <url> element.
type SitemapURL struct {
	Loc      string
	LastMod  time.Time
	Priority float64
	Images   []SitemapImage
}

// SitemapImage is an image attached to a sitemap URL.
type SitemapImage struct {
	Loc   string
	Title string
}

// Clone returns a deep copy.
func (s Sitemap) Clone() Sitemap {
	urls := make([]SitemapURL, len(s.URLs))
	for i, u := range s.URLs {
		u.Images = slices.Clone(u.Images)
		urls[i] = u
	}
	return Sitemap{URLs: urls}
}
