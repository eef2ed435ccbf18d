// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/olegiv/oblog/internal/model"
)

// Sitemap namespaces.
const (
	XMLNamespace   = "http://www.sitemaps.org/schemas/sitemap/0.9"
	ImageNamespace = "http://www.google.com/schemas/sitemap-image/1.1"
)

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	Image   string   `xml:"xmlns:image,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc      string     `xml:"loc"`
	LastMod  string     `xml:"lastmod,omitempty"`
	Priority string     `xml:"priority,omitempty"`
	Images   []xmlImage `xml:"image:image"`
}

type xmlImage struct {
	Loc   string `xml:"image:loc"`
	Title string `xml:"image:title,omitempty"`
}

// SitemapXML renders a sitemap document, including image extensions.
func SitemapXML(sm model.Sitemap) ([]byte, error) {
	set := xmlURLSet{
		XMLNS: XMLNamespace,
		Image: ImageNamespace,
		URLs:  make([]xmlURL, 0, len(sm.URLs)),
	}
	for _, u := range sm.URLs {
		x := xmlURL{Loc: u.Loc}
		if !u.LastMod.IsZero() {
			x.LastMod = u.LastMod.UTC().Format(time.RFC3339)
		}
		if u.Priority > 0 {
			x.Priority = strconv.FormatFloat(u.Priority, 'f', 1, 64)
		}
		for _, img := range u.Images {
			x.Images = append(x.Images, xmlImage{Loc: img.Loc, Title: img.Title})
		}
		set.URLs = append(set.URLs, x)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
