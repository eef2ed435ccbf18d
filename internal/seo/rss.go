// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/olegiv/oblog/internal/model"
)

// Channel describes the feed as a whole.
type Channel struct {
	Title       string
	Link        string // absolute site URL without trailing slash
	Description string
	Language    string
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Self          atomLink  `xml:"atom:link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	GUID        rssGUID       `xml:"guid"`
	PubDate     string        `xml:"pubDate"`
	Description string        `xml:"description"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	Value     string `xml:",chardata"`
	Permalink bool   `xml:"isPermaLink,attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

// RSS renders an RSS 2.0 feed of the given excerpts, newest first as passed.
func RSS(ch Channel, posts []model.PostExcerpt) ([]byte, error) {
	doc := rssDoc{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link + "/",
			Self:        atomLink{Href: ch.Link + "/feed", Rel: "self", Type: "application/rss+xml"},
			Description: ch.Description,
			Language:    ch.Language,
		},
	}

	var newest time.Time
	for _, p := range posts {
		link := ch.Link + "/" + p.URL
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{Value: ch.Link + "/?p=" + strconv.FormatInt(p.ID, 10)},
			PubDate:     p.DatePosted.UTC().Format(time.RFC1123Z),
			Description: p.ContentShort,
		}
		if p.Thumbnail != "" && p.Thumbnail != model.NotFoundThumbnail {
			item.Enclosure = &rssEnclosure{URL: makeAbsoluteURL(p.Thumbnail, ch.Link), Type: "image/jpeg", Length: "0"}
		}
		if p.DatePosted.After(newest) {
			newest = p.DatePosted
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}
	if !newest.IsZero() {
		doc.Channel.LastBuildDate = newest.UTC().Format(time.RFC1123Z)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
