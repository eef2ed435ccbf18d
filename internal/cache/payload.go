// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"slices"

	"github.com/olegiv/oblog/internal/model"
)

// Kind identifies the payload variant of a cache entry.
type Kind string

// Payload kinds
const (
	KindExcerpts  Kind = "excerpts"
	KindInstagram Kind = "instagram"
	KindPinterest Kind = "pinterest"
	KindSitemap   Kind = "sitemap"
	KindHTML      Kind = "html"
)

// Payload is the closed set of values the Store can hold. Only the types
// declared in this file implement it.
type Payload interface {
	Kind() Kind
	clone() Payload
}

// Excerpts is a cached list of post excerpts.
type Excerpts []model.PostExcerpt

// InstagramFeed is a cached Instagram snapshot.
type InstagramFeed []model.InstagramPost

// PinterestFeed is a cached Pinterest snapshot.
type PinterestFeed []model.PinterestPin

// SiteMap is the cached sitemap aggregate.
type SiteMap model.Sitemap

// HTML is a rendered page fragment.
type HTML string

func (Excerpts) Kind() Kind      { return KindExcerpts }
func (InstagramFeed) Kind() Kind { return KindInstagram }
func (PinterestFeed) Kind() Kind { return KindPinterest }
func (SiteMap) Kind() Kind       { return KindSitemap }
func (HTML) Kind() Kind          { return KindHTML }

func (p Excerpts) clone() Payload      { return slices.Clone(p) }
func (p InstagramFeed) clone() Payload { return slices.Clone(p) }
func (p PinterestFeed) clone() Payload { return slices.Clone(p) }
func (p SiteMap) clone() Payload       { return SiteMap(model.Sitemap(p).Clone()) }
func (p HTML) clone() Payload          { return p }
