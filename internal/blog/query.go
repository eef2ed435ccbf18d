// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blog

import (
	"slices"
	"strings"

	"github.com/olegiv/oblog/internal/model"
)

// PostIDBySEOURL resolves a request path to a post id, or 0 when unknown.
// Canonical URLs take precedence over historic ones. Both indexes are read
// under their locks together so the lookup sees a single generation.
func (b *Blog) PostIDBySEOURL(url string) int64 {
	key := model.SEOKey(url)
	if key == "" {
		return 0
	}

	b.seoMu.RLock()
	b.seoHistoricMu.RLock()
	defer b.seoMu.RUnlock()
	defer b.seoHistoricMu.RUnlock()

	if id, ok := b.seoURLs[key]; ok {
		return id
	}
	return b.seoURLsHistoric[key]
}

// PostExcerpts resolves ids to excerpts in input order, skipping unknown ids.
func (b *Blog) PostExcerpts(ids []int64) []model.PostExcerpt {
	out := make([]model.PostExcerpt, 0, len(ids))

	b.excerptsMu.RLock()
	defer b.excerptsMu.RUnlock()
	for _, id := range ids {
		if e, ok := b.excerpts[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// tagPostIDs returns a copy of the ids indexed under tag.
func (b *Blog) tagPostIDs(tag string) []int64 {
	b.tagIndexMu.RLock()
	defer b.tagIndexMu.RUnlock()
	return slices.Clone(b.tagIndex[model.TagKey(tag)])
}

// PostExcerptsByTag returns up to limit excerpts for tag, newest first.
func (b *Blog) PostExcerptsByTag(tag string, limit int) []model.PostExcerpt {
	return b.PostExcerpts(Paginate(b.tagPostIDs(tag), 0, limit))
}

// Paginate returns ids[page*size : page*size+size], clamped to the list.
func Paginate(ids []int64, page, size int) []int64 {
	if page < 0 || size <= 0 {
		return []int64{}
	}
	start := page * size
	if start >= len(ids) {
		return []int64{}
	}
	end := min(start+size, len(ids))
	return slices.Clone(ids[start:end])
}

// pageTotal is the number of pages needed for n items.
func pageTotal(n, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}

// Post returns the published post with the given id.
func (b *Blog) Post(id int64) (model.Post, bool) {
	b.postsMu.RLock()
	defer b.postsMu.RUnlock()
	p, ok := b.posts[id]
	return p, ok
}

// Tag returns the tag record for a tag key.
func (b *Blog) Tag(id string) (model.Tag, bool) {
	b.tagsMu.RLock()
	defer b.tagsMu.RUnlock()
	t, ok := b.tags[model.TagKey(id)]
	return t, ok
}

// Menu returns the menu with the given name.
func (b *Blog) Menu(name string) (model.Menu, bool) {
	b.menusMu.RLock()
	defer b.menusMu.RUnlock()
	m, ok := b.menus[name]
	return m, ok
}

// Comments returns the approved comments of a post in posting order.
func (b *Blog) Comments(postID int64) []model.Comment {
	b.commentsMu.RLock()
	defer b.commentsMu.RUnlock()
	return slices.Clone(b.comments[postID])
}

// TagUsage is a tag key with the number of published posts carrying it.
type TagUsage struct {
	Tag   string `json:"tag"`
	Title string `json:"title"`
	Posts int    `json:"posts"`
}

// InUseTags lists every tag referenced by a published post, most used first.
func (b *Blog) InUseTags() []TagUsage {
	b.tagIndexMu.RLock()
	out := make([]TagUsage, 0, len(b.tagIndex))
	for tag, ids := range b.tagIndex {
		out = append(out, TagUsage{Tag: tag, Title: tag, Posts: len(ids)})
	}
	b.tagIndexMu.RUnlock()

	b.tagsMu.RLock()
	for i := range out {
		if t, ok := b.tags[out[i].Tag]; ok && t.Title != "" {
			out[i].Title = t.Title
		}
	}
	b.tagsMu.RUnlock()

	slices.SortFunc(out, func(a, c TagUsage) int {
		if a.Posts != c.Posts {
			return c.Posts - a.Posts
		}
		return strings.Compare(a.Tag, c.Tag)
	})
	return out
}

// LookupRedirect returns the target for a named redirect, or the site root.
func (b *Blog) LookupRedirect(name string) string {
	b.redirectsMu.RLock()
	url, ok := b.redirects[name]
	b.redirectsMu.RUnlock()
	if !ok || url == "" {
		return b.settings.Site.URL
	}
	return url
}
