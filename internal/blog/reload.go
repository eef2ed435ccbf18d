// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blog

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
)

// sitemapKey holds the structured sitemap; it never expires.
const sitemapKey = "site_map"

// tagPageAge is how old tag listing pages claim to be in the sitemap.
const tagPageAge = 7 * 24 * time.Hour

// postGeneration is everything ReloadPosts swaps in.
type postGeneration struct {
	posts    map[int64]model.Post
	excerpts map[int64]model.PostExcerpt
	seo      map[string]int64
	historic map[string]int64
	tagIndex map[string][]int64
	tagOrder []string
}

func observeReload(kind string, start time.Time, n int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	} else {
		metrics.ContentItems.WithLabelValues(kind).Set(float64(n))
	}
	metrics.ContentReloadsTotal.WithLabelValues(kind, result).Inc()
	metrics.ContentReloadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ReloadPosts replaces posts, excerpts, both SEO indexes, the tag index and
// the sitemap with a fresh generation from the database. On error the
// previous generation keeps serving.
func (b *Blog) ReloadPosts(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observeReload("posts", start, n, err) }()

	rows, err := b.db.LoadPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading posts: %w", err)
	}

	snippets := map[string]model.Snippet{}
	if list, serr := b.db.LoadSnippets(ctx); serr != nil {
		b.logger.Warn("loading snippets failed, posts keep their placeholders", "error", serr, "category", model.EventCategoryContent)
	} else {
		for _, s := range list {
			snippets[s.Name] = s
		}
	}

	gen := b.buildGeneration(rows, snippets)
	sitemap := b.buildSitemap(rows, gen)

	b.postsMu.Lock()
	b.excerptsMu.Lock()
	b.seoMu.Lock()
	b.seoHistoricMu.Lock()
	b.posts = gen.posts
	b.excerpts = gen.excerpts
	b.seoURLs = gen.seo
	b.seoURLsHistoric = gen.historic
	b.seoHistoricMu.Unlock()
	b.seoMu.Unlock()
	b.excerptsMu.Unlock()
	b.postsMu.Unlock()

	b.tagIndexMu.Lock()
	b.tagIndex = gen.tagIndex
	b.tagIndexMu.Unlock()

	b.cache.Put(sitemapKey, cache.SiteMap(sitemap), 0)
	return len(gen.posts), nil
}

func (b *Blog) buildGeneration(rows []model.Post, snippets map[string]model.Snippet) postGeneration {
	gen := postGeneration{
		posts:    make(map[int64]model.Post, len(rows)),
		excerpts: make(map[int64]model.PostExcerpt, len(rows)),
		seo:      make(map[string]int64, len(rows)),
		historic: make(map[string]int64),
		tagIndex: make(map[string][]int64),
	}
	for _, p := range rows {
		p.Content = model.ApplySnippets(p.Content, snippets)
		if p.Format == model.FormatMarkdown {
			p.Content = b.markdownToHTML(p)
		}

		gen.seo[model.SEOKey(p.URLCanonical)] = p.ID
		for _, h := range p.URLHistoric {
			gen.historic[model.SEOKey(h)] = p.ID
		}
		for _, label := range p.Tags {
			key := model.TagKey(label)
			if key == "" {
				continue
			}
			if _, seen := gen.tagIndex[key]; !seen {
				gen.tagOrder = append(gen.tagOrder, key)
			}
			gen.tagIndex[key] = append(gen.tagIndex[key], p.ID)
		}
		gen.excerpts[p.ID] = p.Excerpt()
		gen.posts[p.ID] = p
	}
	return gen
}

// markdownToHTML converts a markdown body. On failure the raw body is kept.
func (b *Blog) markdownToHTML(p model.Post) string {
	var buf bytes.Buffer
	if err := b.markdown.Convert([]byte(p.Content), &buf); err != nil {
		b.logger.Warn("converting markdown failed", "post_id", p.ID, "error", err, "category", model.EventCategoryContent)
		return p.Content
	}
	return buf.String()
}

// ConvertBody renders a post body the way ReloadPosts would, without storing it.
func (b *Blog) ConvertBody(ctx context.Context, p model.Post) string {
	snippets := map[string]model.Snippet{}
	if list, err := b.db.LoadSnippets(ctx); err == nil {
		for _, s := range list {
			snippets[s.Name] = s
		}
	}
	p.Content = model.ApplySnippets(p.Content, snippets)
	if p.Format == model.FormatMarkdown {
		return b.markdownToHTML(p)
	}
	return p.Content
}

// buildSitemap lists every post, then every page of every tag listing.
func (b *Blog) buildSitemap(rows []model.Post, gen postGeneration) model.Sitemap {
	base := b.settings.Site.URL + "/"
	sm := model.Sitemap{URLs: make([]model.SitemapURL, 0, len(rows)+len(gen.tagIndex))}

	for _, p := range rows {
		u := model.SitemapURL{
			Loc:      base + p.URLCanonical,
			LastMod:  p.DateModified,
			Priority: 0.9,
		}
		for _, m := range p.Media {
			if loc, ok := b.hostedImage(m.URL); ok {
				u.Images = append(u.Images, model.SitemapImage{Loc: loc, Title: m.Title})
			}
		}
		sm.URLs = append(sm.URLs, u)
	}

	tagMod := b.now().Add(-tagPageAge)
	perPage := b.settings.PostsPerPage
	tags := slices.Clone(gen.tagOrder)
	slices.Sort(tags)
	for _, tag := range tags {
		pages := (len(gen.tagIndex[tag]) + perPage - 1) / perPage
		for page := 1; page <= pages; page++ {
			loc := base + "tag/" + tag
			if page > 1 {
				loc += fmt.Sprintf("?p=%d", page)
			}
			sm.URLs = append(sm.URLs, model.SitemapURL{Loc: loc, LastMod: tagMod, Priority: 0.5})
		}
	}
	return sm
}

// hostedImage returns the absolute URL of an image served by this site.
func (b *Blog) hostedImage(url string) (string, bool) {
	switch {
	case url == "":
		return "", false
	case strings.HasPrefix(url, "/") && !strings.HasPrefix(url, "//"):
		return b.settings.Site.URL + url, true
	case b.settings.Site.FQDN != "" && strings.Contains(url, "://"+b.settings.Site.FQDN+"/"):
		return url, true
	default:
		return "", false
	}
}

// ReloadTags replaces the tag table.
func (b *Blog) ReloadTags(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observeReload("tags", start, n, err) }()

	rows, err := b.db.LoadTags(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading tags: %w", err)
	}
	next := make(map[string]model.Tag, len(rows))
	for _, t := range rows {
		next[t.ID] = t
	}

	b.tagsMu.Lock()
	b.tags = next
	b.tagsMu.Unlock()
	return len(next), nil
}

// ReloadMenus replaces the menu table, keyed by menu name.
func (b *Blog) ReloadMenus(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observeReload("menus", start, n, err) }()

	rows, err := b.db.LoadMenus(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading menus: %w", err)
	}
	next := make(map[string]model.Menu, len(rows))
	for _, m := range rows {
		next[m.Name] = m
	}

	b.menusMu.Lock()
	b.menus = next
	b.menusMu.Unlock()
	return len(next), nil
}

// ReloadRedirects replaces the redirect table.
func (b *Blog) ReloadRedirects(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observeReload("redirects", start, n, err) }()

	rows, err := b.db.LoadRedirects(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading redirects: %w", err)
	}
	next := make(map[string]string, len(rows))
	for _, r := range rows {
		next[r.Name] = r.URL
	}

	b.redirectsMu.Lock()
	b.redirects = next
	b.redirectsMu.Unlock()
	return len(next), nil
}

// ReloadComments replaces the approved comments, grouped by post.
func (b *Blog) ReloadComments(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observeReload("comments", start, n, err) }()

	rows, err := b.db.LoadApprovedComments(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading comments: %w", err)
	}
	next := make(map[int64][]model.Comment)
	for _, c := range rows {
		next[c.PostID] = append(next[c.PostID], c)
	}

	b.commentsMu.Lock()
	b.comments = next
	b.commentsMu.Unlock()
	return len(rows), nil
}
