// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/seo"
	"github.com/olegiv/oblog/internal/store"
)

// Page templates.
const (
	TemplateIndex    = "index.html"
	TemplatePost     = "post.html"
	TemplatePostList = "post_list.html"
	TemplateNotFound = "error_404.html"
)

// Cache keys of the auxiliary lists refreshed by maintenance.
const (
	keyInstagram = "instagram_posts"
	keyPinterest = "pinterest_posts"
	keyLatest    = "latest_posts"
	keyFeatured  = "featured_posts"
)

func tagCacheKey(slot int) string {
	return "post_by_tag_" + strconv.Itoa(slot+1)
}

// TagStrip is one of the featured tag sections of the index page.
type TagStrip struct {
	Tag   string
	Title string
	Posts []model.PostExcerpt
}

// Pagination holds the cursors of a paged listing. Current is zero-based.
type Pagination struct {
	Total   int
	Current int
	PrevURL string
	NextURL string
}

// PageContext is the data handed to every page template.
type PageContext struct {
	Template  string
	Site      SiteInfo
	Meta      seo.Meta
	Canonical string
	MainMenu  []model.MenuItem
	Query     string

	Latest       []model.PostExcerpt
	Featured     []model.PostExcerpt
	Instagram    []model.InstagramPost
	Pinterest    []model.PinterestPin
	FeaturedTags []TagStrip

	Post     *model.Post
	Related  []model.PostExcerpt
	Comments []model.Comment

	Tag   *model.Tag
	TagID string
	Posts []model.PostExcerpt
	Pages Pagination
}

// Visit describes the request that displayed a post.
type Visit struct {
	IP        string
	UserAgent string
	Referer   string
}

// baseContext fills the parts shared by every page.
func (b *Blog) baseContext(tmpl string) *PageContext {
	pc := &PageContext{
		Template:  strings.TrimSuffix(tmpl, ".html"),
		Site:      b.settings.Site,
		Canonical: b.settings.Site.URL + "/",
	}
	pc.Meta = seo.SiteMeta(b.settings.seoSite(), pc.Canonical)

	if m, ok := b.Menu("main"); ok {
		pc.MainMenu = m.Items
	}
	pc.Instagram, _ = b.cache.Instagram(keyInstagram)
	pc.Pinterest, _ = b.cache.Pinterest(keyPinterest)
	pc.Latest, _ = b.cache.Excerpts(keyLatest)
	pc.Featured, _ = b.cache.Excerpts(keyFeatured)

	for slot, tag := range b.settings.FeaturedTags {
		if tag == "" {
			continue
		}
		posts, ok := b.cache.Excerpts(tagCacheKey(slot))
		if !ok || len(posts) == 0 {
			continue
		}
		strip := TagStrip{Tag: model.TagKey(tag), Title: tag, Posts: posts}
		if t, ok := b.Tag(tag); ok && t.Title != "" {
			strip.Title = t.Title
		}
		pc.FeaturedTags = append(pc.FeaturedTags, strip)
	}
	return pc
}

func (b *Blog) render(ctx context.Context, key, tmpl string, pc *PageContext, cacheable bool) (string, error) {
	html, err := b.renderer.Render(tmpl, pc)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", tmpl, err)
	}
	if cacheable {
		b.cache.PutHTML(ctx, key, html, b.settings.HTMLTTL)
	}
	return html, nil
}

// HTMLBase renders a page that needs nothing beyond the shared context.
func (b *Blog) HTMLBase(ctx context.Context, tmpl string) (string, error) {
	key := "html_base_" + tmpl
	if html, ok := b.cache.GetHTML(ctx, key); ok {
		return html, nil
	}
	return b.render(ctx, key, tmpl, b.baseContext(tmpl), true)
}

// HTMLIndex renders the home page.
func (b *Blog) HTMLIndex(ctx context.Context) (string, error) {
	return b.HTMLBase(ctx, TemplateIndex)
}

// HTMLNotFound renders the 404 page.
func (b *Blog) HTMLNotFound(ctx context.Context) (string, error) {
	return b.HTMLBase(ctx, TemplateNotFound)
}

// HTMLPost renders a single post. It reports false when the post is not
// published. Every resolved request records a view, cached or not.
func (b *Blog) HTMLPost(ctx context.Context, id int64, v Visit) (string, bool, error) {
	post, ok := b.Post(id)
	if !ok {
		return "", false, nil
	}
	b.RecordView(id, b.now(), v.IP, v.UserAgent, v.Referer)

	key := "html_post_" + strconv.FormatInt(id, 10)
	if html, ok := b.cache.GetHTML(ctx, key); ok {
		return html, true, nil
	}

	pc := b.baseContext(TemplatePost)
	pc.Post = &post
	pc.Meta = seo.PostMeta(b.settings.seoSite(), post)
	pc.Canonical = pc.Meta.Canonical
	pc.Related = b.PostExcerpts(post.Related)
	pc.Comments = b.Comments(id)

	html, err := b.render(ctx, key, TemplatePost, pc, true)
	return html, err == nil, err
}

// listURL builds the address of page (zero-based) of a listing at path.
func listURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if page > 0 {
		q.Set("p", strconv.Itoa(page+1))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func pagination(path string, query url.Values, page, n, perPage int) Pagination {
	p := Pagination{Total: pageTotal(n, perPage), Current: page}
	if page > 0 {
		p.PrevURL = listURL(path, query, page-1)
	}
	if page+1 < p.Total {
		p.NextURL = listURL(path, query, page+1)
	}
	return p
}

// HTMLTag renders page (zero-based) of a tag listing. It reports false when
// no published post carries the tag and no tag record exists.
func (b *Blog) HTMLTag(ctx context.Context, tag string, page int) (string, bool, error) {
	tag = model.TagKey(tag)
	if tag == "" || page < 0 {
		return "", false, nil
	}
	ids := b.tagPostIDs(tag)
	record, hasRecord := b.Tag(tag)
	if len(ids) == 0 && !hasRecord {
		return "", false, nil
	}

	key := fmt.Sprintf("html_tag_%s_%d", tag, page)
	if html, ok := b.cache.GetHTML(ctx, key); ok {
		return html, true, nil
	}

	path := "/tag/" + url.PathEscape(tag)
	pc := b.baseContext(TemplatePostList)
	pc.TagID = tag
	pc.Canonical = b.settings.Site.URL + listURL(path, nil, page)
	if hasRecord {
		pc.Tag = &record
		pc.Meta = seo.TagMeta(b.settings.seoSite(), record, pc.Canonical)
	} else {
		pc.Meta = seo.SiteMeta(b.settings.seoSite(), pc.Canonical)
		pc.Meta.Title, pc.Meta.OGTitle = tag, tag
	}
	pc.Posts = b.PostExcerpts(Paginate(ids, page, b.settings.PostsPerPage))
	pc.Pages = pagination(path, nil, page, len(ids), b.settings.PostsPerPage)

	html, err := b.render(ctx, key, TemplatePostList, pc, true)
	return html, err == nil, err
}

// NormaliseQuery lowercases a search query and keeps its first words.
func NormaliseQuery(q string) string {
	return strings.Join(store.SearchWords(strings.ToLower(q)), " ")
}

// HTMLSearch renders page (zero-based) of the results for query. A failed
// search renders an empty result list that is not cached.
func (b *Blog) HTMLSearch(ctx context.Context, query string, page int) (string, error) {
	query = NormaliseQuery(query)
	if page < 0 {
		page = 0
	}

	key := fmt.Sprintf("html_search_%s_%d", query, page)
	if html, ok := b.cache.GetHTML(ctx, key); ok {
		return html, nil
	}

	cacheable := true
	var ids []int64
	if query != "" {
		var err error
		ids, err = b.db.SearchPostIDs(ctx, query)
		if err != nil {
			b.logger.Warn("search failed", "query", query, "error", err)
			ids, cacheable = nil, false
		}
	}

	q := url.Values{"q": {query}}
	pc := b.baseContext(TemplatePostList)
	pc.Query = query
	pc.Canonical = b.settings.Site.URL + listURL("/search", q, page)
	pc.Meta = seo.SiteMeta(b.settings.seoSite(), pc.Canonical)
	if query != "" {
		pc.Meta.Title = "Search: " + query
		pc.Meta.OGTitle = pc.Meta.Title
	}
	pc.Posts = b.PostExcerpts(Paginate(ids, page, b.settings.PostsPerPage))
	pc.Pages = pagination("/search", q, page, len(ids), b.settings.PostsPerPage)

	return b.render(ctx, key, TemplatePostList, pc, cacheable)
}

// HTMLSitemap returns sitemap.xml built from the last posts reload.
func (b *Blog) HTMLSitemap(ctx context.Context) (string, error) {
	const key = "html_site_map"
	if doc, ok := b.cache.GetHTML(ctx, key); ok {
		return doc, nil
	}
	sm, _ := b.cache.Sitemap(sitemapKey)
	raw, err := seo.SitemapXML(sm)
	if err != nil {
		return "", fmt.Errorf("building sitemap: %w", err)
	}
	doc := string(raw)
	b.cache.PutHTML(ctx, key, doc, b.settings.HTMLTTL)
	return doc, nil
}

// feedSize is the number of posts in the RSS feed when the latest list is cold.
const feedSize = 8

// HTMLFeed returns the RSS feed of the latest posts.
func (b *Blog) HTMLFeed(ctx context.Context) (string, error) {
	const key = "html_rss_feed"
	if doc, ok := b.cache.GetHTML(ctx, key); ok {
		return doc, nil
	}

	posts, ok := b.cache.Excerpts(keyLatest)
	if !ok {
		ids, err := b.db.LatestPostIDs(ctx, feedSize)
		if err != nil {
			return "", fmt.Errorf("loading latest posts: %w", err)
		}
		posts = b.PostExcerpts(ids)
	}

	site := b.settings.Site
	raw, err := seo.RSS(seo.Channel{
		Title:       site.Title,
		Link:        site.URL,
		Description: site.MetaDescription,
		Language:    site.Locale,
	}, posts)
	if err != nil {
		return "", fmt.Errorf("building feed: %w", err)
	}
	doc := string(raw)
	b.cache.PutHTML(ctx, key, doc, b.settings.HTMLTTL)
	return doc, nil
}
