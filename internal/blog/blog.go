// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blog is the in-memory content store that serves every public page.
//
// Posts, excerpts and the two SEO URL indexes are replaced together by
// ReloadPosts while holding all four of their write locks; that is the only
// code path taking more than one of them, always in the order posts,
// excerpts, canonical, historic. Tags, menus, redirects and comments each
// have an independent lock and reload on their own. No lock is ever held
// across I/O: everything is fetched and transformed first, then swapped in.
package blog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/config"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/seo"
)

// ErrEmptyResult marks an auxiliary refresh that produced nothing. The
// previous cache value is kept, exactly as for a failed fetch.
var ErrEmptyResult = errors.New("empty result")

// Persistence is the subset of the store the content store reads and writes.
// *store.Queries satisfies it.
type Persistence interface {
	LoadPosts(ctx context.Context) ([]model.Post, error)
	LoadSnippets(ctx context.Context) ([]model.Snippet, error)
	LoadTags(ctx context.Context) ([]model.Tag, error)
	LoadMenus(ctx context.Context) ([]model.Menu, error)
	LoadRedirects(ctx context.Context) ([]model.Redirect, error)
	LoadApprovedComments(ctx context.Context) ([]model.Comment, error)
	LatestPostIDs(ctx context.Context, limit int) ([]int64, error)
	MostViewedPostIDs(ctx context.Context, since time.Time, limit int) ([]int64, error)
	SearchPostIDs(ctx context.Context, query string) ([]int64, error)
	LogPostViews(ctx context.Context, views []model.ViewEvent) error
}

// Renderer turns a page context into HTML. *render.Renderer satisfies it.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// FeedSource fetches the social feed snapshots. *feed.Client satisfies it.
type FeedSource interface {
	Instagram(ctx context.Context) ([]model.InstagramPost, error)
	Pinterest(ctx context.Context) ([]model.PinterestPin, error)
}

// CountryResolver maps a client IP to an ISO country code, "" when unknown.
type CountryResolver interface {
	Country(ip string) string
}

// Settings are the configuration values the content store consumes.
type Settings struct {
	Site         SiteInfo
	PostsPerPage int
	FeaturedTags [5]string

	HTMLTTL      time.Duration
	InstagramTTL time.Duration
	PinterestTTL time.Duration
	LatestTTL    time.Duration
	FeaturedTTL  time.Duration
	TagTTL       time.Duration
}

// SiteInfo is the site metadata handed to every template.
type SiteInfo struct {
	FQDN            string
	URL             string // https://{fqdn}
	Title           string
	Subtitle        string
	MetaTitle       string
	MetaDescription string
	Locale          string
	FacebookAppID   string
	FacebookUser    string
	TwitterUser     string
	InstagramUser   string
	PinterestUser   string
	YouTubeChannel  string
}

// SettingsFromConfig maps the application configuration onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := cfg.Site
	return Settings{
		Site: SiteInfo{
			FQDN:            s.FQDN,
			URL:             "https://" + s.FQDN,
			Title:           s.Title,
			Subtitle:        s.Subtitle,
			MetaTitle:       s.MetaTitle,
			MetaDescription: s.MetaDescription,
			Locale:          s.Locale,
			FacebookAppID:   s.FacebookAppID,
			FacebookUser:    s.FacebookUser,
			TwitterUser:     s.TwitterUser,
			InstagramUser:   s.InstagramUser,
			PinterestUser:   s.PinterestUser,
			YouTubeChannel:  s.YouTubeChannel,
		},
		PostsPerPage: cfg.PostsPerPage,
		FeaturedTags: cfg.FeaturedTags(),
		HTMLTTL:      cfg.CacheExpireHTML,
		InstagramTTL: cfg.InstagramLifetime,
		PinterestTTL: cfg.PinterestLifetime,
		LatestTTL:    cfg.LatestPostsLifetime,
		FeaturedTTL:  cfg.FeaturedPostsLifetime,
		TagTTL:       cfg.CachedTagLifetime,
	}
}

func (s Settings) seoSite() seo.SiteConfig {
	return seo.SiteConfig{
		SiteName:        s.Site.Title,
		SiteURL:         s.Site.URL,
		MetaTitle:       s.Site.MetaTitle,
		MetaDescription: s.Site.MetaDescription,
		Locale:          s.Site.Locale,
		TwitterHandle:   s.Site.TwitterUser,
		FacebookAppID:   s.Site.FacebookAppID,
	}
}

// Options wires the collaborators of a Blog.
type Options struct {
	Store    Persistence
	Cache    *cache.Store
	Renderer Renderer
	Feeds    FeedSource      // optional
	Geo      CountryResolver // optional
	Settings Settings
	Logger   *slog.Logger
	Now      func() time.Time
}

// Blog owns the serving tables. Construct it with New and share the pointer.
type Blog struct {
	db       Persistence
	cache    *cache.Store
	renderer Renderer
	feeds    FeedSource
	geo      CountryResolver
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
	markdown goldmark.Markdown

	postsMu sync.RWMutex
	posts   map[int64]model.Post

	excerptsMu sync.RWMutex
	excerpts   map[int64]model.PostExcerpt

	seoMu   sync.RWMutex
	seoURLs map[string]int64

	seoHistoricMu   sync.RWMutex
	seoURLsHistoric map[string]int64

	tagIndexMu sync.RWMutex
	tagIndex   map[string][]int64

	tagsMu sync.RWMutex
	tags   map[string]model.Tag

	menusMu sync.RWMutex
	menus   map[string]model.Menu

	redirectsMu sync.RWMutex
	redirects   map[string]string

	commentsMu sync.RWMutex
	comments   map[int64][]model.Comment

	views *viewBuffer
}

// New creates an empty Blog. Call Startup before serving requests.
func New(opts Options) *Blog {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Settings.PostsPerPage <= 0 {
		opts.Settings.PostsPerPage = 10
	}
	return &Blog{
		db:              opts.Store,
		cache:           opts.Cache,
		renderer:        opts.Renderer,
		feeds:           opts.Feeds,
		geo:             opts.Geo,
		settings:        opts.Settings,
		logger:          opts.Logger,
		now:             opts.Now,
		markdown:        goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe())),
		posts:           map[int64]model.Post{},
		excerpts:        map[int64]model.PostExcerpt{},
		seoURLs:         map[string]int64{},
		seoURLsHistoric: map[string]int64{},
		tagIndex:        map[string][]int64{},
		tags:            map[string]model.Tag{},
		menus:           map[string]model.Menu{},
		redirects:       map[string]string{},
		comments:        map[int64][]model.Comment{},
		views:           newViewBuffer(MaxPendingViews),
	}
}

// Settings returns the settings the blog was built with.
func (b *Blog) Settings() Settings {
	return b.settings
}

// Counts is the number of items currently served per content kind.
type Counts struct {
	Posts     int `json:"posts"`
	Excerpts  int `json:"excerpts"`
	SEOURLs   int `json:"seo_urls"`
	Historic  int `json:"seo_urls_historic"`
	Tags      int `json:"tags"`
	Menus     int `json:"menus"`
	Redirects int `json:"redirects"`
	Comments  int `json:"comments"`
	Views     int `json:"views_pending"`
}

// Counts returns a snapshot of the table sizes. The post-derived counts are
// read under the same four locks ReloadPosts takes, so they always agree.
func (b *Blog) Counts() Counts {
	var c Counts

	b.postsMu.RLock()
	b.excerptsMu.RLock()
	b.seoMu.RLock()
	b.seoHistoricMu.RLock()
	c.Posts = len(b.posts)
	c.Excerpts = len(b.excerpts)
	c.SEOURLs = len(b.seoURLs)
	c.Historic = len(b.seoURLsHistoric)
	b.seoHistoricMu.RUnlock()
	b.seoMu.RUnlock()
	b.excerptsMu.RUnlock()
	b.postsMu.RUnlock()

	b.tagsMu.RLock()
	c.Tags = len(b.tags)
	b.tagsMu.RUnlock()

	b.menusMu.RLock()
	c.Menus = len(b.menus)
	b.menusMu.RUnlock()

	b.redirectsMu.RLock()
	c.Redirects = len(b.redirects)
	b.redirectsMu.RUnlock()

	b.commentsMu.RLock()
	for _, cs := range b.comments {
		c.Comments += len(cs)
	}
	b.commentsMu.RUnlock()

	c.Views = b.views.len()
	return c
}
