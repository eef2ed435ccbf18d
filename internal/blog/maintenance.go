// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/feed"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
)

// Sizes of the auxiliary excerpt lists.
const (
	latestCount   = 8
	featuredCount = 8
	tagStripCount = 8

	featuredWindow = 30 * 24 * time.Hour
)

type refreshJob struct {
	key   string
	ttl   time.Duration
	fetch func(context.Context) (cache.Payload, error)
}

func (b *Blog) refreshJobs() []refreshJob {
	s := b.settings
	jobs := []refreshJob{
		{keyLatest, s.LatestTTL, b.fetchLatest},
		{keyFeatured, s.FeaturedTTL, b.fetchFeatured},
	}
	if b.feeds != nil {
		jobs = append(jobs,
			refreshJob{keyInstagram, s.InstagramTTL, b.fetchInstagram},
			refreshJob{keyPinterest, s.PinterestTTL, b.fetchPinterest},
		)
	}
	for slot, tag := range s.FeaturedTags {
		if tag == "" {
			continue
		}
		jobs = append(jobs, refreshJob{tagCacheKey(slot), s.TagTTL, b.fetchTag(tag)})
	}
	return jobs
}

func (b *Blog) excerptsPayload(ids []int64) (cache.Payload, error) {
	list := b.PostExcerpts(ids)
	if len(list) == 0 {
		return nil, ErrEmptyResult
	}
	return cache.Excerpts(list), nil
}

func (b *Blog) fetchLatest(ctx context.Context) (cache.Payload, error) {
	ids, err := b.db.LatestPostIDs(ctx, latestCount)
	if err != nil {
		return nil, err
	}
	return b.excerptsPayload(ids)
}

func (b *Blog) fetchFeatured(ctx context.Context) (cache.Payload, error) {
	ids, err := b.db.MostViewedPostIDs(ctx, b.now().Add(-featuredWindow), featuredCount)
	if err != nil {
		return nil, err
	}
	return b.excerptsPayload(ids)
}

func (b *Blog) fetchTag(tag string) func(context.Context) (cache.Payload, error) {
	return func(context.Context) (cache.Payload, error) {
		list := b.PostExcerptsByTag(tag, tagStripCount)
		if len(list) == 0 {
			return nil, ErrEmptyResult
		}
		return cache.Excerpts(list), nil
	}
}

func (b *Blog) fetchInstagram(ctx context.Context) (cache.Payload, error) {
	posts, err := b.feeds.Instagram(ctx)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrEmptyResult
	}
	return cache.InstagramFeed(posts), nil
}

func (b *Blog) fetchPinterest(ctx context.Context) (cache.Payload, error) {
	pins, err := b.feeds.Pinterest(ctx)
	if err != nil {
		return nil, err
	}
	if len(pins) == 0 {
		return nil, ErrEmptyResult
	}
	return cache.PinterestFeed(pins), nil
}

// RefreshAuxiliary refreshes every expired auxiliary list. A failure only
// skips that entry; the stale value keeps serving until the next cycle.
func (b *Blog) RefreshAuxiliary(ctx context.Context) int {
	refreshed := 0
	for _, job := range b.refreshJobs() {
		ok, err := b.cache.RefreshIfExpired(ctx, job.key, job.ttl, job.fetch)
		switch {
		case errors.Is(err, feed.ErrNotConfigured):
		case errors.Is(err, ErrEmptyResult):
			b.logger.Debug("refresh returned nothing, keeping previous value", "key", job.key)
		case err != nil:
			b.logger.Warn("cache refresh failed", "key", job.key, "error", err, "category", model.EventCategoryCache)
		case ok:
			refreshed++
		}
	}
	return refreshed
}

// RunMaintenance is one maintenance cycle: refresh the auxiliary lists,
// adopt a newer shared HTML watermark, prune expired entries and flush the
// buffered views. Only the flush error is returned.
func (b *Blog) RunMaintenance(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.MaintenanceDuration.Observe(time.Since(start).Seconds()) }()

	refreshed := b.RefreshAuxiliary(ctx)
	b.cache.SyncWatermark(ctx)
	pruned := b.cache.PruneExpired()

	flushed, err := b.FlushViews(ctx)
	if err != nil {
		b.logger.Warn("view flush failed", "error", err, "pending", b.PendingViews())
	}
	if refreshed > 0 || pruned > 0 || flushed > 0 {
		b.logger.Debug("maintenance done", "refreshed", refreshed, "pruned", pruned, "views", flushed)
	}
	return err
}

// InvalidateHTMLCache drops every rendered page at once.
func (b *Blog) InvalidateHTMLCache(ctx context.Context) {
	b.cache.InvalidateHTML(ctx)
}

// Startup loads every content kind and warms the auxiliary caches. Only a
// posts failure is returned; the other kinds start empty when they fail.
func (b *Blog) Startup(ctx context.Context) error {
	if _, err := b.ReloadPosts(ctx); err != nil {
		return fmt.Errorf("initial posts load: %w", err)
	}

	reloads := []struct {
		kind string
		fn   func(context.Context) (int, error)
	}{
		{"menus", b.ReloadMenus},
		{"redirects", b.ReloadRedirects},
		{"tags", b.ReloadTags},
		{"comments", b.ReloadComments},
	}
	for _, r := range reloads {
		if _, err := r.fn(ctx); err != nil {
			b.logger.Error("initial load failed", "kind", r.kind, "error", err, "category", model.EventCategoryContent)
		}
	}

	c := b.Counts()
	b.logger.Info("content loaded",
		"posts", c.Posts,
		"seo_urls", c.SEOURLs,
		"historic_urls", c.Historic,
		"tags", c.Tags,
		"menus", c.Menus,
		"redirects", c.Redirects,
		"comments", c.Comments,
	)

	b.RefreshAuxiliary(ctx)
	return nil
}

// Reload reloads one content kind by name and returns the number of items.
// "html" invalidates the rendered pages and returns 0.
func (b *Blog) Reload(ctx context.Context, which string) (int, error) {
	switch which {
	case "posts":
		return b.ReloadPosts(ctx)
	case "tags":
		return b.ReloadTags(ctx)
	case "menus":
		return b.ReloadMenus(ctx)
	case "redirects":
		return b.ReloadRedirects(ctx)
	case "comments":
		return b.ReloadComments(ctx)
	case "html":
		b.InvalidateHTMLCache(ctx)
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, which)
	}
}

// ErrUnknownKind is returned by Reload for an unsupported content kind.
var ErrUnknownKind = errors.New("unknown content kind")
