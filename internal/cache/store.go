// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
)

// watermarkKey is where the HTML watermark is published in the shared tier.
const watermarkKey = "html_min_time"

// Clock returns the current time.
type Clock func() time.Time

// Options configures a Store.
type Options struct {
	// Now defaults to time.Now.
	Now Clock

	// Shared is an optional second tier for HTML fragments.
	Shared Shared

	Logger *slog.Logger
}

// Stats is a snapshot of the store counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
	Shared  bool  `json:"shared"`
}

type entry struct {
	payload   Payload
	createdAt time.Time
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is an expiring key/value store of typed payloads.
//
// One RWMutex guards the entry map. The HTML watermark is a separate atomic
// so invalidation never waits for readers. Values are copied on the way in
// and on the way out; callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	// htmlMinTime is the unix-nano watermark; HTML created before it is stale.
	htmlMinTime atomic.Int64

	now    Clock
	shared Shared
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an empty Store.
func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		entries: make(map[string]entry),
		now:     opts.Now,
		shared:  opts.Shared,
		logger:  opts.Logger,
	}
}

// Put inserts or overwrites key. A zero TTL means the entry never expires.
func (s *Store) Put(key string, p Payload, ttl time.Duration) {
	s.put(key, p, ttl)
}

func (s *Store) put(key string, p Payload, ttl time.Duration) entry {
	now := s.now()
	e := entry{payload: p.clone(), createdAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.store(key, e)
	return e
}

func (s *Store) store(key string, e entry) {
	s.mu.Lock()
	s.entries[key] = e
	n := len(s.entries)
	s.mu.Unlock()
	metrics.CacheEntries.Set(float64(n))
}

// Get returns a copy of the payload stored under key. Non-HTML payloads are
// returned even when past their expiry; HTML fragments are reported absent
// once expired or older than the watermark.
func (s *Store) Get(key string) (Payload, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if ok && e.payload.Kind() == KindHTML && !s.htmlValid(e, s.now()) {
		ok = false
	}
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	metrics.CacheLookupsTotal.WithLabelValues(string(e.payload.Kind()), "hit").Inc()
	return e.payload.clone(), true
}

func (s *Store) htmlValid(e entry, now time.Time) bool {
	return !e.expired(now) && e.createdAt.UnixNano() >= s.htmlMinTime.Load()
}

// RefreshIfExpired calls fetch when key is absent or past its expiry and
// stores the result with a fresh TTL. When fetch fails the existing entry,
// stale or not, is left untouched and the error is returned. No lock is
// held while fetch runs.
func (s *Store) RefreshIfExpired(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (Payload, error)) (bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if ok && !e.expired(s.now()) {
		metrics.CacheRefreshesTotal.WithLabelValues("fresh").Inc()
		return false, nil
	}

	p, err := fetch(ctx)
	if err != nil {
		metrics.CacheRefreshesTotal.WithLabelValues("failed").Inc()
		return false, err
	}
	s.put(key, p, ttl)
	metrics.CacheRefreshesTotal.WithLabelValues("refreshed").Inc()
	return true, nil
}

// Typed accessors

func getAs[T Payload](s *Store, key string) (T, bool) {
	var zero T
	p, ok := s.Get(key)
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues(string(zero.Kind()), "miss").Inc()
		return zero, false
	}
	v, ok := p.(T)
	return v, ok
}

// Excerpts returns the excerpt list stored under key.
func (s *Store) Excerpts(key string) ([]model.PostExcerpt, bool) {
	v, ok := getAs[Excerpts](s, key)
	return v, ok
}

// Instagram returns the Instagram snapshot stored under key.
func (s *Store) Instagram(key string) ([]model.InstagramPost, bool) {
	v, ok := getAs[InstagramFeed](s, key)
	return v, ok
}

// Pinterest returns the Pinterest snapshot stored under key.
func (s *Store) Pinterest(key string) ([]model.PinterestPin, bool) {
	v, ok := getAs[PinterestFeed](s, key)
	return v, ok
}

// Sitemap returns the sitemap stored under key.
func (s *Store) Sitemap(key string) (model.Sitemap, bool) {
	v, ok := getAs[SiteMap](s, key)
	return model.Sitemap(v), ok
}

// HTML fragments

// PutHTML stores a rendered fragment locally and, when configured, in the
// shared tier. Shared-tier failures are logged and otherwise ignored.
func (s *Store) PutHTML(ctx context.Context, key, html string, ttl time.Duration) {
	e := s.put(key, HTML(html), ttl)
	if s.shared == nil {
		return
	}
	if err := s.shared.Set(ctx, key, encodeFragment(e, html), ttl); err != nil {
		s.logger.Warn("shared cache write failed", "key", key, "error", err, "category", model.EventCategoryCache)
	}
}

// GetHTML returns a fragment that is neither expired nor older than the
// watermark. A local miss falls through to the shared tier.
func (s *Store) GetHTML(ctx context.Context, key string) (string, bool) {
	if v, ok := getAs[HTML](s, key); ok {
		return string(v), true
	}
	if s.shared == nil {
		return "", false
	}

	raw, err := s.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("shared cache read failed", "key", key, "error", err, "category", model.EventCategoryCache)
		}
		return "", false
	}
	e, html, ok := decodeFragment(raw)
	if !ok || !s.htmlValid(e, s.now()) {
		return "", false
	}
	s.store(key, e)
	return html, true
}

// InvalidateHTML moves the watermark to now. Every fragment created before
// this instant reads as absent from here on; nothing is removed.
func (s *Store) InvalidateHTML(ctx context.Context) {
	now := s.now().UnixNano()
	s.raiseWatermark(now)
	metrics.CacheInvalidationsTotal.Inc()

	if s.shared == nil {
		return
	}
	if err := s.shared.Set(ctx, watermarkKey, []byte(strconv.FormatInt(now, 10)), 0); err != nil {
		s.logger.Warn("publishing html watermark failed", "error", err, "category", model.EventCategoryCache)
	}
}

// SyncWatermark adopts a newer watermark published by another instance.
func (s *Store) SyncWatermark(ctx context.Context) {
	if s.shared == nil {
		return
	}
	raw, err := s.shared.Get(ctx, watermarkKey)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("reading html watermark failed", "error", err, "category", model.EventCategoryCache)
		}
		return
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return
	}
	s.raiseWatermark(v)
}

// Watermark returns the current HTML watermark.
func (s *Store) Watermark() time.Time {
	return time.Unix(0, s.htmlMinTime.Load())
}

func (s *Store) raiseWatermark(v int64) {
	for {
		cur := s.htmlMinTime.Load()
		if v <= cur || s.htmlMinTime.CompareAndSwap(cur, v) {
			return
		}
	}
}

// PruneExpired drops HTML fragments that can no longer be served. Other
// payloads are kept past their expiry because they are served stale until
// a refresh succeeds.
func (s *Store) PruneExpired() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for k, e := range s.entries {
		if e.payload.Kind() == KindHTML && !s.htmlValid(e, now) {
			delete(s.entries, k)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()
	metrics.CacheEntries.Set(float64(n))
	return removed
}

// Len returns the number of entries, including stale ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.Len(),
		Shared:  s.shared != nil,
	}
}

// Ping checks the shared tier, if any.
func (s *Store) Ping(ctx context.Context) error {
	if s.shared == nil {
		return nil
	}
	return s.shared.Ping(ctx)
}

// Fragment wire format: created and expires as big-endian unix nanos,
// followed by the HTML.
const fragmentHeader = 16

func encodeFragment(e entry, html string) []byte {
	buf := make([]byte, fragmentHeader+len(html))
	binary.BigEndian.PutUint64(buf[0:8], uint64(e.createdAt.UnixNano()))
	var exp int64
	if !e.expiresAt.IsZero() {
		exp = e.expiresAt.UnixNano()
	}
	binary.BigEndian.PutUint64(buf[8:16], uint64(exp))
	copy(buf[fragmentHeader:], html)
	return buf
}

func decodeFragment(raw []byte) (entry, string, bool) {
	if len(raw) < fragmentHeader {
		return entry{}, "", false
	}
	html := string(raw[fragmentHeader:])
	e := entry{
		payload:   HTML(html),
		createdAt: time.Unix(0, int64(binary.BigEndian.Uint64(raw[0:8]))),
	}
	if exp := int64(binary.BigEndian.Uint64(raw[8:16])); exp != 0 {
		e.expiresAt = time.Unix(0, exp)
	}
	return e, html, true
}
