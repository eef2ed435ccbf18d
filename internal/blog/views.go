// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
)

// MaxPendingViews bounds the view buffer. The oldest events are dropped
// first when it overflows, which only happens while the database is down.
const MaxPendingViews = 10000

// viewBuffer is an append-only queue drained in one piece by maintenance.
type viewBuffer struct {
	mu      sync.Mutex
	events  []model.ViewEvent
	max     int
	dropped int64
}

func newViewBuffer(limit int) *viewBuffer {
	return &viewBuffer{max: limit}
}

func (vb *viewBuffer) push(e model.ViewEvent) {
	vb.mu.Lock()
	vb.events = append(vb.events, e)
	vb.trim()
	n := len(vb.events)
	vb.mu.Unlock()
	metrics.ViewsBuffered.Set(float64(n))
}

// drain takes every buffered event and leaves the buffer empty.
func (vb *viewBuffer) drain() []model.ViewEvent {
	vb.mu.Lock()
	out := vb.events
	vb.events = nil
	vb.mu.Unlock()
	metrics.ViewsBuffered.Set(0)
	return out
}

// requeue puts a batch that failed to flush back in front of newer events.
func (vb *viewBuffer) requeue(batch []model.ViewEvent) {
	vb.mu.Lock()
	vb.events = append(batch, vb.events...)
	vb.trim()
	n := len(vb.events)
	vb.mu.Unlock()
	metrics.ViewsBuffered.Set(float64(n))
}

// trim must be called with mu held.
func (vb *viewBuffer) trim() {
	if over := len(vb.events) - vb.max; vb.max > 0 && over > 0 {
		vb.events = append([]model.ViewEvent(nil), vb.events[over:]...)
		vb.dropped += int64(over)
	}
}

func (vb *viewBuffer) len() int {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	return len(vb.events)
}

// IsBot reports whether a user agent belongs to a crawler.
func IsBot(ua string) bool {
	return useragent.Parse(ua).Bot
}

// RecordView buffers a view of a post. Crawlers are ignored.
func (b *Blog) RecordView(postID int64, at time.Time, ip, userAgent, referer string) {
	if postID <= 0 || IsBot(userAgent) {
		return
	}
	b.views.push(model.ViewEvent{
		PostID:    postID,
		ViewedAt:  at.UTC(),
		IP:        ip,
		UserAgent: userAgent,
		Referer:   referer,
	})
}

// FlushViews writes every buffered view in one batch. On failure the batch
// goes back into the buffer for the next cycle.
func (b *Blog) FlushViews(ctx context.Context) (int, error) {
	batch := b.views.drain()
	if len(batch) == 0 {
		return 0, nil
	}

	if b.geo != nil {
		for i := range batch {
			if batch[i].Country == "" {
				batch[i].Country = b.geo.Country(batch[i].IP)
			}
		}
	}

	if err := b.db.LogPostViews(ctx, batch); err != nil {
		b.views.requeue(batch)
		metrics.ViewFlushFailuresTotal.Inc()
		return 0, fmt.Errorf("flushing %d views: %w", len(batch), err)
	}
	metrics.ViewsFlushedTotal.Add(float64(len(batch)))
	return len(batch), nil
}

// PendingViews is the number of buffered views.
func (b *Blog) PendingViews() int {
	return b.views.len()
}
