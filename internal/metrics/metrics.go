// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache Store

	// CacheLookupsTotal counts cache reads by payload kind and result (hit, miss).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oblog_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"kind", "result"},
	)

	// CacheRefreshesTotal counts refresh attempts by outcome (fresh, refreshed, failed).
	CacheRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oblog_cache_refreshes_total",
			Help: "Total number of stale-while-revalidate refresh checks",
		},
		[]string{"outcome"},
	)

	// CacheInvalidationsTotal counts HTML watermark moves.
	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oblog_cache_html_invalidations_total",
			Help: "Total number of HTML fragment invalidations",
		},
	)

	// CacheEntries is the number of entries held in the local cache.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oblog_cache_entries",
			Help: "Number of entries in the local cache store",
		},
	)

	// Content Store

	// ContentReloadsTotal counts reloads by content kind and result.
	ContentReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oblog_content_reloads_total",
			Help: "Total number of content reloads",
		},
		[]string{"kind", "result"},
	)

	// ContentReloadDuration tracks how long a reload takes, I/O included.
	ContentReloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oblog_content_reload_duration_seconds",
			Help:    "Duration of content reloads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// ContentItems is the number of loaded items per content kind.
	ContentItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oblog_content_items",
			Help: "Number of items loaded per content kind",
		},
		[]string{"kind"},
	)

	// View buffer and maintenance

	// ViewsBuffered is the number of view events waiting for the next flush.
	ViewsBuffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oblog_views_buffered",
			Help: "Number of post views waiting to be flushed",
		},
	)

	// ViewsFlushedTotal counts persisted view events.
	ViewsFlushedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oblog_views_flushed_total",
			Help: "Total number of post views written to the database",
		},
	)

	// ViewFlushFailuresTotal counts failed batch writes.
	ViewFlushFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oblog_view_flush_failures_total",
			Help: "Total number of failed view flushes",
		},
	)

	// MaintenanceDuration tracks a full maintenance cycle.
	MaintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oblog_maintenance_duration_seconds",
			Help:    "Duration of maintenance cycles in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Third-party feeds

	// FeedFetchesTotal counts feed fetches by feed and result.
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oblog_feed_fetches_total",
			Help: "Total number of third-party feed fetches",
		},
		[]string{"feed", "result"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oblog_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP

	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oblog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oblog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. Routes are labelled with
// the chi pattern so SEO URLs do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
