// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package feed fetches the Instagram and Pinterest snapshots shown in the sidebar.
// Every endpoint sits behind its own circuit breaker so a dead API is not
// hammered on each maintenance cycle.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// Feed names, used for breaker names and metric labels.
const (
	Instagram = "instagram"
	Pinterest = "pinterest"
)

// maxBodySize caps the response read from a feed endpoint.
const maxBodySize = 4 << 20

var (
	// ErrNotConfigured is returned when a feed has no endpoint URL.
	ErrNotConfigured = errors.New("feed not configured")
	// ErrUnavailable wraps rejections from an open circuit breaker.
	ErrUnavailable = errors.New("feed temporarily unavailable")
)

// Config holds the feed endpoints. URLs already have the token substituted.
type Config struct {
	InstagramURL string
	PinterestURL string
	Timeout      time.Duration

	// HTTPClient overrides the default client, which refuses private addresses.
	HTTPClient *http.Client
	// AllowPrivateHosts skips the endpoint address check.
	AllowPrivateHosts bool
}

// Client fetches third-party feeds.
type Client struct {
	cfg      Config
	http     *http.Client
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
	logger   *slog.Logger
}

// New creates a feed client. Endpoints that fail validation are disabled with a warning.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	hc := cfg.HTTPClient
	if hc == nil {
		dialer := &net.Dialer{Timeout: 5 * time.Second}
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext:         util.SSRFSafeDialContext(dialer),
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	if !cfg.AllowPrivateHosts {
		for name, u := range map[string]*string{Instagram: &cfg.InstagramURL, Pinterest: &cfg.PinterestURL} {
			if *u == "" {
				continue
			}
			if err := util.ValidateFeedURL(*u); err != nil {
				logger.Warn("feed endpoint rejected", "feed", name, "error", err)
				*u = ""
			}
		}
	}

	c := &Client{
		cfg:      cfg,
		http:     hc,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte], 2),
		logger:   logger,
	}
	for _, name := range []string{Instagram, Pinterest} {
		c.breakers[name] = newBreaker(name, logger)
	}
	return c
}

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		// Feeds are polled once per maintenance cycle, so a short run of
		// consecutive failures is already a strong signal.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("feed circuit breaker state change", "feed", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State reports the breaker state of the named feed.
func (c *Client) State(name string) string {
	b, ok := c.breakers[name]
	if !ok {
		return ""
	}
	return b.State().String()
}

// fetch downloads url through the named breaker.
func (c *Client) fetch(ctx context.Context, name, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}

	body, err := c.breakers[name].Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("requesting %s feed: %w", name, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s feed returned status %d", name, resp.StatusCode)
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("reading %s feed: %w", name, err)
		}
		return b, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.FeedFetchesTotal.WithLabelValues(name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
		}
		metrics.FeedFetchesTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	metrics.FeedFetchesTotal.WithLabelValues(name, "success").Inc()
	return body, nil
}

// envelope is the common {"data": [...]} wrapper of both APIs.
type envelope struct {
	Data []json.RawMessage `json:"data"`
}

// decodeRecords decodes each record independently; a malformed record is
// logged and skipped rather than failing the whole feed.
func decodeRecords[T any](logger *slog.Logger, name string, body []byte) ([]T, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding %s feed: %w", name, err)
	}
	out := make([]T, 0, len(env.Data))
	for i, raw := range env.Data {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("skipping malformed feed record", "feed", name, "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type instagramMedia struct {
	ID        string `json:"id"`
	MediaURL  string `json:"media_url"`
	Permalink string `json:"permalink"`
}

// Instagram returns the latest Instagram media in compact form.
func (c *Client) Instagram(ctx context.Context) ([]model.InstagramPost, error) {
	body, err := c.fetch(ctx, Instagram, c.cfg.InstagramURL)
	if err != nil {
		return nil, err
	}
	media, err := decodeRecords[instagramMedia](c.logger, Instagram, body)
	if err != nil {
		return nil, err
	}
	posts := make([]model.InstagramPost, 0, len(media))
	for _, m := range media {
		if m.MediaURL == "" {
			continue
		}
		posts = append(posts, model.InstagramPost{Link: m.Permalink, ImgSrc: m.MediaURL})
	}
	return posts, nil
}

type pinterestPin struct {
	ID    string `json:"id"`
	Note  string `json:"note"`
	Image struct {
		Original struct {
			URL string `json:"url"`
		} `json:"original"`
	} `json:"image"`
}

// Pinterest returns the latest pins in compact form.
func (c *Client) Pinterest(ctx context.Context) ([]model.PinterestPin, error) {
	body, err := c.fetch(ctx, Pinterest, c.cfg.PinterestURL)
	if err != nil {
		return nil, err
	}
	raw, err := decodeRecords[pinterestPin](c.logger, Pinterest, body)
	if err != nil {
		return nil, err
	}
	pins := make([]model.PinterestPin, 0, len(raw))
	for _, p := range raw {
		if p.Image.Original.URL == "" {
			continue
		}
		pins = append(pins, model.PinterestPin{ID: p.ID, Note: p.Note, ImgSrc: p.Image.Original.URL})
	}
	return pins, nil
}
