// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{
		InstagramURL:      srv.URL + "/instagram",
		PinterestURL:      srv.URL + "/pinterest",
		HTTPClient:        srv.Client(),
		AllowPrivateHosts: true,
	}, testutil.TestLoggerSilent())
	return c, srv
}

func TestInstagram(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/instagram", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","media_url":"https://cdn.example.com/1.jpg","permalink":"https://instagram.com/p/1"},
			{"id":"2","permalink":"https://instagram.com/p/2"},
			{"id":3},
			{"id":"4","media_url":"https://cdn.example.com/4.jpg","permalink":"https://instagram.com/p/4"}
		]}`))
	})

	posts, err := c.Instagram(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "https://instagram.com/p/1", posts[0].Link)
	assert.Equal(t, "https://cdn.example.com/1.jpg", posts[0].ImgSrc)
	assert.Equal(t, "https://cdn.example.com/4.jpg", posts[1].ImgSrc)
}

func TestPinterest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"id":"p1","note":"Porto","image":{"original":{"url":"https://i.example.com/p1.jpg"}}},
			{"id":"p2","note":"no image"}
		]}`))
	})

	pins, err := c.Pinterest(context.Background())
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, "p1", pins[0].ID)
	assert.Equal(t, "Porto", pins[0].Note)
	assert.Equal(t, "https://i.example.com/p1.jpg", pins[0].ImgSrc)
}

func TestNotConfigured(t *testing.T) {
	c := New(Config{}, testutil.TestLoggerSilent())
	_, err := c.Instagram(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Pinterest(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPrivateEndpointRejected(t *testing.T) {
	c := New(Config{InstagramURL: "http://127.0.0.1:9/feed"}, testutil.TestLoggerSilent())
	_, err := c.Instagram(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMalformedEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := c.Instagram(context.Background())
	assert.Error(t, err)
}

func TestCircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for range 3 {
		_, err := c.Pinterest(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "open", c.State(Pinterest))

	_, err := c.Pinterest(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the server")

	// The other feed has its own breaker.
	assert.Equal(t, "closed", c.State(Instagram))
}
