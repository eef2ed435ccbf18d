// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRobots(t *testing.T) {
	got := Robots(RobotsConfig{SiteURL: "https://example.org/"})
	assert.Equal(t, "Sitemap: https://example.org/sitemap.xml\nUser-agent: *\nDisallow: /admin\n", got)
}

func TestRobotsExtraPaths(t *testing.T) {
	got := Robots(RobotsConfig{DisallowPaths: []string{"/auth", "/fwd"}})
	assert.Equal(t, "User-agent: *\nDisallow: /admin\nDisallow: /auth\nDisallow: /fwd\n", got)
}

func TestRobotsDisallowAll(t *testing.T) {
	got := Robots(RobotsConfig{SiteURL: "https://staging.example.org", DisallowAll: true})
	assert.Equal(t, "User-agent: *\nDisallow: /\n", got)
}
