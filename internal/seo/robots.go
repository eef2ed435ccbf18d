// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import "strings"

// RobotsConfig holds configuration for robots.txt generation.
type RobotsConfig struct {
	SiteURL       string   // Absolute site URL used for the sitemap reference
	DisallowAll   bool     // Block all crawlers (staging)
	DisallowPaths []string // Extra paths to disallow
}

// defaultDisallow lists paths crawlers never need.
var defaultDisallow = []string{"/admin"}

// Robots generates robots.txt. The sitemap reference comes first.
func Robots(cfg RobotsConfig) string {
	var sb strings.Builder

	if cfg.SiteURL != "" && !cfg.DisallowAll {
		sb.WriteString("Sitemap: ")
		sb.WriteString(strings.TrimSuffix(cfg.SiteURL, "/"))
		sb.WriteString("/sitemap.xml\n")
	}

	sb.WriteString("User-agent: *\n")
	if cfg.DisallowAll {
		sb.WriteString("Disallow: /\n")
		return sb.String()
	}
	for _, p := range append(append([]string(nil), defaultDisallow...), cfg.DisallowPaths...) {
		sb.WriteString("Disallow: ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return sb.String()
}
