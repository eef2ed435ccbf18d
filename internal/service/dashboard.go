// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service assembles admin views that combine several store queries.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/oblog/internal/geoip"
	"github.com/olegiv/oblog/internal/model"
)

// Dashboard limits.
const (
	DefaultDashboardDays = 30
	topPostsLimit        = 10
	topCountriesLimit    = 20
	// User agents are grouped after loading, so more raw values are read.
	userAgentSample = 500
)

// DashboardStore is the subset of store.Queries the dashboard reads.
type DashboardStore interface {
	ContentStats(ctx context.Context) (model.ContentStats, error)
	ViewsByDay(ctx context.Context, since time.Time) ([]model.DayViews, error)
	TopPosts(ctx context.Context, since time.Time, limit int) ([]model.PostViews, error)
	TopUserAgents(ctx context.Context, since time.Time, limit int) ([]model.CountedValue, error)
	TopCountries(ctx context.Context, since time.Time, limit int) ([]model.CountedValue, error)
}

// Country is a visitor country with its display name.
type Country struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Views int64  `json:"views"`
}

// DashboardData is the admin dashboard payload.
type DashboardData struct {
	Since      time.Time            `json:"since"`
	Content    model.ContentStats   `json:"content"`
	TotalViews int64                `json:"total_views"`
	ViewsByDay []model.DayViews     `json:"views_by_day"`
	TopPosts   []model.PostViews    `json:"top_posts"`
	Browsers   []model.CountedValue `json:"browsers"`
	Platforms  []model.CountedValue `json:"platforms"`
	Devices    []model.CountedValue `json:"devices"`
	Countries  []Country            `json:"countries"`
}

// Dashboard builds DashboardData.
type Dashboard struct {
	db     DashboardStore
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboard creates a Dashboard reading from db.
func NewDashboard(db DashboardStore, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{db: db, logger: logger, now: time.Now}
}

// Build collects statistics for the last days days.
func (d *Dashboard) Build(ctx context.Context, days int) (DashboardData, error) {
	if days <= 0 {
		days = DefaultDashboardDays
	}
	since := d.now().UTC().AddDate(0, 0, -days)
	data := DashboardData{Since: since}

	var err error
	if data.Content, err = d.db.ContentStats(ctx); err != nil {
		return data, err
	}
	if data.ViewsByDay, err = d.db.ViewsByDay(ctx, since); err != nil {
		return data, err
	}
	for _, v := range data.ViewsByDay {
		data.TotalViews += v.Views
	}
	if data.TopPosts, err = d.db.TopPosts(ctx, since, topPostsLimit); err != nil {
		return data, err
	}

	agents, err := d.db.TopUserAgents(ctx, since, userAgentSample)
	if err != nil {
		return data, err
	}
	data.Browsers, data.Platforms, data.Devices = ClassifyUserAgents(agents)

	countries, err := d.db.TopCountries(ctx, since, topCountriesLimit)
	if err != nil {
		return data, fmt.Errorf("loading countries: %w", err)
	}
	data.Countries = make([]Country, 0, len(countries))
	for _, c := range countries {
		data.Countries = append(data.Countries, Country{
			Code:  c.Value,
			Name:  geoip.CountryName(c.Value),
			Views: c.Count,
		})
	}

	d.logger.Debug("dashboard built", "days", days, "views", data.TotalViews)
	return data, nil
}

// ClassifyUserAgents groups raw user agent counts by browser, operating
// system and device type. Each result is sorted by count, then name.
func ClassifyUserAgents(agents []model.CountedValue) (browsers, platforms, devices []model.CountedValue) {
	b := map[string]int64{}
	p := map[string]int64{}
	dv := map[string]int64{}
	for _, a := range agents {
		ua := useragent.Parse(a.Value)
		b[orUnknown(ua.Name)] += a.Count
		p[orUnknown(ua.OS)] += a.Count
		dv[deviceType(ua)] += a.Count
	}
	return sortedCounts(b), sortedCounts(p), sortedCounts(dv)
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	default:
		return "desktop"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func sortedCounts(m map[string]int64) []model.CountedValue {
	out := make([]model.CountedValue, 0, len(m))
	for v, n := range m {
		out = append(out, model.CountedValue{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b model.CountedValue) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}
