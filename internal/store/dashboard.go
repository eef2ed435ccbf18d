// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/oblog/internal/model"
)

// ViewsByDay counts post views per calendar day (UTC) since the given time.
func (q *Queries) ViewsByDay(ctx context.Context, since time.Time) ([]model.DayViews, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DATE(viewed_at) AS day, COUNT(*) FROM post_views
		WHERE viewed_at >= ? GROUP BY DATE(viewed_at) ORDER BY day`, utc(since))
	if err != nil {
		return nil, fmt.Errorf("counting views by day: %w", err)
	}
	return collect(q, rows, "views_by_day", func(r rowScanner) (model.DayViews, error) {
		var day any
		var d model.DayViews
		if err := r.Scan(&day, &d.Views); err != nil {
			return d, err
		}
		d.Day = formatDay(day)
		return d, nil
	})
}

// formatDay normalises DATE() results: MySQL returns time.Time, SQLite text.
func formatDay(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateOnly)
	case []byte:
		return truncateDay(string(t))
	case string:
		return truncateDay(t)
	default:
		return fmt.Sprint(v)
	}
}

func truncateDay(s string) string {
	if len(s) > len(time.DateOnly) {
		return s[:len(time.DateOnly)]
	}
	return s
}

// TopPosts returns the most viewed posts since the given time.
func (q *Queries) TopPosts(ctx context.Context, since time.Time, limit int) ([]model.PostViews, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT v.post_id, COALESCE(p.title, ''), COUNT(*) AS views
		FROM post_views v LEFT JOIN posts p ON p.id = v.post_id
		WHERE v.viewed_at >= ? GROUP BY v.post_id, p.title ORDER BY views DESC, v.post_id DESC LIMIT ?`,
		utc(since), limit)
	if err != nil {
		return nil, fmt.Errorf("counting top posts: %w", err)
	}
	return collect(q, rows, "top_posts", func(r rowScanner) (model.PostViews, error) {
		var pv model.PostViews
		err := r.Scan(&pv.PostID, &pv.Title, &pv.Views)
		return pv, err
	})
}

// TopUserAgents returns the most frequent raw user agents since the given time.
func (q *Queries) TopUserAgents(ctx context.Context, since time.Time, limit int) ([]model.CountedValue, error) {
	return q.topValues(ctx, "user_agent", since, limit)
}

// TopCountries returns the most frequent visitor countries since the given time.
func (q *Queries) TopCountries(ctx context.Context, since time.Time, limit int) ([]model.CountedValue, error) {
	return q.topValues(ctx, "country", since, limit)
}

// topValues groups post_views by column, which must be a trusted identifier.
func (q *Queries) topValues(ctx context.Context, column string, since time.Time, limit int) ([]model.CountedValue, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) AS n FROM post_views
		WHERE viewed_at >= ? GROUP BY `+column+` ORDER BY n DESC LIMIT ?`, utc(since), limit)
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", column, err)
	}
	return collect(q, rows, column, func(r rowScanner) (model.CountedValue, error) {
		var cv model.CountedValue
		err := r.Scan(&cv.Value, &cv.Count)
		return cv, err
	})
}

// ContentStats counts posts and comments.
func (q *Queries) ContentStats(ctx context.Context) (model.ContentStats, error) {
	var s model.ContentStats
	err := q.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM posts),
		(SELECT COUNT(*) FROM posts WHERE state <> ?),
		(SELECT COUNT(*) FROM comments),
		(SELECT COUNT(*) FROM comments WHERE status = ?)`,
		model.PostStatePublished, model.CommentStatusNew,
	).Scan(&s.Posts, &s.UnpublishedPosts, &s.Comments, &s.NewComments)
	if err != nil {
		return s, fmt.Errorf("counting content: %w", err)
	}
	return s, nil
}
