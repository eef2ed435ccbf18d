// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/oblog/internal/model"
)

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// LogPostViews writes a batch of view events in one transaction, in order.
func (q *Queries) LogPostViews(ctx context.Context, views []model.ViewEvent) error {
	if len(views) == 0 {
		return nil
	}

	db, ok := q.db.(txBeginner)
	if !ok {
		return q.insertViews(ctx, q.db, views)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting view batch: %w", err)
	}
	if err := q.insertViews(ctx, tx, views); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing view batch: %w", err)
	}
	return nil
}

func (q *Queries) insertViews(ctx context.Context, db DBTX, views []model.ViewEvent) error {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO post_views (post_id, viewed_at, ip, user_agent, referer, country)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing view insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range views {
		if _, err := stmt.ExecContext(ctx, v.PostID, utc(v.ViewedAt), v.IP, v.UserAgent, v.Referer, v.Country); err != nil {
			return fmt.Errorf("inserting view of post %d: %w", v.PostID, err)
		}
	}
	return nil
}

// MostViewedPostIDs returns the posts with the most views since the given time.
func (q *Queries) MostViewedPostIDs(ctx context.Context, since time.Time, limit int) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT post_id FROM post_views WHERE viewed_at >= ?
		GROUP BY post_id ORDER BY COUNT(*) DESC, post_id DESC LIMIT ?`, utc(since), limit)
	if err != nil {
		return nil, fmt.Errorf("loading most viewed posts: %w", err)
	}
	return idList(rows)
}

// CountPostViews returns the number of stored view rows.
func (q *Queries) CountPostViews(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_views`).Scan(&n)
	return n, err
}
