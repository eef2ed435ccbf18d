// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/oblog/internal/model"
)

// CreateEvent appends an entry to the event log.
func (q *Queries) CreateEvent(ctx context.Context, e model.Event) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO events (level, category, message, user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, e.Level, e.Category, e.Message, e.UserID, e.Metadata, utc(e.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return res.LastInsertId()
}

// ListEvents returns the newest events.
func (q *Queries) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, level, category, message, user_id, metadata, created_at
		FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return collect(q, rows, "event", func(r rowScanner) (model.Event, error) {
		var e model.Event
		err := r.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt)
		return e, err
	})
}
