// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrMalformedRow marks a row whose JSON columns could not be decoded.
	// Bulk loads skip such rows instead of failing.
	ErrMalformedRow = errors.New("malformed row")
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Queries runs the application's SQL against a DBTX.
type Queries struct {
	db     DBTX
	logger *slog.Logger
}

// New creates Queries on db using the default logger.
func New(db DBTX) *Queries {
	return &Queries{db: db, logger: slog.Default()}
}

// WithLogger returns a copy of q that reports skipped rows to logger.
func (q *Queries) WithLogger(logger *slog.Logger) *Queries {
	return &Queries{db: q.db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// collect scans every row, skipping malformed ones.
func collect[T any](q *Queries, rows *sql.Rows, kind string, scan func(rowScanner) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			if errors.Is(err, ErrMalformedRow) {
				q.logger.Warn("skipping malformed row", "kind", kind, "error", err, "category", "content")
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// decodeColumns decodes raw JSON column values into their targets.
// Empty strings leave the target untouched.
func decodeColumns(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		raw, _ := pairs[i].(string)
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), pairs[i+1]); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
	}
	return nil
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func idList(rows *sql.Rows) ([]int64, error) {
	defer func() { _ = rows.Close() }()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
