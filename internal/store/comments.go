// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/oblog/internal/model"
)

const commentSelect = `SELECT id, parent_id, post_id, status, author_name, author_email, date_posted, content FROM comments`

func scanComment(r rowScanner) (model.Comment, error) {
	var c model.Comment
	err := r.Scan(&c.ID, &c.ParentID, &c.PostID, &c.Status, &c.AuthorName, &c.AuthorEmail, &c.DatePosted, &c.Content)
	return c, err
}

// LoadApprovedComments returns approved comments in id order.
func (q *Queries) LoadApprovedComments(ctx context.Context) ([]model.Comment, error) {
	rows, err := q.db.QueryContext(ctx, commentSelect+` WHERE status = ? ORDER BY id`, model.CommentStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("loading comments: %w", err)
	}
	return collect(q, rows, "comment", scanComment)
}

// ListComments returns the newest comments, optionally filtered by status.
func (q *Queries) ListComments(ctx context.Context, status string, limit int) ([]model.Comment, error) {
	stmt := commentSelect
	var args []any
	if status != "" {
		stmt += ` WHERE status = ?`
		args = append(args, status)
	}
	stmt += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return collect(q, rows, "comment", scanComment)
}

// GetComment returns one comment in any state.
func (q *Queries) GetComment(ctx context.Context, id int64) (model.Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, commentSelect+` WHERE id = ?`, id))
	return c, notFound(err)
}

// CreateComment inserts a comment and returns its id.
func (q *Queries) CreateComment(ctx context.Context, c model.Comment) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO comments (parent_id, post_id, status, author_name,
		author_email, date_posted, content) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ParentID, c.PostID, c.Status, c.AuthorName, c.AuthorEmail, utc(c.DatePosted), c.Content)
	if err != nil {
		return 0, fmt.Errorf("inserting comment: %w", err)
	}
	return res.LastInsertId()
}

// UpdateComment saves a moderated comment.
func (q *Queries) UpdateComment(ctx context.Context, c model.Comment) error {
	res, err := q.db.ExecContext(ctx, `UPDATE comments SET parent_id = ?, post_id = ?, status = ?,
		author_name = ?, author_email = ?, content = ? WHERE id = ?`,
		c.ParentID, c.PostID, c.Status, c.AuthorName, c.AuthorEmail, c.Content, c.ID)
	if err != nil {
		return fmt.Errorf("updating comment %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
