// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/oblog/internal/model"
)

const userSelect = `SELECT id, login, password_hash, display_name, home_post, permissions, created_at FROM users`

func scanUser(r rowScanner) (model.User, error) {
	var u model.User
	var perms string
	if err := r.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.DisplayName, &u.HomePost, &perms, &u.CreatedAt); err != nil {
		return u, err
	}
	if err := decodeColumns(perms, &u.Permissions); err != nil {
		return u, fmt.Errorf("user %d: %w", u.ID, err)
	}
	return u, nil
}

// GetUserByLogin returns the user with the given login.
func (q *Queries) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, userSelect+` WHERE login = ?`, login))
	return u, notFound(err)
}

// GetUserByID returns the user with the given id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
	return u, notFound(err)
}

// CreateUser inserts a user and returns its id.
func (q *Queries) CreateUser(ctx context.Context, u model.User) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO users (login, password_hash, display_name, home_post,
		permissions, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Login, u.PasswordHash, u.DisplayName, u.HomePost, encodeJSON(u.Permissions), utc(u.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting user: %w", err)
	}
	return res.LastInsertId()
}

// UpdatePasswordHash replaces a user's password hash.
func (q *Queries) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return err
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
