// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/model"
)

// DefaultAdminLogin is used when no admin login is configured.
const DefaultAdminLogin = "admin"

// Seed creates the first admin account when the users table is empty.
// A random password is generated and logged once when none is given.
func Seed(ctx context.Context, q *Queries, login, password string) error {
	n, err := q.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		slog.Debug("users exist, skipping seed")
		return nil
	}

	if login == "" {
		login = DefaultAdminLogin
	}
	generated := password == ""
	if generated {
		password, err = randomPassword()
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	id, err := q.CreateUser(ctx, model.User{
		Login:        login,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		Permissions:  []string{model.PermissionAdmin},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	if generated {
		slog.Info("created admin user with generated password; change it after first login",
			"id", id, "login", login, "password", password)
	} else {
		slog.Info("created admin user", "id", id, "login", login)
	}
	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
