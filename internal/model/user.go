// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// PermissionAdmin grants access to the admin API.
const PermissionAdmin = "admin"

// User is an account that can sign in to the admin area.
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	HomePost     string    `json:"home_post"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPermission reports whether the user holds the given permission label.
func (u *User) HasPermission(p string) bool {
	return slices.Contains(u.Permissions, p)
}

// IsAdmin returns true if the user may use the admin API.
func (u *User) IsAdmin() bool {
	return u.HasPermission(PermissionAdmin)
}
