// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Link targets
const (
	TargetSelf  = "_self"
	TargetBlank = "_blank"
)

// Menu is a named navigation menu.
type Menu struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// MenuItem is a link in a menu.
type MenuItem struct {
	Title    string     `json:"title"`
	URL      string     `json:"url"`
	Target   string     `json:"target,omitempty"`
	CSSClass string     `json:"css_class,omitempty"`
	Children []MenuItem `json:"children,omitempty"`
}

// Redirect maps a short forward name to an external URL.
type Redirect struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}
