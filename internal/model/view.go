// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// ViewEvent is a single post page view waiting to be persisted.
type ViewEvent struct {
	PostID    int64
	ViewedAt  time.Time
	IP        string
	UserAgent string
	Referer   string
	Country   string
}

// InstagramPost is the compact form of an Instagram media item.
type InstagramPost struct {
	Link     string `json:"link"`
	ImgSrc   string `json:"img_src"`
	Location string `json:"location"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

// PinterestPin is the compact form of a Pinterest pin.
type PinterestPin struct {
	ID     string `json:"id"`
	Note   string `json:"note"`
	ImgSrc string `json:"img_src"`
}
