// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// GalleryImage is an uploaded original image.
type GalleryImage struct {
	ID        int64     `json:"id"`
	GUID      string    `json:"guid"`
	Name      string    `json:"name"`
	Ext       string    `json:"ext"`
	MimeType  string    `json:"mime_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// URL returns the public path of the original image.
func (g GalleryImage) URL() string {
	return "/gallery/original/" + g.GUID + g.Ext
}

// SizedURL returns the path of a resized variant, e.g. size "w600".
func (g GalleryImage) SizedURL(size string) string {
	return "/gallery/" + g.GUID + "/" + size + "/" + g.Name + g.Ext
}
