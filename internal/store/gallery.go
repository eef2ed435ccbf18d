// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/oblog/internal/model"
)

const gallerySelect = `SELECT id, guid, name, ext, mime_type, width, height, size, hash, created_at FROM gallery`

func scanGalleryImage(r rowScanner) (model.GalleryImage, error) {
	var g model.GalleryImage
	err := r.Scan(&g.ID, &g.GUID, &g.Name, &g.Ext, &g.MimeType, &g.Width, &g.Height, &g.Size, &g.Hash, &g.CreatedAt)
	return g, err
}

// ListGallery returns uploaded images, newest first.
func (q *Queries) ListGallery(ctx context.Context, limit, offset int) ([]model.GalleryImage, error) {
	rows, err := q.db.QueryContext(ctx, gallerySelect+` ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing gallery: %w", err)
	}
	return collect(q, rows, "gallery", scanGalleryImage)
}

// GetGalleryImage returns the image with the given guid.
func (q *Queries) GetGalleryImage(ctx context.Context, guid string) (model.GalleryImage, error) {
	g, err := scanGalleryImage(q.db.QueryRowContext(ctx, gallerySelect+` WHERE guid = ?`, guid))
	return g, notFound(err)
}

// GetGalleryImageByHash returns an image with identical content, if any.
func (q *Queries) GetGalleryImageByHash(ctx context.Context, hash string) (model.GalleryImage, error) {
	g, err := scanGalleryImage(q.db.QueryRowContext(ctx, gallerySelect+` WHERE hash = ? LIMIT 1`, hash))
	return g, notFound(err)
}

// CreateGalleryImage records an uploaded image and returns its id.
func (q *Queries) CreateGalleryImage(ctx context.Context, g model.GalleryImage) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO gallery (guid, name, ext, mime_type, width, height, size, hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.GUID, g.Name, g.Ext, g.MimeType, g.Width, g.Height, g.Size, g.Hash, utc(g.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting gallery image: %w", err)
	}
	return res.LastInsertId()
}
