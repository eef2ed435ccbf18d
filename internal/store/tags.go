// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/oblog/internal/model"
)

const tagSelect = `SELECT id, title, content, seo, media FROM tags`

func scanTag(r rowScanner) (model.Tag, error) {
	var t model.Tag
	var seo, media string
	if err := r.Scan(&t.ID, &t.Title, &t.Content, &seo, &media); err != nil {
		return t, err
	}
	if err := decodeColumns(seo, &t.SEO, media, &t.Media); err != nil {
		return t, fmt.Errorf("tag %q: %w", t.ID, err)
	}
	return t, nil
}

// LoadTags returns every tag ordered by id.
func (q *Queries) LoadTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx, tagSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	return collect(q, rows, "tag", scanTag)
}

// GetTag returns the tag with the given id.
func (q *Queries) GetTag(ctx context.Context, id string) (model.Tag, error) {
	t, err := scanTag(q.db.QueryRowContext(ctx, tagSelect+` WHERE id = ?`, id))
	return t, notFound(err)
}

// SaveTag creates or replaces a tag.
func (q *Queries) SaveTag(ctx context.Context, t model.Tag) error {
	_, err := q.db.ExecContext(ctx, `REPLACE INTO tags (id, title, content, seo, media) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Content, encodeJSON(t.SEO), encodeJSON(t.Media))
	if err != nil {
		return fmt.Errorf("saving tag %q: %w", t.ID, err)
	}
	return nil
}
