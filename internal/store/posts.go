// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/olegiv/oblog/internal/model"
)

const postSelect = `SELECT p.id, p.author_id, COALESCE(u.display_name, ''), COALESCE(u.home_post, ''),
	p.date_posted, p.date_modified, p.state, p.format, p.title, p.content, p.seo,
	p.url_canonical, p.url_historic, p.tags, p.media, p.locations, p.related
FROM posts p LEFT JOIN users u ON u.id = p.author_id`

func scanPost(r rowScanner) (model.Post, error) {
	var p model.Post
	var seo, historic, tags, media, locations, related string
	err := r.Scan(&p.ID, &p.Author.ID, &p.Author.DisplayName, &p.Author.HomePost,
		&p.DatePosted, &p.DateModified, &p.State, &p.Format, &p.Title, &p.Content, &seo,
		&p.URLCanonical, &historic, &tags, &media, &locations, &related)
	if err != nil {
		return p, err
	}
	if err := decodeColumns(seo, &p.SEO, historic, &p.URLHistoric, tags, &p.Tags,
		media, &p.Media, locations, &p.Locations, related, &p.Related); err != nil {
		return p, fmt.Errorf("post %d: %w", p.ID, err)
	}
	return p, nil
}

// LoadPosts returns every non-draft post, newest id first.
func (q *Queries) LoadPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, postSelect+` WHERE p.state NOT IN ('draft') ORDER BY p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("loading posts: %w", err)
	}
	return collect(q, rows, "post", scanPost)
}

// ListPosts returns every post in any state for the admin list.
func (q *Queries) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, postSelect+` ORDER BY p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return collect(q, rows, "post", scanPost)
}

// GetPost returns one post in any state.
func (q *Queries) GetPost(ctx context.Context, id int64) (model.Post, error) {
	p, err := scanPost(q.db.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	return p, notFound(err)
}

// SavePost inserts a post when its id is zero and updates it otherwise.
// It returns the post id.
func (q *Queries) SavePost(ctx context.Context, p model.Post) (int64, error) {
	args := []any{
		p.Author.ID, utc(p.DatePosted), utc(p.DateModified), p.State, p.Format, p.Title, p.Content,
		encodeJSON(p.SEO), p.URLCanonical, encodeJSON(p.URLHistoric), encodeJSON(p.Tags),
		encodeJSON(p.Media), encodeJSON(p.Locations), encodeJSON(p.Related),
	}
	if p.ID > 0 {
		res, err := q.db.ExecContext(ctx, `UPDATE posts SET author_id = ?, date_posted = ?, date_modified = ?,
			state = ?, format = ?, title = ?, content = ?, seo = ?, url_canonical = ?, url_historic = ?,
			tags = ?, media = ?, locations = ?, related = ? WHERE id = ?`, append(args, p.ID)...)
		if err != nil {
			return 0, fmt.Errorf("updating post %d: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, ErrNotFound
		}
		return p.ID, nil
	}

	res, err := q.db.ExecContext(ctx, `INSERT INTO posts (author_id, date_posted, date_modified, state,
		format, title, content, seo, url_canonical, url_historic, tags, media, locations, related)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting post: %w", err)
	}
	return res.LastInsertId()
}

// LatestPostIDs returns the ids of the most recently posted public posts.
func (q *Queries) LatestPostIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM posts WHERE state NOT IN ('draft')
		ORDER BY date_posted DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading latest posts: %w", err)
	}
	return idList(rows)
}

// MaxSearchWords bounds the number of words a search query is split into.
const MaxSearchWords = 10

// SearchWords splits a query into at most MaxSearchWords words.
func SearchWords(query string) []string {
	words := strings.Fields(query)
	if len(words) > MaxSearchWords {
		words = words[:MaxSearchWords]
	}
	return words
}

// SearchPostIDs returns posts whose title, or whose content, contains every
// word of the query. Newest id first.
func (q *Queries) SearchPostIDs(ctx context.Context, query string) ([]int64, error) {
	words := SearchWords(query)
	if len(words) == 0 {
		return nil, nil
	}

	titleConds := make([]string, len(words))
	contentConds := make([]string, len(words))
	args := make([]any, 0, 2*len(words))
	for i, w := range words {
		titleConds[i] = "title LIKE ?"
		args = append(args, "%"+w+"%")
	}
	for i, w := range words {
		contentConds[i] = "content LIKE ?"
		args = append(args, "%"+w+"%")
	}

	stmt := `SELECT id FROM posts WHERE state NOT IN ('draft') AND ((` +
		strings.Join(titleConds, " AND ") + `) OR (` + strings.Join(contentConds, " AND ") +
		`)) ORDER BY id DESC`
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("searching posts: %w", err)
	}
	return idList(rows)
}
