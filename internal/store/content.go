// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/oblog/internal/model"
)

func scanMenu(r rowScanner) (model.Menu, error) {
	var m model.Menu
	var items string
	if err := r.Scan(&m.ID, &m.Name, &items); err != nil {
		return m, err
	}
	if err := decodeColumns(items, &m.Items); err != nil {
		return m, fmt.Errorf("menu %q: %w", m.Name, err)
	}
	return m, nil
}

// LoadMenus returns every menu.
func (q *Queries) LoadMenus(ctx context.Context) ([]model.Menu, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, items FROM menus ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading menus: %w", err)
	}
	return collect(q, rows, "menu", scanMenu)
}

// SaveMenu inserts or updates a menu and returns its id.
func (q *Queries) SaveMenu(ctx context.Context, m model.Menu) (int64, error) {
	if m.ID > 0 {
		_, err := q.db.ExecContext(ctx, `UPDATE menus SET name = ?, items = ? WHERE id = ?`, m.Name, encodeJSON(m.Items), m.ID)
		if err != nil {
			return 0, fmt.Errorf("updating menu %d: %w", m.ID, err)
		}
		return m.ID, nil
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO menus (name, items) VALUES (?, ?)`, m.Name, encodeJSON(m.Items))
	if err != nil {
		return 0, fmt.Errorf("inserting menu: %w", err)
	}
	return res.LastInsertId()
}

// LoadRedirects returns every forward link.
func (q *Queries) LoadRedirects(ctx context.Context) ([]model.Redirect, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, url FROM redirects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading redirects: %w", err)
	}
	return collect(q, rows, "redirect", func(r rowScanner) (model.Redirect, error) {
		var rd model.Redirect
		err := r.Scan(&rd.ID, &rd.Name, &rd.URL)
		return rd, err
	})
}

// SaveRedirect inserts or updates a forward link and returns its id.
func (q *Queries) SaveRedirect(ctx context.Context, rd model.Redirect) (int64, error) {
	if rd.ID > 0 {
		_, err := q.db.ExecContext(ctx, `UPDATE redirects SET name = ?, url = ? WHERE id = ?`, rd.Name, rd.URL, rd.ID)
		if err != nil {
			return 0, fmt.Errorf("updating redirect %d: %w", rd.ID, err)
		}
		return rd.ID, nil
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO redirects (name, url) VALUES (?, ?)`, rd.Name, rd.URL)
	if err != nil {
		return 0, fmt.Errorf("inserting redirect: %w", err)
	}
	return res.LastInsertId()
}

// DeleteRedirect removes a forward link.
func (q *Queries) DeleteRedirect(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM redirects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting redirect %d: %w", id, err)
	}
	return nil
}

func scanSnippet(r rowScanner) (model.Snippet, error) {
	var s model.Snippet
	var vars string
	if err := r.Scan(&s.ID, &s.Name, &s.Template, &vars); err != nil {
		return s, err
	}
	if err := decodeColumns(vars, &s.Variables); err != nil {
		return s, fmt.Errorf("snippet %q: %w", s.Name, err)
	}
	return s, nil
}

// LoadSnippets returns every snippet.
func (q *Queries) LoadSnippets(ctx context.Context) ([]model.Snippet, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, template, variables FROM snippets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading snippets: %w", err)
	}
	return collect(q, rows, "snippet", scanSnippet)
}

// SaveSnippet inserts or updates a snippet and returns its id.
func (q *Queries) SaveSnippet(ctx context.Context, s model.Snippet) (int64, error) {
	if s.ID > 0 {
		_, err := q.db.ExecContext(ctx, `UPDATE snippets SET name = ?, template = ?, variables = ? WHERE id = ?`,
			s.Name, s.Template, encodeJSON(s.Variables), s.ID)
		if err != nil {
			return 0, fmt.Errorf("updating snippet %d: %w", s.ID, err)
		}
		return s.ID, nil
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO snippets (name, template, variables) VALUES (?, ?, ?)`,
		s.Name, s.Template, encodeJSON(s.Variables))
	if err != nil {
		return 0, fmt.Errorf("inserting snippet: %w", err)
	}
	return res.LastInsertId()
}
