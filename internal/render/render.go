// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render turns page contexts into HTML using the embedded templates.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"
)

// LayoutTemplate is executed for every page; pages define "content".
const LayoutTemplate = "base"

// blankLinesRegex matches runs of whitespace-only lines left behind by template actions.
var blankLinesRegex = regexp.MustCompile(`(\r?\n[ \t]*)+\r?\n`)

// Renderer renders named page templates. It is safe for concurrent use.
type Renderer struct {
	templates map[string]*template.Template
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS fs.FS
	// Now is used by the "year" helper; defaults to time.Now.
	Now func() time.Time
}

// New parses every page under pages/ together with the layout and partials.
func New(cfg Config) (*Renderer, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	r := &Renderer{templates: make(map[string]*template.Template)}

	partials, err := templateFiles(cfg.TemplatesFS, "partials")
	if err != nil {
		return nil, fmt.Errorf("getting partials: %w", err)
	}
	pages, err := templateFiles(cfg.TemplatesFS, "pages")
	if err != nil {
		return nil, fmt.Errorf("getting pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	funcs := templateFuncs(cfg.Now)
	for _, page := range pages {
		files := append([]string{"layouts/base.html"}, partials...)
		files = append(files, page)

		tmpl, err := template.New(path.Base(page)).Funcs(funcs).ParseFS(cfg.TemplatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		r.templates[path.Base(page)] = tmpl
	}
	return r, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Names lists the page templates in sorted order.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for n := range r.templates {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Render executes the named page inside the layout and returns the compacted output.
func (r *Renderer) Render(name string, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, LayoutTemplate, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return blankLinesRegex.ReplaceAllString(buf.String(), "\n"), nil
}

func templateFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"lang": func(locale string) string {
			lang, _, _ := strings.Cut(locale, "_")
			if lang == "" {
				return "en"
			}
			return strings.ToLower(lang)
		},
		"year": func() int {
			return now().Year()
		},
		"truncate": func(s string, length int) string {
			r := []rune(s)
			if len(r) <= length {
				return s
			}
			return string(r[:length]) + "..."
		},
		// Post and tag bodies are authored by admins and stored as HTML.
		"safe": func(s string) template.HTML {
			return template.HTML(s)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			var out []int
			for i := start; i <= end; i++ {
				out = append(out, i)
			}
			return out
		},
	}
}
