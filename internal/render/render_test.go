// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestBlankLinesRegex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no blank lines", "line1\nline2\nline3", "line1\nline2\nline3"},
		{"one blank line", "line1\n\nline2", "line1\nline2"},
		{"multiple blank lines", "line1\n\n\n\n\nline2", "line1\nline2"},
		{"blank lines with spaces", "line1\n  \n\t\nline2", "line1\nline2"},
		{"windows line endings", "line1\r\n\r\n\r\nline2", "line1\nline2"},
		{"mixed line endings", "line1\n\r\n\nline2", "line1\nline2"},
		{"blank lines at end", "line1\nline2\n\n\n", "line1\nline2\n"},
		{"empty input", "", ""},
		{"only newlines", "\n\n\n\n", "\n"},
		{"html with blank lines", "<div>\n\n\n<p>text</p>\n\n\n</div>", "<div>\n<p>text</p>\n</div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blankLinesRegex.ReplaceAllString(tt.input, "\n"); got != tt.expected {
				t.Errorf("ReplaceAllString(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(`{{define "base"}}<html lang="{{lang .Locale}}">{{template "nav" .}}

{{template "content" .}}</html>{{end}}`)},
		"partials/nav.html": {Data: []byte(`{{define "nav"}}<nav>{{.Title}}</nav>{{end}}`)},
		"pages/index.html":  {Data: []byte(`{{define "content"}}<p>{{.Title}} {{year}}</p>{{safe .Body}}{{end}}`)},
		"pages/other.html":  {Data: []byte(`{{define "content"}}<p>{{formatDate .When}}</p>{{end}}`)},
	}
}

func TestRender(t *testing.T) {
	r, err := New(Config{
		TemplatesFS: testFS(),
		Now:         func() time.Time { return time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := r.Names(); len(got) != 2 || got[0] != "index.html" || got[1] != "other.html" {
		t.Errorf("Names() = %v", got)
	}

	out, err := r.Render("index.html", map[string]any{
		"Title":  "A & B",
		"Body":   "<b>bold</b>",
		"Locale": "pt_PT",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "<html lang=\"pt\"><nav>A &amp; B</nav>\n<p>A &amp; B 2031</p><b>bold</b></html>"
	if out != want {
		t.Errorf("Render() = %q, want %q", out, want)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Render("missing.html", nil); err == nil {
		t.Error("expected error for unknown template")
	}
	if r.Has("missing.html") || !r.Has("other.html") {
		t.Error("Has() mismatch")
	}
}

func TestRenderExecutionError(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Render("other.html", map[string]any{"When": "not a time"})
	if err == nil || !strings.Contains(err.Error(), "other.html") {
		t.Errorf("Render() error = %v", err)
	}
}

func TestNewWithoutPages(t *testing.T) {
	fsys := fstest.MapFS{"layouts/base.html": {Data: []byte(`{{define "base"}}{{end}}`)}}
	if _, err := New(Config{TemplatesFS: fsys}); err == nil {
		t.Error("expected error when no pages exist")
	}
}

func TestTemplateFuncs(t *testing.T) {
	funcs := templateFuncs(time.Now)

	formatDate := funcs["formatDate"].(func(time.Time) string)
	if got := formatDate(time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)); got != "Mar 15, 2025" {
		t.Errorf("formatDate() = %q", got)
	}

	lang := funcs["lang"].(func(string) string)
	for in, want := range map[string]string{"en_US": "en", "": "en", "DE": "de"} {
		if got := lang(in); got != want {
			t.Errorf("lang(%q) = %q, want %q", in, got, want)
		}
	}

	truncate := funcs["truncate"].(func(string, int) string)
	if got := truncate("héllo world", 5); got != "héllo..." {
		t.Errorf("truncate() = %q", got)
	}
}
