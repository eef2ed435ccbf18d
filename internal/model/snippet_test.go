// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestApplySnippets(t *testing.T) {
	snippets := map[string]Snippet{
		"youtube": {
			Name:     "youtube",
			Template: `<iframe src="https://www.youtube.com/embed/{id}" width="{width}"></iframe>`,
			Variables: []SnippetVariable{
				{Name: "id", Default: "none"},
				{Name: "width", Default: "560"},
			},
		},
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "override and default",
			body: `<p>before [youtube id="abc123"] after</p>`,
			want: `<p>before <iframe src="https://www.youtube.com/embed/abc123" width="560"></iframe> after</p>`,
		},
		{
			name: "all overrides",
			body: `[youtube id="x" width="100"]`,
			want: `<iframe src="https://www.youtube.com/embed/x" width="100"></iframe>`,
		},
		{
			name: "no attributes uses defaults",
			body: `[youtube]`,
			want: `<iframe src="https://www.youtube.com/embed/none" width="560"></iframe>`,
		},
		{
			name: "unknown snippet untouched",
			body: `[gallery id="1"] and [link]`,
			want: `[gallery id="1"] and [link]`,
		},
		{
			name: "plain text",
			body: "nothing to see",
			want: "nothing to see",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplySnippets(tt.body, snippets)
			if got != tt.want {
				t.Errorf("ApplySnippets() = %q, want %q", got, tt.want)
			}
			if again := ApplySnippets(got, snippets); again != got {
				t.Errorf("second pass changed body: %q", again)
			}
		})
	}
}

func TestApplySnippetsEmptySet(t *testing.T) {
	body := `[youtube id="a"]`
	if got := ApplySnippets(body, nil); got != body {
		t.Errorf("ApplySnippets(nil) = %q, want %q", got, body)
	}
}
