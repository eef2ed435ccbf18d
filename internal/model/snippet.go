// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
)

// SnippetVariable is a named slot in a snippet template.
type SnippetVariable struct {
	Name    string `json:"name"`
	Default string `json:"default"`
}

// Snippet is a reusable fragment that post bodies reference with
// [name attr="value"] placeholders.
type Snippet struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Template  string            `json:"template"`
	Variables []SnippetVariable `json:"variables"`
}

var (
	snippetPattern   = regexp.MustCompile(`\[([^\s^\]]+)\s*([^\]]*)\]`)
	attributePattern = regexp.MustCompile(`([^\s=]+)="([^"]*)"`)
)

// Expand fills the template from the placeholder attributes in tail,
// falling back to variable defaults.
func (s Snippet) Expand(tail string) string {
	overrides := make(map[string]string)
	for _, m := range attributePattern.FindAllStringSubmatch(tail, -1) {
		overrides[m[1]] = m[2]
	}

	out := s.Template
	for _, v := range s.Variables {
		value, ok := overrides[v.Name]
		if !ok {
			value = v.Default
		}
		out = strings.ReplaceAll(out, "{"+v.Name+"}", value)
	}
	return out
}

// ApplySnippets replaces every placeholder naming a known snippet.
// Placeholders for unknown names are kept as written.
func ApplySnippets(body string, snippets map[string]Snippet) string {
	if len(snippets) == 0 {
		return body
	}
	return snippetPattern.ReplaceAllStringFunc(body, func(match string) string {
		sub := snippetPattern.FindStringSubmatch(match)
		s, ok := snippets[sub[1]]
		if !ok {
			return match
		}
		return s.Expand(sub[2])
	})
}
