// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// DayViews is the number of post views on one day (YYYY-MM-DD).
type DayViews struct {
	Day   string `json:"day"`
	Views int64  `json:"views"`
}

// PostViews is the number of views of one post.
type PostViews struct {
	PostID int64  `json:"post_id"`
	Title  string `json:"title"`
	Views  int64  `json:"views"`
}

// CountedValue is a label with an occurrence count.
type CountedValue struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ContentStats summarises posts and comments for the dashboard.
type ContentStats struct {
	Posts            int64 `json:"posts"`
	UnpublishedPosts int64 `json:"unpublished_posts"`
	Comments         int64 `json:"comments"`
	NewComments      int64 `json:"new_comments"`
}
