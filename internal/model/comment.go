// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Comment moderation states
const (
	CommentStatusNew      = "new"
	CommentStatusApproved = "approved"
	CommentStatusSpam     = "spam"
	CommentStatusDeleted  = "deleted"
)

// Comment is a reader comment attached to a post.
type Comment struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	PostID      int64     `json:"post_id"`
	Status      string    `json:"status"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	DatePosted  time.Time `json:"date_posted"`
	Content     string    `json:"content"`
}

// User-facing validation messages for comment submissions.
const (
	MsgBadAnswer    = "Please check your answer to the spam protection question."
	MsgNoName       = "Kindly provide your name."
	MsgPostNotFound = "The post could not be found."
	MsgEmptyComment = "The comment can not be empty."
)

// ValidationError is returned for input a reader can fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CommentSubmission is a comment as posted by a reader.
type CommentSubmission struct {
	PostID   int64  `json:"post_id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Content  string `json:"content"`
	Answer   string `json:"answer"`
}

var commentPolicy = bluemonday.StrictPolicy()

// Validate checks the submission against the expected spam answer.
func (s CommentSubmission) Validate(expectedAnswer string) error {
	if normaliseAnswer(s.Answer) != normaliseAnswer(expectedAnswer) {
		return &ValidationError{Message: MsgBadAnswer}
	}
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Message: MsgNoName}
	}
	if s.PostID <= 0 {
		return &ValidationError{Message: MsgPostNotFound}
	}
	if strings.TrimSpace(commentPolicy.Sanitize(s.Content)) == "" {
		return &ValidationError{Message: MsgEmptyComment}
	}
	return nil
}

// Comment converts a validated submission into a new, unmoderated comment
// with all markup stripped.
func (s CommentSubmission) Comment(now time.Time) Comment {
	return Comment{
		ParentID:    s.ParentID,
		PostID:      s.PostID,
		Status:      CommentStatusNew,
		AuthorName:  strings.TrimSpace(commentPolicy.Sanitize(s.Name)),
		AuthorEmail: strings.TrimSpace(s.Email),
		DatePosted:  now,
		Content:     strings.TrimSpace(commentPolicy.Sanitize(s.Content)),
	}
}

func normaliseAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
