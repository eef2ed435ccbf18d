// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/gallery"
	"github.com/olegiv/oblog/internal/imaging"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// Saved content is not served until the matching reload runs; the admin UI
// calls /reload after a batch of edits.

var postStates = []string{model.PostStateDraft, model.PostStatePublished, model.PostStatePrivate}

var commentStatuses = []string{
	model.CommentStatusNew,
	model.CommentStatusApproved,
	model.CommentStatusSpam,
	model.CommentStatusDeleted,
}

// ListPosts handles GET /posts: every post in any state.
func (h *AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queries.ListPosts(r.Context())
	if err != nil {
		logAndJSONError(w, "listing posts", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"posts": posts})
}

// GetPost handles GET /posts/{id}.
func (h *AdminHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	p, err := h.queries.GetPost(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		logAndJSONError(w, "loading post", err, "post_id", id)
		return
	}
	writeJSONSuccess(w, map[string]any{"post": p})
}

// SavePost handles POST /posts. A zero id creates a post. When an existing
// post changes its canonical URL the old one is kept as a historic URL.
func (h *AdminHandler) SavePost(w http.ResponseWriter, r *http.Request) {
	var p model.Post
	if err := decodeJSON(w, r, &p); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	if p.State == "" {
		p.State = model.PostStateDraft
	}
	if !slices.Contains(postStates, p.State) {
		writeJSONError(w, http.StatusBadRequest, "invalid post state")
		return
	}
	if p.Format == "" {
		p.Format = model.FormatHTML
	}
	p.URLCanonical = strings.Trim(strings.TrimSpace(p.URLCanonical), "/")
	if p.URLCanonical == "" {
		p.URLCanonical = util.Slugify(p.Title)
	}
	if p.URLCanonical == "" {
		writeJSONError(w, http.StatusBadRequest, "a canonical URL is required")
		return
	}

	now := time.Now().UTC()
	if p.ID > 0 {
		prev, err := h.queries.GetPost(r.Context(), p.ID)
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "post not found")
			return
		}
		if err != nil {
			logAndJSONError(w, "loading post", err, "post_id", p.ID)
			return
		}
		if old := prev.URLCanonical; old != "" && !strings.EqualFold(old, p.URLCanonical) &&
			!slices.Contains(p.URLHistoric, old) {
			p.URLHistoric = append(p.URLHistoric, old)
		}
		if p.DatePosted.IsZero() {
			p.DatePosted = prev.DatePosted
		}
	}
	if p.DatePosted.IsZero() {
		p.DatePosted = now
	}
	p.DateModified = now
	if p.Author.ID == 0 {
		p.Author.ID = middleware.GetUserID(r)
	}

	id, err := h.queries.SavePost(r.Context(), p)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		logAndJSONError(w, "saving post", err, "post_id", p.ID)
		return
	}
	h.logger.Info("post saved", "category", model.EventCategoryContent, "post_id", id,
		"user_id", middleware.GetUserID(r))
	writeJSONSuccess(w, map[string]any{"id": id})
}

// ListTags handles GET /tags: stored tag records plus the tags in use.
func (h *AdminHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.queries.LoadTags(r.Context())
	if err != nil {
		logAndJSONError(w, "listing tags", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"tags": tags, "in_use": h.blog.InUseTags()})
}

// SaveTag handles POST /tags. The id is normalised the way post labels are.
func (h *AdminHandler) SaveTag(w http.ResponseWriter, r *http.Request) {
	var t model.Tag
	if err := decodeJSON(w, r, &t); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = model.TagKey(t.ID)
	if t.ID == "" {
		t.ID = util.Slugify(t.Title)
	}
	if t.ID == "" {
		writeJSONError(w, http.StatusBadRequest, "tag id is required")
		return
	}
	if err := h.queries.SaveTag(r.Context(), t); err != nil {
		logAndJSONError(w, "saving tag", err, "tag", t.ID)
		return
	}
	writeJSONSuccess(w, map[string]any{"id": t.ID})
}

// ListComments handles GET /comments?status=&limit=. It reads the database,
// so comments waiting for moderation are included.
func (h *AdminHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !slices.Contains(commentStatuses, status) {
		writeJSONError(w, http.StatusBadRequest, "invalid comment status")
		return
	}
	comments, err := h.queries.ListComments(r.Context(), status, listLimit(r))
	if err != nil {
		logAndJSONError(w, "listing comments", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"comments": comments})
}

type commentStatusRequest struct {
	Status string `json:"status"`
}

// SetCommentStatus handles POST /comments/{id}/status.
func (h *AdminHandler) SetCommentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid comment id")
		return
	}
	var req commentStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !slices.Contains(commentStatuses, req.Status) {
		writeJSONError(w, http.StatusBadRequest, "invalid comment status")
		return
	}

	c, err := h.queries.GetComment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "comment not found")
		return
	}
	if err != nil {
		logAndJSONError(w, "loading comment", err, "comment_id", id)
		return
	}
	c.Status = req.Status
	if err := h.queries.UpdateComment(r.Context(), c); err != nil {
		logAndJSONError(w, "updating comment", err, "comment_id", id)
		return
	}
	h.logger.Info("comment moderated", "category", model.EventCategoryContent, "comment_id", id, "status", c.Status)
	writeJSONSuccess(w, nil)
}

// ListMenus handles GET /menus.
func (h *AdminHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.queries.LoadMenus(r.Context())
	if err != nil {
		logAndJSONError(w, "listing menus", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"menus": menus})
}

// SaveMenu handles POST /menus.
func (h *AdminHandler) SaveMenu(w http.ResponseWriter, r *http.Request) {
	var m model.Menu
	if err := decodeJSON(w, r, &m); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "menu name is required")
		return
	}
	id, err := h.queries.SaveMenu(r.Context(), m)
	if err != nil {
		logAndJSONError(w, "saving menu", err, "menu", m.Name)
		return
	}
	writeJSONSuccess(w, map[string]any{"id": id})
}

// ListSnippets handles GET /snippets.
func (h *AdminHandler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.queries.LoadSnippets(r.Context())
	if err != nil {
		logAndJSONError(w, "listing snippets", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"snippets": snippets})
}

// SaveSnippet handles POST /snippets. Posts pick up the change on the next
// posts reload.
func (h *AdminHandler) SaveSnippet(w http.ResponseWriter, r *http.Request) {
	var s model.Snippet
	if err := decodeJSON(w, r, &s); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" || strings.ContainsAny(s.Name, " []") {
		writeJSONError(w, http.StatusBadRequest, "snippet name must be a single word")
		return
	}
	id, err := h.queries.SaveSnippet(r.Context(), s)
	if err != nil {
		logAndJSONError(w, "saving snippet", err, "snippet", s.Name)
		return
	}
	writeJSONSuccess(w, map[string]any{"id": id})
}

// ListRedirects handles GET /redirects.
func (h *AdminHandler) ListRedirects(w http.ResponseWriter, r *http.Request) {
	redirects, err := h.queries.LoadRedirects(r.Context())
	if err != nil {
		logAndJSONError(w, "listing redirects", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"redirects": redirects})
}

// SaveRedirect handles POST /redirects. Targets must be absolute http(s) URLs.
func (h *AdminHandler) SaveRedirect(w http.ResponseWriter, r *http.Request) {
	var rd model.Redirect
	if err := decodeJSON(w, r, &rd); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rd.Name = strings.TrimSpace(rd.Name)
	rd.URL = strings.TrimSpace(rd.URL)
	if rd.Name == "" || strings.Contains(rd.Name, "/") {
		writeJSONError(w, http.StatusBadRequest, "invalid redirect name")
		return
	}
	if !strings.HasPrefix(rd.URL, "https://") && !strings.HasPrefix(rd.URL, "http://") {
		writeJSONError(w, http.StatusBadRequest, "redirect target must be an http(s) URL")
		return
	}
	id, err := h.queries.SaveRedirect(r.Context(), rd)
	if err != nil {
		logAndJSONError(w, "saving redirect", err, "redirect", rd.Name)
		return
	}
	writeJSONSuccess(w, map[string]any{"id": id})
}

// DeleteRedirect handles DELETE /redirects/{id}.
func (h *AdminHandler) DeleteRedirect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid redirect id")
		return
	}
	if err := h.queries.DeleteRedirect(r.Context(), id); err != nil {
		logAndJSONError(w, "deleting redirect", err, "redirect_id", id)
		return
	}
	writeJSONSuccess(w, nil)
}

// ListGallery handles GET /gallery?limit=&offset=.
func (h *AdminHandler) ListGallery(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	images, err := h.queries.ListGallery(r.Context(), listLimit(r), offset)
	if err != nil {
		logAndJSONError(w, "listing gallery", err)
		return
	}
	type item struct {
		model.GalleryImage
		URL string `json:"url"`
	}
	out := make([]item, len(images))
	for i, img := range images {
		out[i] = item{GalleryImage: img, URL: img.URL()}
	}
	writeJSONSuccess(w, map[string]any{"images": out})
}

// Upload handles POST /gallery as multipart form with a "file" field.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, gallery.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "a file is required")
		return
	}
	defer func() { _ = file.Close() }()

	img, err := h.gallery.Upload(r.Context(), header.Filename, file)
	switch {
	case errors.Is(err, gallery.ErrTooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		logAndJSONError(w, "uploading image", err, "filename", header.Filename)
	default:
		h.logger.Info("image uploaded", "category", model.EventCategoryContent, "guid", img.GUID,
			"user_id", middleware.GetUserID(r))
		writeJSONSuccess(w, map[string]any{"image": img, "url": img.URL()})
	}
}
