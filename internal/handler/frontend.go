// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/blog"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/seo"
	"github.com/olegiv/oblog/internal/util"
)

// CommentStore persists reader comments. *store.Queries satisfies it.
type CommentStore interface {
	CreateComment(ctx context.Context, c model.Comment) (int64, error)
}

// FrontendHandler serves the public pages.
type FrontendHandler struct {
	blog           *blog.Blog
	comments       CommentStore
	expectedAnswer string
	logger         *slog.Logger
	now            func() time.Time
}

// NewFrontendHandler creates a FrontendHandler. expectedAnswer is the reply
// to the comment spam question.
func NewFrontendHandler(b *blog.Blog, comments CommentStore, expectedAnswer string, logger *slog.Logger) *FrontendHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrontendHandler{
		blog:           b,
		comments:       comments,
		expectedAnswer: expectedAnswer,
		logger:         logger,
		now:            time.Now,
	}
}

// Home handles GET /.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	doc, err := h.blog.HTMLIndex(r.Context())
	h.writePage(w, r, http.StatusOK, doc, err)
}

// Tag handles GET /tag/{tag}?p=N. Pages are 1-based in the URL.
func (h *FrontendHandler) Tag(w http.ResponseWriter, r *http.Request) {
	doc, ok, err := h.blog.HTMLTag(r.Context(), chi.URLParam(r, "tag"), pageIndex(r))
	if err == nil && !ok {
		h.NotFound(w, r)
		return
	}
	h.writePage(w, r, http.StatusOK, doc, err)
}

// Search handles GET /search?q=&p=N.
func (h *FrontendHandler) Search(w http.ResponseWriter, r *http.Request) {
	doc, err := h.blog.HTMLSearch(r.Context(), r.URL.Query().Get("q"), pageIndex(r))
	h.writePage(w, r, http.StatusOK, doc, err)
}

// Post handles every other GET path as a post SEO URL.
func (h *FrontendHandler) Post(w http.ResponseWriter, r *http.Request) {
	id := h.blog.PostIDBySEOURL(r.URL.Path)
	if id == 0 {
		h.NotFound(w, r)
		return
	}

	doc, ok, err := h.blog.HTMLPost(r.Context(), id, blog.Visit{
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	})
	if err == nil && !ok {
		h.NotFound(w, r)
		return
	}
	h.writePage(w, r, http.StatusOK, doc, err)
}

// NotFound renders the 404 page.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	doc, err := h.blog.HTMLNotFound(r.Context())
	h.writePage(w, r, http.StatusNotFound, doc, err)
}

// Sitemap handles GET /sitemap.xml.
func (h *FrontendHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	doc, err := h.blog.HTMLSitemap(r.Context())
	h.writeDocument(w, r, "application/xml; charset=utf-8", doc, err)
}

// Feed handles GET /feed.
func (h *FrontendHandler) Feed(w http.ResponseWriter, r *http.Request) {
	doc, err := h.blog.HTMLFeed(r.Context())
	h.writeDocument(w, r, "application/rss+xml; charset=utf-8", doc, err)
}

// Robots handles GET /robots.txt.
func (h *FrontendHandler) Robots(w http.ResponseWriter, r *http.Request) {
	doc := seo.Robots(seo.RobotsConfig{SiteURL: h.blog.Settings().Site.URL})
	h.writeDocument(w, r, "text/plain; charset=utf-8", doc, nil)
}

// Forward handles GET /fwd/{name}.
func (h *FrontendHandler) Forward(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.blog.LookupRedirect(chi.URLParam(r, "name")), http.StatusFound)
}

// Comment handles POST /comment. New comments wait for moderation.
func (h *FrontendHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var sub model.CommentSubmission
	if err := decodeJSON(w, r, &sub); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sub.Validate(h.expectedAnswer); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			writeJSONError(w, http.StatusBadRequest, ve.Message)
			return
		}
		logAndJSONError(w, "validating comment", err)
		return
	}
	if _, ok := h.blog.Post(sub.PostID); !ok {
		writeJSONError(w, http.StatusBadRequest, model.MsgPostNotFound)
		return
	}

	id, err := h.comments.CreateComment(r.Context(), sub.Comment(h.now().UTC()))
	if err != nil {
		logAndJSONError(w, "saving comment", err, "post_id", sub.PostID)
		return
	}
	h.logger.Info("comment received", "category", model.EventCategoryContent, "comment_id", id, "post_id", sub.PostID)
	writeJSONSuccess(w, map[string]any{"id": id})
}

// pageIndex converts the 1-based ?p= parameter to a 0-based page.
func pageIndex(r *http.Request) int {
	return queryInt(r, "p", 1) - 1
}

func (h *FrontendHandler) writePage(w http.ResponseWriter, r *http.Request, status int, doc string, err error) {
	if err != nil {
		h.logger.Error("rendering page failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(doc))
	}
}

func (h *FrontendHandler) writeDocument(w http.ResponseWriter, r *http.Request, contentType, doc string, err error) {
	if err != nil {
		h.logger.Error("building document failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(doc))
}

// trimTrailingSlash strips a trailing slash from every path but "/".
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; p != "/" && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = strings.TrimRight(r.URL.RawPath, "/")
		}
		next.ServeHTTP(w, r)
	})
}
