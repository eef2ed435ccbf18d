// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/blog"
	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/gallery"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/scheduler"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/store"
)

// Admin list limits.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AdminHandler serves the admin JSON API under /admin/api.
type AdminHandler struct {
	blog      *blog.Blog
	queries   *store.Queries
	cache     *cache.Store
	gallery   *gallery.Gallery
	dashboard *service.Dashboard
	scheduler *scheduler.Scheduler // optional
	logger    *slog.Logger
}

// AdminDeps are the collaborators of AdminHandler.
type AdminDeps struct {
	Blog      *blog.Blog
	Queries   *store.Queries
	Cache     *cache.Store
	Gallery   *gallery.Gallery
	Dashboard *service.Dashboard
	Scheduler *scheduler.Scheduler
	Logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(d AdminDeps) *AdminHandler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &AdminHandler{
		blog:      d.Blog,
		queries:   d.Queries,
		cache:     d.Cache,
		gallery:   d.Gallery,
		dashboard: d.Dashboard,
		scheduler: d.Scheduler,
		logger:    d.Logger,
	}
}

// Routes mounts the API on r. Callers wrap it with authentication.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Post("/reload", h.Reload)
	r.Get("/stats", h.Stats)
	r.Get("/dashboard", h.Dashboard)
	r.Get("/events", h.Events)
	r.Get("/jobs", h.Jobs)
	r.Post("/jobs/{name}/run", h.RunJob)
	r.Post("/preview", h.Preview)

	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{id}", h.GetPost)
	r.Post("/posts", h.SavePost)
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.SaveTag)
	r.Get("/comments", h.ListComments)
	r.Post("/comments/{id}/status", h.SetCommentStatus)
	r.Get("/menus", h.ListMenus)
	r.Post("/menus", h.SaveMenu)
	r.Get("/snippets", h.ListSnippets)
	r.Post("/snippets", h.SaveSnippet)
	r.Get("/redirects", h.ListRedirects)
	r.Post("/redirects", h.SaveRedirect)
	r.Delete("/redirects/{id}", h.DeleteRedirect)

	r.Get("/gallery", h.ListGallery)
	r.Post("/gallery", h.Upload)
}

// Reload handles POST /reload?which=kind and reports the item count.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	which := r.URL.Query().Get("which")
	n, err := h.blog.Reload(r.Context(), which)
	if err != nil {
		if errors.Is(err, blog.ErrUnknownKind) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		logAndJSONError(w, "reload failed", err, "which", which)
		return
	}
	h.logger.Info("content reloaded", "category", model.EventCategoryCache, "which", which, "num", n,
		"user_id", middleware.GetUserID(r))
	writeJSONSuccess(w, map[string]any{"num": n})
}

// Stats handles GET /stats: table sizes and cache counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSONSuccess(w, map[string]any{
		"counts": h.blog.Counts(),
		"cache":  h.cache.Stats(),
	})
}

// Dashboard handles GET /dashboard?days=N.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Build(r.Context(), queryInt(r, "days", service.DefaultDashboardDays))
	if err != nil {
		logAndJSONError(w, "building dashboard", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"dashboard": data})
}

// Events handles GET /events?limit=N.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListEvents(r.Context(), listLimit(r))
	if err != nil {
		logAndJSONError(w, "listing events", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}

// Jobs handles GET /jobs.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	var jobs []scheduler.JobInfo
	if h.scheduler != nil {
		jobs = h.scheduler.List()
	}
	writeJSONSuccess(w, map[string]any{"jobs": jobs})
}

// RunJob handles POST /jobs/{name}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeJSONError(w, http.StatusNotFound, scheduler.ErrJobNotFound.Error())
		return
	}
	name := chi.URLParam(r, "name")
	switch err := h.scheduler.TriggerNow(name); {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrJobRunning):
		writeJSONError(w, http.StatusConflict, err.Error())
	case err != nil:
		logAndJSONError(w, "triggering job", err, "job", name)
	default:
		writeJSONSuccess(w, nil)
	}
}

// Preview handles POST /preview: it renders a post body without saving.
func (h *AdminHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var p model.Post
	if err := decodeJSON(w, r, &p); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONSuccess(w, map[string]any{"html": h.blog.ConvertBody(r.Context(), p)})
}

func listLimit(r *http.Request) int {
	return min(queryInt(r, "limit", defaultListLimit), maxListLimit)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
