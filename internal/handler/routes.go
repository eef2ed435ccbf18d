// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/middleware"
)

// staticMaxAge is the Cache-Control max-age of /static files, in seconds.
const staticMaxAge = 86400

// Routes collects what Mount needs.
type Routes struct {
	Frontend *FrontendHandler
	Auth     *AuthHandler
	Admin    *AdminHandler
	Gallery  *GalleryHandler // optional
	Health   *HealthHandler

	Tokens          *auth.TokenManager
	LoginProtection *middleware.LoginProtection // optional
	CommentLimiter  *middleware.RateLimiter     // optional
	CSRF            func(http.Handler) http.Handler

	Static         fs.FS // optional, served under /static
	MetricsEnabled bool
}

// Mount registers every route on r. The catch-all resolves SEO URLs, so it
// must stay the last pattern.
func (rt Routes) Mount(r chi.Router) {
	csrf := rt.CSRF
	if csrf == nil {
		csrf = func(next http.Handler) http.Handler { return next }
	}

	r.Use(middleware.Authenticate(rt.Tokens))
	r.Use(trimTrailingSlash)

	if rt.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/health", rt.Health.Health)

	if rt.Static != nil {
		r.With(middleware.StaticCache(staticMaxAge)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(rt.Static)))
	}
	if rt.Gallery != nil {
		r.Get("/gallery/{guid}/{size}/{tail}", rt.Gallery.Variant)
		r.Get("/gallery/*", rt.Gallery.File)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(csrf)
		r.Get("/check", rt.Auth.Check)
		if rt.LoginProtection != nil {
			r.With(rt.LoginProtection.Middleware()).Post("/login", rt.Auth.Login)
		} else {
			r.Post("/login", rt.Auth.Login)
		}
		r.Post("/logout", rt.Auth.Logout)
	})

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.RequireAdmin())
		r.Use(csrf)
		rt.Admin.Routes(r)
	})

	f := rt.Frontend
	r.Get("/", f.Home)
	r.Get("/tag/{tag}", f.Tag)
	r.Get("/search", f.Search)
	r.Get("/sitemap.xml", f.Sitemap)
	r.Get("/feed", f.Feed)
	r.Get("/robots.txt", f.Robots)
	r.Get("/fwd/{name}", f.Forward)

	comment := r.With(csrf)
	if rt.CommentLimiter != nil {
		comment = comment.With(rt.CommentLimiter.Middleware())
	}
	comment.Post("/comment", f.Comment)

	r.Get("/*", f.Post)
	r.NotFound(f.NotFound)
}
