// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/gallery"
)

// notFoundImage is served for unknown gallery paths.
const notFoundImage = "img/not_found.png"

// galleryMaxAge is the Cache-Control max-age of gallery files.
const galleryMaxAge = "public, max-age=2592000"

// GalleryHandler serves uploaded images and their resized variants.
type GalleryHandler struct {
	gallery  *gallery.Gallery
	notFound []byte
	logger   *slog.Logger
}

// NewGalleryHandler creates a GalleryHandler. static must contain
// img/not_found.png.
func NewGalleryHandler(g *gallery.Gallery, static fs.FS, logger *slog.Logger) (*GalleryHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	img, err := fs.ReadFile(static, notFoundImage)
	if err != nil {
		return nil, err
	}
	return &GalleryHandler{gallery: g, notFound: img, logger: logger}, nil
}

// Variant handles GET /gallery/{guid}/{size}/{tail}.
func (h *GalleryHandler) Variant(w http.ResponseWriter, r *http.Request) {
	path, ok := h.gallery.Variant(chi.URLParam(r, "guid"), chi.URLParam(r, "size"), chi.URLParam(r, "tail"))
	h.serve(w, r, path, ok)
}

// File handles GET /gallery/*: a file in the gallery root or an original.
func (h *GalleryHandler) File(w http.ResponseWriter, r *http.Request) {
	path, ok := h.gallery.Original(chi.URLParam(r, "*"))
	h.serve(w, r, path, ok)
}

func (h *GalleryHandler) serve(w http.ResponseWriter, r *http.Request, path string, ok bool) {
	if !ok {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(h.notFound)
		return
	}
	w.Header().Set("Cache-Control", galleryMaxAge)
	http.ServeFile(w, r, path)
}
