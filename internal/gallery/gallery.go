// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gallery stores uploaded images and serves resized variants that
// are generated on first request and cached on disk.
package gallery

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/olegiv/oblog/internal/imaging"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 20 << 20

// OriginalDir holds the uploaded files, named {guid}{ext}.
const OriginalDir = "original"

var (
	guidPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	tailPattern = regexp.MustCompile(`\.(jpg|jpeg|gif|png|webp)$`)

	// ErrTooLarge is returned for uploads over MaxUploadSize.
	ErrTooLarge = errors.New("upload too large")
)

// Store is the persistence the gallery needs. *store.Queries satisfies it.
type Store interface {
	CreateGalleryImage(ctx context.Context, g model.GalleryImage) (int64, error)
	GetGalleryImageByHash(ctx context.Context, hash string) (model.GalleryImage, error)
}

// Gallery manages the image directory.
type Gallery struct {
	dir    string
	db     Store
	logger *slog.Logger
	now    func() time.Time

	resizes singleflight.Group
}

// New creates a Gallery rooted at dir, creating the originals directory.
func New(dir string, db Store, logger *slog.Logger) (*Gallery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, OriginalDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating gallery directory: %w", err)
	}
	return &Gallery{dir: dir, db: db, logger: logger, now: time.Now}, nil
}

// Dir returns the gallery root.
func (g *Gallery) Dir() string {
	return g.dir
}

// Upload stores an image and records it. Identical content uploaded twice
// returns the first record.
func (g *Gallery) Upload(ctx context.Context, filename string, r io.Reader) (model.GalleryImage, error) {
	name, err := util.SanitizeFilename(filename)
	if err != nil {
		return model.GalleryImage{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return model.GalleryImage{}, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return model.GalleryImage{}, ErrTooLarge
	}

	decoded, err := imaging.Decode(data)
	if err != nil {
		return model.GalleryImage{}, err
	}

	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])
	if existing, err := g.db.GetGalleryImageByHash(ctx, hash); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.GalleryImage{}, err
	}

	img := model.GalleryImage{
		GUID:      uuid.NewString(),
		Name:      util.Slugify(strings.TrimSuffix(name, filepath.Ext(name))),
		Ext:       imaging.Ext(decoded.Format),
		MimeType:  imaging.MimeType(decoded.Format),
		Width:     decoded.Width,
		Height:    decoded.Height,
		Size:      int64(len(data)),
		Hash:      hash,
		CreatedAt: g.now().UTC(),
	}
	if img.Name == "" {
		img.Name = "image"
	}

	path, err := util.SafeJoinPath(g.dir, OriginalDir, img.GUID+img.Ext)
	if err != nil {
		return model.GalleryImage{}, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return model.GalleryImage{}, err
	}

	id, err := g.db.CreateGalleryImage(ctx, img)
	if err != nil {
		_ = os.Remove(path)
		return model.GalleryImage{}, err
	}
	img.ID = id
	g.logger.Info("image uploaded", "guid", img.GUID, "width", img.Width, "height", img.Height)
	return img, nil
}

// Variant returns the file serving /gallery/{guid}/{size}/{tail}. The
// resized file is created from the original on first request. When the
// size cannot be produced the original is served; ok is false when neither
// exists.
func (g *Gallery) Variant(guid, size, tail string) (path string, ok bool) {
	m := tailPattern.FindStringSubmatch(strings.ToLower(tail))
	if m == nil || !guidPattern.MatchString(guid) {
		return "", false
	}
	spec, err := imaging.ParseSize(size)
	if err != nil {
		return "", false
	}
	ext := "." + m[1]

	resized, err := util.SafeJoinPath(g.dir, spec.String(), guid+ext)
	if err != nil {
		return "", false
	}
	if fileExists(resized) {
		return resized, true
	}

	original, err := util.SafeJoinPath(g.dir, OriginalDir, guid+ext)
	if err != nil || !fileExists(original) {
		return "", false
	}

	_, err, _ = g.resizes.Do(resized, func() (any, error) {
		if fileExists(resized) {
			return nil, nil
		}
		return nil, g.resize(original, resized, spec)
	})
	if err != nil {
		if !errors.Is(err, imaging.ErrUpscale) {
			g.logger.Warn("resizing image failed", "guid", guid, "size", size, "error", err)
		}
		return original, true
	}
	return resized, true
}

func (g *Gallery) resize(original, resized string, size imaging.Size) error {
	data, err := os.ReadFile(original)
	if err != nil {
		return err
	}
	decoded, err := imaging.Decode(data)
	if err != nil {
		return err
	}
	img, err := imaging.Resize(decoded.Image, size)
	if err != nil {
		return err
	}
	format := imaging.FormatFromExt(resized)
	out, err := imaging.Encode(img, format, imaging.DefaultQuality)
	if err != nil {
		return err
	}
	return writeFileAtomic(resized, out)
}

// Original returns the file serving /gallery/{path}: a file directly in the
// gallery root, else one in the originals directory.
func (g *Gallery) Original(path string) (string, bool) {
	name, err := util.SanitizeFilename(path)
	if err != nil || !tailPattern.MatchString(strings.ToLower(name)) {
		return "", false
	}
	for _, dir := range []string{"", OriginalDir} {
		p, err := util.SafeJoinPath(g.dir, dir, name)
		if err == nil && fileExists(p) {
			return p, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeFileAtomic writes through a temporary file so readers never see a
// partial image.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
