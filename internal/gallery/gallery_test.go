// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/imaging"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/testutil"
)

func testPNG(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestGallery(t *testing.T) (*Gallery, *store.Queries) {
	t.Helper()
	q := testutil.TestQueries(t)
	g, err := New(t.TempDir(), q, testutil.TestLoggerSilent())
	require.NoError(t, err)
	return g, q
}

func TestUpload(t *testing.T) {
	g, q := newTestGallery(t)
	ctx := context.Background()

	img, err := g.Upload(ctx, "../../Holiday Photo.PNG", bytes.NewReader(testPNG(t, 300, 150, 10)))
	require.NoError(t, err)
	assert.NotZero(t, img.ID)
	assert.Equal(t, "holiday-photo", img.Name)
	assert.Equal(t, ".png", img.Ext)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, 300, img.Width)
	assert.Equal(t, 150, img.Height)
	assert.Len(t, img.Hash, 32)

	assert.FileExists(t, filepath.Join(g.Dir(), OriginalDir, img.GUID+".png"))

	stored, err := q.GetGalleryImage(ctx, img.GUID)
	require.NoError(t, err)
	assert.Equal(t, img.Hash, stored.Hash)
}

func TestUpload_DeduplicatesByContent(t *testing.T) {
	g, q := newTestGallery(t)
	ctx := context.Background()
	data := testPNG(t, 60, 60, 20)

	first, err := g.Upload(ctx, "a.png", bytes.NewReader(data))
	require.NoError(t, err)
	second, err := g.Upload(ctx, "b.png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, first.GUID, second.GUID)

	all, err := q.ListGallery(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpload_Rejects(t *testing.T) {
	g, _ := newTestGallery(t)
	ctx := context.Background()

	_, err := g.Upload(ctx, "notes.txt", strings.NewReader("just text"))
	assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)

	_, err = g.Upload(ctx, "..", bytes.NewReader(testPNG(t, 30, 30, 1)))
	assert.Error(t, err)

	big := bytes.NewReader(make([]byte, MaxUploadSize+10))
	_, err = g.Upload(ctx, "big.png", big)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestVariant(t *testing.T) {
	g, _ := newTestGallery(t)
	img, err := g.Upload(context.Background(), "wide.png", bytes.NewReader(testPNG(t, 200, 100, 30)))
	require.NoError(t, err)

	path, ok := g.Variant(img.GUID, "w100", "thumb.png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(g.Dir(), "w100", img.GUID+".png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	again, ok := g.Variant(img.GUID, "w100", "other-name.png")
	require.True(t, ok)
	assert.Equal(t, path, again)
}

func TestVariant_UpscaleServesOriginal(t *testing.T) {
	g, _ := newTestGallery(t)
	img, err := g.Upload(context.Background(), "small.png", bytes.NewReader(testPNG(t, 80, 40, 40)))
	require.NoError(t, err)

	path, ok := g.Variant(img.GUID, "w600", "x.png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(g.Dir(), OriginalDir, img.GUID+".png"), path)
	assert.NoFileExists(t, filepath.Join(g.Dir(), "w600", img.GUID+".png"))
}

func TestVariant_Invalid(t *testing.T) {
	g, _ := newTestGallery(t)
	img, err := g.Upload(context.Background(), "p.png", bytes.NewReader(testPNG(t, 100, 100, 50)))
	require.NoError(t, err)

	tests := []struct {
		name, guid, size, tail string
	}{
		{"unknown guid", "does-not-exist", "w100", "x.png"},
		{"bad size", img.GUID, "q100", "x.png"},
		{"too small", img.GUID, "w10", "x.png"},
		{"bad extension", img.GUID, "w100", "x.txt"},
		{"traversal guid", "../etc", "w100", "x.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := g.Variant(tt.guid, tt.size, tt.tail)
			assert.False(t, ok)
		})
	}
}

func TestVariant_ConcurrentRequestsResizeOnce(t *testing.T) {
	g, _ := newTestGallery(t)
	img, err := g.Upload(context.Background(), "c.png", bytes.NewReader(testPNG(t, 240, 120, 60)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	paths := make([]string, 16)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], _ = g.Variant(img.GUID, "h60", "c.png")
		}(i)
	}
	wg.Wait()

	want := filepath.Join(g.Dir(), "h60", img.GUID+".png")
	for _, p := range paths {
		assert.Equal(t, want, p)
	}
	entries, err := os.ReadDir(filepath.Join(g.Dir(), "h60"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestOriginal(t *testing.T) {
	g, _ := newTestGallery(t)
	img, err := g.Upload(context.Background(), "o.png", bytes.NewReader(testPNG(t, 50, 50, 70)))
	require.NoError(t, err)

	path, ok := g.Original("original/" + img.GUID + ".png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(g.Dir(), OriginalDir, img.GUID+".png"), path)

	path, ok = g.Original(img.GUID + ".png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(g.Dir(), OriginalDir, img.GUID+".png"), path)

	_, ok = g.Original("missing.png")
	assert.False(t, ok)
	_, ok = g.Original("../../etc/passwd")
	assert.False(t, ok)
}
