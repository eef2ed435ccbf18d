// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging decodes uploads and produces the resized gallery variants.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Size bounds for resized variants.
const (
	MinSize = 26
	MaxSize = 2000
)

// DefaultQuality is the JPEG quality of resized variants.
const DefaultQuality = 90

var (
	// ErrUnsupportedFormat is returned for anything but JPEG, PNG, GIF and WebP.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrInvalidSize is returned for malformed or out of range size specs.
	ErrInvalidSize = errors.New("invalid image size")
	// ErrUpscale is returned when a variant would be larger than its source.
	ErrUpscale = errors.New("variant larger than original")
)

// Size is a variant spec such as "w600" (600px wide) or "h300" (300px high).
type Size struct {
	Side   byte
	Pixels int
}

func (s Size) String() string {
	return string(s.Side) + strconv.Itoa(s.Pixels)
}

// ParseSize parses a variant spec.
func ParseSize(spec string) (Size, error) {
	if len(spec) < 2 || (spec[0] != 'w' && spec[0] != 'h') {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, spec)
	}
	n, err := strconv.Atoi(spec[1:])
	if err != nil || n < MinSize || n > MaxSize {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, spec)
	}
	return Size{Side: spec[0], Pixels: n}, nil
}

// Dimensions returns the target width and height for a source of w x h,
// keeping the aspect ratio.
func (s Size) Dimensions(w, h int) (int, int) {
	ratio := float64(w) / float64(h)
	if s.Side == 'h' {
		return int(math.Round(float64(s.Pixels) * ratio)), s.Pixels
	}
	return s.Pixels, int(math.Round(float64(s.Pixels) / ratio))
}

// Decoded is an upload after orientation correction.
type Decoded struct {
	Image  image.Image
	Format string
	Width  int
	Height int
}

// Decode reads an image and applies its EXIF orientation.
func Decode(data []byte) (*Decoded, error) {
	format := DetectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	b := img.Bounds()
	return &Decoded{Image: img, Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

// Resize scales img to size. Variants are never upscaled.
func Resize(img image.Image, size Size) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrUnsupportedFormat
	}
	w, h := size.Dimensions(b.Dx(), b.Dy())
	if w > b.Dx() || h > b.Dy() {
		return nil, ErrUpscale
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// readExifOrientation returns 1 (normal) when no orientation is recorded.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation recorded in EXIF.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Encode writes img in format. WebP has no pure Go encoder and becomes JPEG.
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// DetectFormat sniffs the image format from content.
func DetectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// TIFF is rejected outright (CVE-2023-36308 in disintegration/imaging).
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// FormatFromExt maps a file extension to a format name, "" when unknown.
func FormatFromExt(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpg", "jpeg":
		return "jpeg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "webp":
		return "webp"
	default:
		return ""
	}
}

// Ext returns the canonical file extension of a format, with the dot.
func Ext(format string) string {
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}

// MimeType returns the content type of a format.
func MimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
