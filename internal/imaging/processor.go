// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalises uploaded event logos: it decodes the upload,
// applies the EXIF orientation, fits it into a bounding box and stores it
// as PNG under the uploads directory.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/eventdesk/internal/util"
)

// LogoDir is the uploads subdirectory holding event logos.
const LogoDir = "event-logos"

// Default logo bounding box.
const (
	DefaultMaxWidth  = 600
	DefaultMaxHeight = 200
)

// MaxSourcePixels bounds the dimensions of an upload before it is decoded.
const MaxSourcePixels = 40_000_000

var (
	// ErrUnsupportedFormat is returned for uploads that are not JPEG, PNG, GIF or WebP.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrInvalidReference is returned for logo references that are not ours.
	ErrInvalidReference = errors.New("invalid logo reference")
	// ErrImageTooLarge is returned for uploads declaring more than MaxSourcePixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

var refPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// LogoResult describes a stored logo.
type LogoResult struct {
	Ref      string // uuid stored in the "logo" setting
	Width    int
	Height   int
	Size     int64
	FilePath string
}

// Processor stores logos below uploadDir.
type Processor struct {
	uploadDir string
	maxWidth  int
	maxHeight int
}

// NewProcessor creates a processor with the default bounding box.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{
		uploadDir: uploadDir,
		maxWidth:  DefaultMaxWidth,
		maxHeight: DefaultMaxHeight,
	}
}

// WithBounds returns a copy of p that fits logos into maxWidth x maxHeight.
func (p *Processor) WithBounds(maxWidth, maxHeight int) *Processor {
	c := *p
	c.maxWidth = maxWidth
	c.maxHeight = maxHeight
	return &c
}

// ProcessLogo decodes the image in r and stores it under a new reference.
// Images smaller than the bounding box are not enlarged.
func (p *Processor) ProcessLogo(r io.Reader) (*LogoResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	if detectFormat(data) == "" {
		return nil, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	b := img.Bounds()
	if b.Dx() > p.maxWidth || b.Dy() > p.maxHeight {
		img = imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode logo: %w", err)
	}

	ref := uuid.NewString()
	path, err := p.LogoPath(ref)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logo directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write logo: %w", err)
	}

	return &LogoResult{
		Ref:      ref,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Size:     int64(buf.Len()),
		FilePath: path,
	}, nil
}

// LogoPath returns the file path of the logo stored under ref.
func (p *Processor) LogoPath(ref string) (string, error) {
	if !refPattern.MatchString(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return util.SafeJoinPath(p.uploadDir, LogoDir, ref+".png")
}

// DeleteLogo removes the file stored under ref. A missing file is not an error.
func (p *Processor) DeleteLogo(ref string) error {
	path, err := p.LogoPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete logo: %w", err)
	}
	return nil
}

// StoredLogo is a logo file found on disk.
type StoredLogo struct {
	Ref     string
	ModTime time.Time
}

// ListLogos returns every stored logo. Files whose names are not logo
// references are ignored. A missing logo directory yields no logos.
func (p *Processor) ListLogos() ([]StoredLogo, error) {
	entries, err := os.ReadDir(filepath.Join(p.uploadDir, LogoDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list logos: %w", err)
	}

	var logos []StoredLogo
	for _, entry := range entries {
		ref, ok := strings.CutSuffix(entry.Name(), ".png")
		if !ok || entry.IsDir() || !refPattern.MatchString(ref) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		logos = append(logos, StoredLogo{Ref: ref, ModTime: info.ModTime()})
	}
	return logos, nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
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

// applyOrientation undoes the camera rotation recorded in EXIF orientation
// values 2 to 8. Other values leave img unchanged.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// detectFormat sniffs the image format. TIFF is rejected
// (CVE-2023-36308 in disintegration/imaging).
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	switch {
	case strings.Contains(contentType, "tiff"):
		return ""
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
