package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Encoder writes an edited page in one image format
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	Ext() string
}

// NewEncoder returns the encoder for format ("png", "jpeg"/"jpg", "webp").
// quality applies to JPEG only; 0 selects the default.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch strings.ToLower(format) {
	case "png", "":
		return PNGEncoder{}, nil
	case "jpeg", "jpg":
		if quality <= 0 {
			quality = 92
		}
		if quality > 100 {
			return nil, fmt.Errorf("jpeg quality must be 1-100, got %d", quality)
		}
		return JPEGEncoder{Quality: quality}, nil
	case "webp":
		return WebPEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

type PNGEncoder struct{}

func (PNGEncoder) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

func (PNGEncoder) Ext() string { return ".png" }

type JPEGEncoder struct {
	Quality int
}

func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: e.Quality})
}

func (JPEGEncoder) Ext() string { return ".jpg" }

// WebPEncoder writes lossless WebP
type WebPEncoder struct{}

func (WebPEncoder) Encode(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

func (WebPEncoder) Ext() string { return ".webp" }

// PagePath builds "<dir>/<base>_p001<ext>" for a zero-based page index
func PagePath(dir, base string, index int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_p%03d%s", base, index+1, ext))
}

// WritePage encodes img to path, creating parent directories
func WritePage(enc Encoder, path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := enc.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return f.Close()
}
