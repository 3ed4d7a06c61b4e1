package engine

import (
	"fmt"
	"strings"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/config"
	"github.com/ivlev/slidefix/internal/inpaint"
)

// NewInpainter picks the inpainting backend. Without an endpoint pages are
// cleaned offline with the border fill.
func NewInpainter(cfg *config.Config) inpaint.Inpainter {
	if cfg.InpaintURL == "" {
		return inpaint.BorderFill{}
	}

	h := inpaint.NewHTTPInpainter(cfg.InpaintURL, cfg.InpaintKey)
	if cfg.InpaintPrompt != "" {
		h.Prompt = cfg.InpaintPrompt
	}
	if cfg.MaxRequestKB > 0 {
		h.MaxRequestBytes = cfg.MaxRequestKB << 10
	}
	h.MaxShrinkAttempts = cfg.ShrinkAttempts
	return h
}

// NewDetector builds the configured text detector
func NewDetector(cfg *config.Config) (analyzer.Detector, error) {
	det, err := analyzer.NewDetector(cfg.Detector)
	if err != nil {
		return nil, err
	}

	switch d := det.(type) {
	case *analyzer.ContrastDetector:
		if cfg.EdgeThreshold > 0 {
			d.EdgeThreshold = cfg.EdgeThreshold
		}
		if cfg.MinBlockArea > 0 {
			d.MinBlockArea = cfg.MinBlockArea
		}
		if cfg.MinPixels > 0 {
			d.MinPixels = cfg.MinPixels
		}
	case *analyzer.TesseractDetector:
		if langs := splitLanguages(cfg.OCRLanguages); len(langs) > 0 {
			d.Languages = langs
		}
	default:
		return nil, fmt.Errorf("detector %T is not configurable", det)
	}

	return det, nil
}

// splitLanguages turns "eng+rus" or "eng,rus" into tesseract language codes
func splitLanguages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	return fields
}
