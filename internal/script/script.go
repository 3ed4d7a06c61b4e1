package script

import (
	"fmt"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/brush"
)

// Version is written into generated scripts
const Version = "1.0"

// Script is a complete set of edits for a document
type Script struct {
	Version string `yaml:"version"`
	Source  string `yaml:"source,omitempty"` // input file the script was made for
	DPI     int    `yaml:"dpi,omitempty"`    // raster resolution the coordinates refer to
	Pages   []Page `yaml:"pages"`
}

// Page holds the edits of one page. Coordinates are raster pixels.
type Page struct {
	Page         int             `yaml:"page"` // zero-based page index
	Strokes      []brush.Stroke  `yaml:"strokes,omitempty"`
	Regions      []analyzer.Rect `yaml:"regions,omitempty"`
	Replacements []Replacement   `yaml:"replacements,omitempty"`
	MinPixels    int             `yaml:"min_pixels,omitempty"` // overrides the brush-derived threshold
}

// Replacement puts new text into a rectangle
type Replacement struct {
	Rect     analyzer.Rect `yaml:"rect"`
	Text     string        `yaml:"text"`
	Original string        `yaml:"original,omitempty"` // text found there when the script was generated
	Color    string        `yaml:"color,omitempty"`    // "#RRGGBB", black if empty
	Erase    bool          `yaml:"erase"`              // inpaint the rect before drawing
}

// Validate checks structural consistency
func (s *Script) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("script version is missing")
	}

	seen := make(map[int]bool)
	for _, p := range s.Pages {
		if p.Page < 0 {
			return fmt.Errorf("negative page index %d", p.Page)
		}
		if seen[p.Page] {
			return fmt.Errorf("page %d listed twice", p.Page)
		}
		seen[p.Page] = true

		for i, st := range p.Strokes {
			if err := st.Validate(); err != nil {
				return fmt.Errorf("page %d stroke %d: %w", p.Page, i, err)
			}
		}
		for i, r := range p.Regions {
			if r.Empty() {
				return fmt.Errorf("page %d region %d is empty", p.Page, i)
			}
		}
		for i, r := range p.Replacements {
			if r.Rect.Empty() {
				return fmt.Errorf("page %d replacement %d has an empty rect", p.Page, i)
			}
		}
	}

	return nil
}

// PageEdits returns the edits for a page index, or nil
func (s *Script) PageEdits(index int) *Page {
	if s == nil {
		return nil
	}
	for i := range s.Pages {
		if s.Pages[i].Page == index {
			return &s.Pages[i]
		}
	}
	return nil
}
