package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/system"
)

// refSize is the point size used to measure text before fitting it
const refSize = 100.0

var (
	fontOnce sync.Once
	textFont *opentype.Font
	fontErr  error
)

// regularFont parses Go Regular once. It covers WGL4, so Latin and Cyrillic
// slides render with real glyphs.
func regularFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		textFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return textFont, fontErr
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72, // 1pt = 1px
		Hinting: font.HintingNone,
	})
}

// measure returns the widest line and the line height of text in face
func measure(face font.Face, lines []string) (int, int) {
	d := &font.Drawer{Face: face}
	w := 0
	for _, line := range lines {
		w = max(w, d.MeasureString(line).Ceil())
	}
	return w, face.Metrics().Height.Ceil()
}

// DrawText renders text into rect on dst with a font size fitted to the
// rect, left-aligned and vertically centred. Lines are split on "\n".
func DrawText(dst draw.Image, r analyzer.Rect, text string, c color.Color) error {
	text = strings.TrimRight(text, "\n")
	if text == "" || r.Empty() {
		return nil
	}
	lines := strings.Split(text, "\n")

	f, err := regularFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	ref, err := newFace(f, refSize)
	if err != nil {
		return err
	}
	refW, refH := measure(ref, lines)
	ref.Close()
	if refW == 0 || refH == 0 {
		return nil
	}

	size := refSize * min(float64(r.Height)/float64(refH*len(lines)), float64(r.Width)/float64(refW))
	if size < 1 {
		return nil
	}

	face, err := newFace(f, size)
	if err != nil {
		return err
	}
	defer func() { face.Close() }()

	// Rounding in the real face can overshoot by a pixel
	w, lineH := measure(face, lines)
	for (w > r.Width || lineH*len(lines) > r.Height) && size > 1 {
		face.Close()
		size *= 0.95
		if face, err = newFace(f, size); err != nil {
			return err
		}
		w, lineH = measure(face, lines)
	}

	// Glyphs are drawn into a scratch layer so nothing spills outside the rect
	scratch := system.GetImage(image.Rect(0, 0, r.Width, r.Height))
	defer system.PutImage(scratch)
	draw.Draw(scratch, scratch.Bounds(), image.Transparent, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: scratch, Src: image.NewUniform(c), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	top := (r.Height - lineH*len(lines)) / 2
	for i, line := range lines {
		d.Dot = fixed.P(0, top+i*lineH+ascent)
		d.DrawString(line)
	}

	draw.Draw(dst, r.Rectangle(), scratch, image.Point{}, draw.Over)
	return nil
}

// ParseHexColor parses "#RRGGBB" or "#RGB". An empty string is black.
func ParseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(s) {
	case 0:
		return c, nil
	case 6:
		if _, err := fmt.Sscanf(s, "%2x%2x%2x", &c.R, &c.G, &c.B); err != nil {
			return c, fmt.Errorf("invalid color %q: %w", s, err)
		}
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &c.R, &c.G, &c.B); err != nil {
			return c, fmt.Errorf("invalid color %q: %w", s, err)
		}
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		return c, fmt.Errorf("invalid color %q", s)
	}

	return c, nil
}
