// Package brush rasterizes erase-brush strokes into a coverage mask.
package brush

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/ivlev/slidefix/internal/analyzer"
)

// Mode is the compositing mode of a stroke
type Mode string

const (
	ModeAdd      Mode = "add"
	ModeSubtract Mode = "subtract"
)

// circleSegments is the polygon resolution used for round caps and joins
const circleSegments = 32

// Point is a stroke vertex in page pixel coordinates
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Stroke is one brush polyline
type Stroke struct {
	Mode     Mode    `yaml:"mode"`
	Diameter float64 `yaml:"diameter"`
	Points   []Point `yaml:"points"`
}

// Validate checks the stroke mode and diameter
func (s Stroke) Validate() error {
	switch s.Mode {
	case ModeAdd, ModeSubtract, "":
	default:
		return fmt.Errorf("unknown stroke mode: %s", s.Mode)
	}
	if s.Diameter <= 0 {
		return fmt.Errorf("stroke diameter must be positive, got %g", s.Diameter)
	}
	return nil
}

// MinPixelsForDiameter returns the smallest region size kept for a brush:
// big enough to reject accidental taps, proportional to the brush area.
func MinPixelsForDiameter(diameter float64) int {
	return max(120, int(math.Round(diameter*diameter/3)))
}

// Rasterize renders strokes in order into a width*height coverage buffer
// (0 = untouched, 255 = fully painted). Add strokes composite over the
// existing coverage, subtract strokes erase it.
func Rasterize(strokes []Stroke, width, height int) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}

	coverage := make([]byte, width*height)
	layer := image.NewAlpha(image.Rect(0, 0, width, height))
	z := vector.NewRasterizer(width, height)

	for _, s := range strokes {
		if len(s.Points) == 0 || s.Diameter <= 0 {
			continue
		}

		z.Reset(width, height)
		z.DrawOp = draw.Src
		tracePath(z, s)
		z.Draw(layer, layer.Bounds(), image.Opaque, image.Point{})

		for i, src := range layer.Pix {
			inv := 255 - uint32(src)
			dst := uint32(coverage[i])
			if s.Mode == ModeSubtract {
				coverage[i] = byte(dst * inv / 255)
			} else {
				coverage[i] = byte(uint32(src) + dst*inv/255)
			}
		}
	}

	return coverage
}

// Threshold returns the noise threshold for a stroke set, derived from the
// widest add stroke. It is 0 when nothing is added.
func Threshold(strokes []Stroke) int {
	widest := 0.0
	for _, s := range strokes {
		if s.Mode != ModeSubtract && s.Diameter > widest {
			widest = s.Diameter
		}
	}
	if widest == 0 {
		return 0
	}
	return MinPixelsForDiameter(widest)
}

// Regions rasterizes strokes and extracts the regions worth inpainting,
// using Threshold as the minimum region size.
func Regions(strokes []Stroke, width, height int) []analyzer.Rect {
	threshold := Threshold(strokes)
	if threshold == 0 {
		return nil
	}

	mask := Rasterize(strokes, width, height)
	return analyzer.ExtractRegions(mask, width, height, threshold)
}

// tracePath adds a stroke outline as a union of discs at every vertex
// (round caps and joins) and quads along every segment. All sub-paths share
// one winding direction so overlaps accumulate instead of cancelling.
func tracePath(z *vector.Rasterizer, s Stroke) {
	r := s.Diameter / 2

	for _, p := range s.Points {
		addDisc(z, p, r)
	}

	for i := 1; i < len(s.Points); i++ {
		p0, p1 := s.Points[i-1], s.Points[i]
		dx, dy := p1.X-p0.X, p1.Y-p0.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*r, dx/length*r

		z.MoveTo(float32(p0.X+nx), float32(p0.Y+ny))
		z.LineTo(float32(p1.X+nx), float32(p1.Y+ny))
		z.LineTo(float32(p1.X-nx), float32(p1.Y-ny))
		z.LineTo(float32(p0.X-nx), float32(p0.Y-ny))
		z.ClosePath()
	}
}

func addDisc(z *vector.Rasterizer, c Point, r float64) {
	// Decreasing angle matches the winding of the segment quads
	z.MoveTo(float32(c.X+r), float32(c.Y))
	for i := 1; i < circleSegments; i++ {
		a := -2 * math.Pi * float64(i) / circleSegments
		z.LineTo(float32(c.X+r*math.Cos(a)), float32(c.Y+r*math.Sin(a)))
	}
	z.ClosePath()
}
