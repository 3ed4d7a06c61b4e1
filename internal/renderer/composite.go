package renderer

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/slidefix/internal/analyzer"
)

// ToRGBA returns img as an origin-based *image.RGBA with a tight stride.
// The result never aliases img.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// Crop copies the rect out of img. The rect is clipped to the image bounds;
// the result is empty if nothing remains.
func Crop(img image.Image, r analyzer.Rect) *image.RGBA {
	rect := r.Rectangle().Intersect(img.Bounds())
	patch := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	if !rect.Empty() {
		draw.Draw(patch, patch.Bounds(), img, rect.Min, draw.Src)
	}
	return patch
}

// Paste draws patch into dst at rect, scaling when the sizes differ
func Paste(dst draw.Image, patch image.Image, r analyzer.Rect) {
	target := r.Rectangle()
	pb := patch.Bounds()
	if pb.Dx() == target.Dx() && pb.Dy() == target.Dy() {
		draw.Draw(dst, target, patch, pb.Min, draw.Src)
		return
	}
	xdraw.CatmullRom.Scale(dst, target, patch, pb, xdraw.Src, nil)
}

// Scale resizes img by factor (0 < factor) with CatmullRom resampling.
// Sizes never drop below 1x1.
func Scale(img image.Image, factor float64) *image.RGBA {
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}

// OutlineRects draws a 1px outline around every rect (debug previews)
func OutlineRects(dst draw.Image, rects []analyzer.Rect, c color.Color) {
	bounds := dst.Bounds()
	for _, r := range rects {
		rect := r.Rectangle().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, rect.Min.Y, c)
			dst.Set(x, rect.Max.Y-1, c)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(rect.Min.X, y, c)
			dst.Set(rect.Max.X-1, y, c)
		}
	}
}
