package inpaint

import (
	"context"
	"image"
	"image/color"
	"image/draw"
)

// BorderFill is an offline inpainter: it paints the patch with the mean
// colour of its outer one-pixel ring. Good enough for flat slide
// backgrounds and usable without network access.
type BorderFill struct{}

func (BorderFill) Inpaint(ctx context.Context, patch image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := patch.Bounds()
	var r, g, bl, a, n uint64
	add := func(x, y int) {
		cr, cg, cb, ca := patch.At(x, y).RGBA()
		r += uint64(cr)
		g += uint64(cg)
		bl += uint64(cb)
		a += uint64(ca)
		n++
	}

	for x := b.Min.X; x < b.Max.X; x++ {
		add(x, b.Min.Y)
		if b.Dy() > 1 {
			add(x, b.Max.Y-1)
		}
	}
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		add(b.Min.X, y)
		if b.Dx() > 1 {
			add(b.Max.X-1, y)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n == 0 {
		return out, nil
	}

	fill := color.RGBA64{
		R: uint16(r / n),
		G: uint16(g / n),
		B: uint16(bl / n),
		A: uint16(a / n),
	}
	draw.Draw(out, out.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	return out, nil
}

// Noop returns patches unchanged
type Noop struct{}

func (Noop) Inpaint(ctx context.Context, patch image.Image) (image.Image, error) {
	return patch, ctx.Err()
}
