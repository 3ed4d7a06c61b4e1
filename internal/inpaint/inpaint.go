// Package inpaint restores the background under erased regions.
//
// An Inpainter cleans one cropped patch at a time. Pipeline crops every
// region out of a page, sends the crops to the Inpainter and pastes the
// cleaned patches back at the same place.
package inpaint

import (
	"context"
	"fmt"
	"image"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/renderer"
)

// Inpainter removes text from a patch and returns the restored background.
// The returned image may have a different size; it is scaled back.
type Inpainter interface {
	Inpaint(ctx context.Context, patch image.Image) (image.Image, error)
}

// Result is the outcome for one region
type Result struct {
	Rect analyzer.Rect
	Err  error
}

// Pipeline inpaints a set of regions of one page
type Pipeline struct {
	Inpainter   Inpainter
	Concurrency int // parallel requests, <= 0 means 1
	Padding     int // context pixels added around every region
}

// NewPipeline creates a pipeline with default settings
func NewPipeline(in Inpainter) *Pipeline {
	return &Pipeline{
		Inpainter:   in,
		Concurrency: 4,
		Padding:     4,
	}
}

// Run inpaints every rect of img in place. Failures are reported per rect
// and never stop the remaining rects; a cancelled context leaves unstarted
// rects with the context error.
func (p *Pipeline) Run(ctx context.Context, img *image.RGBA, rects []analyzer.Rect) []Result {
	results := make([]Result, len(rects))
	patches := make([]image.Image, len(rects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Concurrency))

	// Crops are taken up front so pasted patches never leak into other crops
	for i, r := range rects {
		target := p.expand(r, img.Bounds())
		results[i].Rect = target
		if target.Empty() {
			results[i].Err = fmt.Errorf("region %v is outside the page", r)
			continue
		}
		patches[i] = renderer.Crop(img, target)
	}

	for i := range rects {
		if results[i].Err != nil {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			cleaned, err := p.Inpainter.Inpaint(gctx, patches[i])
			if err != nil {
				log.Printf("[!] Inpaint failed for region %v: %v", results[i].Rect, err)
				results[i].Err = err
				return nil
			}
			patches[i] = cleaned
			return nil
		})
	}
	g.Wait()

	// Paste sequentially in region order so overlapping boxes resolve the same way every run
	for i := range results {
		if results[i].Err == nil {
			renderer.Paste(img, patches[i], results[i].Rect)
		}
	}

	return results
}

func (p *Pipeline) expand(r analyzer.Rect, bounds image.Rectangle) analyzer.Rect {
	pad := max(0, p.Padding)
	rect := image.Rect(r.X-pad, r.Y-pad, r.X+r.Width+pad, r.Y+r.Height+pad).Intersect(bounds)
	return analyzer.RectFromImage(rect)
}

// Failed counts results with an error
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
