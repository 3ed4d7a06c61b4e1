package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/brush"
	"github.com/ivlev/slidefix/internal/export"
	"github.com/ivlev/slidefix/internal/renderer"
)

func main() {
	outPtr := flag.String("out", "/tmp/regiondemo.png", "Path of the preview PNG")
	minPixelsPtr := flag.Int("min-pixels", 0, "Noise threshold (0 = derived from the brush diameter)")
	maskPtr := flag.String("mask", "", "Grayscale mask image to use instead of synthetic strokes")
	thresholdPtr := flag.Int("threshold", 127, "Mask pixels brighter than this are foreground")
	flag.Parse()

	width, height := 960, 540

	fmt.Println("=== Brush Region Extraction Demo ===")

	var mask []byte
	if *maskPtr != "" {
		// Step 1: Load a painted mask
		fmt.Printf("[1/3] Loading mask %s...\n", *maskPtr)
		gray, err := loadGray(*maskPtr)
		if err != nil {
			log.Fatalf("Failed to load mask: %v", err)
		}
		width, height = gray.Bounds().Dx(), gray.Bounds().Dy()
		mask = analyzer.MaskFromGray(gray, uint8(*thresholdPtr))
	} else {
		// Step 1: Synthesize a brush session
		fmt.Println("[1/3] Painting synthetic strokes...")
		mask = brush.Rasterize(demoStrokes(), width, height)
	}

	painted := 0
	for _, v := range mask {
		if v != 0 {
			painted++
		}
	}
	fmt.Printf("✓ %d painted pixels (%dx%d)\n\n", painted, width, height)

	// Step 2: Extract regions
	fmt.Println("[2/3] Extracting regions...")
	minPixels := *minPixelsPtr
	if minPixels <= 0 {
		minPixels = brush.MinPixelsForDiameter(28)
	}
	regions := analyzer.ExtractRegions(mask, width, height, minPixels)
	fmt.Printf("✓ %d regions (min pixels %d)\n", len(regions), minPixels)
	for i, r := range regions {
		fmt.Printf("  Region %d: x=%d y=%d %dx%d\n", i+1, r.X, r.Y, r.Width, r.Height)
	}
	fmt.Println()

	// Step 3: Preview
	fmt.Println("[3/3] Writing preview...")
	preview := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(preview, preview.Bounds(), image.NewUniform(color.RGBA{240, 240, 240, 255}), image.Point{}, draw.Src)
	for i, v := range mask {
		if v != 0 {
			// Binary masks carry 1, brush coverage 1-255
			a := uint8(max(uint32(v), 128) * 160 / 255)
			preview.SetRGBA(i%width, i/width, blend(color.RGBA{240, 240, 240, 255}, color.RGBA{255, 170, 0, 255}, a))
		}
	}
	renderer.OutlineRects(preview, regions, color.RGBA{220, 0, 0, 255})

	if err := export.WritePage(export.PNGEncoder{}, *outPtr, preview); err != nil {
		log.Fatalf("Failed to write preview: %v", err)
	}
	fmt.Printf("✓ Preview saved to: %s\n", *outPtr)
}

// demoStrokes imitates a user marking two text lines, a logo, an erased
// overshoot and an accidental tap
func demoStrokes() []brush.Stroke {
	return []brush.Stroke{
		{Mode: brush.ModeAdd, Diameter: 28, Points: []brush.Point{{X: 80, Y: 90}, {X: 520, Y: 92}}},
		{Mode: brush.ModeAdd, Diameter: 28, Points: []brush.Point{{X: 80, Y: 160}, {X: 300, Y: 158}, {X: 420, Y: 162}}},
		{Mode: brush.ModeAdd, Diameter: 40, Points: []brush.Point{{X: 760, Y: 80}, {X: 860, Y: 80}, {X: 860, Y: 140}, {X: 760, Y: 140}, {X: 760, Y: 80}}},
		{Mode: brush.ModeSubtract, Diameter: 36, Points: []brush.Point{{X: 500, Y: 70}, {X: 500, Y: 115}}},
		{Mode: brush.ModeAdd, Diameter: 8, Points: []brush.Point{{X: 600, Y: 400}}},
	}
}

// loadGray decodes an image and converts it to an origin-based gray raster
func loadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray, nil
}

func blend(bg, fg color.RGBA, a uint8) color.RGBA {
	mix := func(b, f uint8) uint8 {
		return uint8((uint32(b)*(255-uint32(a)) + uint32(f)*uint32(a)) / 255)
	}
	return color.RGBA{mix(bg.R, fg.R), mix(bg.G, fg.G), mix(bg.B, fg.B), 255}
}
