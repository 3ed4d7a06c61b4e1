package analyzer

import (
	"image"
	"sort"
)

// Rect is an axis-aligned pixel rectangle
type Rect struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// RectFromImage converts an image.Rectangle to a Rect
func RectFromImage(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rectangle returns the rect as an image.Rectangle (Max exclusive)
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Area returns Width*Height
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the rect covers no pixels
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ExtractRegions splits the foreground of a binary mask into 4-connected
// components and returns the bounding rectangle of every component with at
// least minPixels pixels, ordered top-to-bottom then left-to-right.
//
// mask is row-major, one byte per pixel, any non-zero byte is foreground.
// If len(mask) != width*height the result is empty.
func ExtractRegions(mask []byte, width, height, minPixels int) []Rect {
	if width <= 0 || height <= 0 || len(mask) != width*height {
		return nil
	}

	visited := make([]bool, len(mask))
	stack := make([]int, 0, 256)
	var regions []Rect

	for start := range mask {
		if mask[start] == 0 || visited[start] {
			continue
		}

		// Mark on push so every pixel enters the stack exactly once
		visited[start] = true
		stack = append(stack[:0], start)

		count := 0
		minX, minY := width, height
		maxX, maxY := -1, -1

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := idx%width, idx/width
			count++

			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			if x > 0 {
				stack = visit(mask, visited, stack, idx-1)
			}
			if x < width-1 {
				stack = visit(mask, visited, stack, idx+1)
			}
			if y > 0 {
				stack = visit(mask, visited, stack, idx-width)
			}
			if y < height-1 {
				stack = visit(mask, visited, stack, idx+width)
			}
		}

		if count >= minPixels {
			regions = append(regions, Rect{
				X:      minX,
				Y:      minY,
				Width:  maxX - minX + 1,
				Height: maxY - minY + 1,
			})
		}
	}

	// Stable: equal corners keep scan order
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Y != regions[j].Y {
			return regions[i].Y < regions[j].Y
		}
		return regions[i].X < regions[j].X
	})

	return regions
}

func visit(mask []byte, visited []bool, stack []int, idx int) []int {
	if visited[idx] || mask[idx] == 0 {
		return stack
	}
	visited[idx] = true
	return append(stack, idx)
}

// MaskFromGray builds a mask from a grayscale raster: pixels brighter than
// threshold become foreground.
func MaskFromGray(gray *image.Gray, threshold uint8) []byte {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := make([]byte, w*h)

	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			if v > threshold {
				mask[y*w+x] = 1
			}
		}
	}

	return mask
}
