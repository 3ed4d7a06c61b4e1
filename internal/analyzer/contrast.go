package analyzer

import (
	"image"
	"image/draw"
	"math"
)

// ContrastDetector implements edge-based region detection using Sobel operator
type ContrastDetector struct {
	MinBlockArea  int     // Minimum bounding box area in pixels²
	MinPixels     int     // Minimum edge pixels per component
	EdgeThreshold float64 // Gradient magnitude threshold
	DilateKernel  int
	DilateIter    int
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,  // ~22x22 pixels minimum
		MinPixels:     80,
		EdgeThreshold: 30.0, // Moderate sensitivity
		DilateKernel:  5,
		DilateIter:    2,
	}
}

// Detect finds regions of interest using edge detection and morphology
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	gray := toGrayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	edges := sobelEdges(gray, d.EdgeThreshold)

	// Connect glyph edges into word/line blobs
	dilated := dilate(edges, w, h, d.DilateKernel, d.DilateIter)

	origin := img.Bounds().Min
	blocks := []Block{}
	for _, r := range ExtractRegions(dilated, w, h, d.MinPixels) {
		if r.Area() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{
			Rect:       r.Rectangle().Add(origin),
			Type:       "text",
			Confidence: 0.7, // Moderate confidence for edge-based detection
		})
	}

	return blocks, nil
}

// toGrayscale converts an image to an origin-based grayscale raster
func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// sobelEdges applies the Sobel operator and returns a mask of strong edges
func sobelEdges(gray *image.Gray, threshold float64) []byte {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	edges := make([]byte, w*h)

	gx := [3][3]int{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	gy := [3][3]int{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var sumX, sumY float64

			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := float64(gray.Pix[(y+ky)*gray.Stride+x+kx])
					sumX += pixel * float64(gx[ky+1][kx+1])
					sumY += pixel * float64(gy[ky+1][kx+1])
				}
			}

			if math.Sqrt(sumX*sumX+sumY*sumY) > threshold {
				edges[y*w+x] = 255
			}
		}
	}

	return edges
}

// dilate performs morphological dilation on a mask with a square kernel
func dilate(mask []byte, w, h, kernelSize, iterations int) []byte {
	result := append([]byte(nil), mask...)
	half := kernelSize / 2
	if half <= 0 {
		return result
	}

	for iter := 0; iter < iterations; iter++ {
		temp := make([]byte, len(result))

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if result[y*w+x] == 0 {
					continue
				}
				// Spread each set pixel over its neighbourhood, clipped to the raster
				for ky := max(0, y-half); ky <= min(h-1, y+half); ky++ {
					row := temp[ky*w : ky*w+w]
					for kx := max(0, x-half); kx <= min(w-1, x+half); kx++ {
						row[kx] = 255
					}
				}
			}
		}

		result = temp
	}

	return result
}
