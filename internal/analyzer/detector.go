package analyzer

import "image"

// Block represents a detected text region in a page image
type Block struct {
	Rect       image.Rectangle
	Type       string  // "text", "word", "unknown"
	Text       string  // recognized text, empty if the detector does not read
	Confidence float64 // 0.0-1.0
}

// Detector finds regions that likely contain text
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// Close releases detector resources if the detector holds any
func Close(d Detector) error {
	if c, ok := d.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
