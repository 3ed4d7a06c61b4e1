package analyzer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractDetector finds words with the Tesseract OCR engine. Each word box
// becomes a Block carrying the recognized text.
type TesseractDetector struct {
	Languages     []string
	MinConfidence float64 // 0.0-1.0, words below are dropped
	Level         gosseract.PageIteratorLevel

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractDetector creates a word-level detector for English text
func NewTesseractDetector() *TesseractDetector {
	return &TesseractDetector{
		Languages:     []string{"eng"},
		MinConfidence: 0.3,
		Level:         gosseract.RIL_WORD,
	}
}

// Detect runs OCR over the whole image and returns one block per word
func (d *TesseractDetector) Detect(img image.Image) ([]Block, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page for OCR: %w", err)
	}

	// gosseract clients are not safe for concurrent use
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		client := gosseract.NewClient()
		if len(d.Languages) > 0 {
			if err := client.SetLanguage(d.Languages...); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to set OCR language: %w", err)
			}
		}
		if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set PSM: %w", err)
		}
		d.client = client
	}

	if err := d.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := d.client.GetBoundingBoxes(d.Level)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	origin := img.Bounds().Min
	blocks := make([]Block, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		conf := b.Confidence / 100.0
		if text == "" || conf < d.MinConfidence || b.Box.Empty() {
			continue
		}
		blocks = append(blocks, Block{
			Rect:       b.Box.Add(origin),
			Type:       "word",
			Text:       text,
			Confidence: conf,
		})
	}

	return blocks, nil
}

// Close releases the Tesseract client
func (d *TesseractDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}
