package source

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDF page dimensions are reported in points
const pointsPerInch = 72

// Source yields page rasters of a slide deck
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a PDF or image source from the path
func Open(path string) (Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

// PixelSize predicts the raster size of a page at dpi without rendering it.
// Image pages keep their native size.
func PixelSize(src Source, index, dpi int) (int, int, error) {
	switch s := src.(type) {
	case *PageCache:
		return PixelSize(s.Source, index, dpi)
	case *ImageSource:
		w, h, err := s.GetPageDimensions(index)
		return int(w), int(h), err
	}

	w, h, err := src.GetPageDimensions(index)
	if err != nil {
		return 0, 0, err
	}
	scale := float64(dpi) / pointsPerInch
	return int(math.Ceil(w * scale)), int(math.Ceil(h * scale)), nil
}

// FitzPDFSource renders PDF pages with MuPDF
type FitzPDFSource struct {
	doc   *fitz.Document
	path  string
	pages int
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path, pages: doc.NumPage()}, nil
}

func (s *FitzPDFSource) PageCount() int {
	return s.pages
}

func (s *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	if index < 0 || index >= s.pages {
		return 0, 0, fmt.Errorf("page %d out of range", index)
	}
	bounds, err := s.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("page %d bounds: %w", index, err)
	}
	return float64(bounds.Dx()), float64(bounds.Dy()), nil
}

// RenderPage opens its own document handle so render workers never share
// the MuPDF context.
func (s *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= s.pages {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid dpi %d", dpi)
	}

	doc, err := fitz.New(s.path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	img, err := doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index, err)
	}
	return img, nil
}

func (s *FitzPDFSource) Close() error {
	return s.doc.Close()
}
