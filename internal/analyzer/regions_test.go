package analyzer

import (
	"image"
	"image/color"
	"math/rand"
	"reflect"
	"testing"
)

func maskWith(width, height int, pixels ...image.Point) []byte {
	mask := make([]byte, width*height)
	for _, p := range pixels {
		mask[p.Y*width+p.X] = 255
	}
	return mask
}

func TestExtractRegionsScenarios(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		height    int
		mask      []byte
		minPixels int
		want      []Rect
	}{
		{
			name:   "two separate 2x2 blocks",
			width:  8,
			height: 8,
			mask: maskWith(8, 8,
				image.Pt(1, 1), image.Pt(2, 1), image.Pt(1, 2), image.Pt(2, 2),
				image.Pt(5, 5), image.Pt(6, 5), image.Pt(5, 6), image.Pt(6, 6),
			),
			minPixels: 1,
			want:      []Rect{{X: 1, Y: 1, Width: 2, Height: 2}, {X: 5, Y: 5, Width: 2, Height: 2}},
		},
		{
			name:   "noise filtering",
			width:  6,
			height: 6,
			mask: maskWith(6, 6,
				image.Pt(0, 0),
				image.Pt(2, 2), image.Pt(3, 2), image.Pt(2, 3), image.Pt(3, 3),
			),
			minPixels: 2,
			want:      []Rect{{X: 2, Y: 2, Width: 2, Height: 2}},
		},
		{
			name:      "all zero",
			width:     5,
			height:    3,
			mask:      make([]byte, 15),
			minPixels: 0,
			want:      nil,
		},
		{
			name:      "single pixel kept at threshold 1",
			width:     3,
			height:    3,
			mask:      maskWith(3, 3, image.Pt(1, 1)),
			minPixels: 1,
			want:      []Rect{{X: 1, Y: 1, Width: 1, Height: 1}},
		},
		{
			name:      "single pixel dropped at threshold 2",
			width:     3,
			height:    3,
			mask:      maskWith(3, 3, image.Pt(1, 1)),
			minPixels: 2,
			want:      nil,
		},
		{
			name:      "diagonal neighbours stay separate",
			width:     4,
			height:    4,
			mask:      maskWith(4, 4, image.Pt(1, 1), image.Pt(2, 2)),
			minPixels: 1,
			want:      []Rect{{X: 1, Y: 1, Width: 1, Height: 1}, {X: 2, Y: 2, Width: 1, Height: 1}},
		},
		{
			name:      "diagonal line below threshold despite large box",
			width:     5,
			height:    5,
			mask:      maskWith(5, 5, image.Pt(0, 0), image.Pt(1, 1), image.Pt(2, 2), image.Pt(3, 3), image.Pt(4, 4)),
			minPixels: 2,
			want:      nil,
		},
		{
			name:      "components on the border",
			width:     4,
			height:    3,
			mask:      maskWith(4, 3, image.Pt(3, 0), image.Pt(3, 1), image.Pt(0, 2), image.Pt(1, 2)),
			minPixels: 1,
			want:      []Rect{{X: 3, Y: 0, Width: 1, Height: 2}, {X: 0, Y: 2, Width: 2, Height: 1}},
		},
		{
			name:      "negative threshold keeps everything",
			width:     2,
			height:    1,
			mask:      []byte{1, 0},
			minPixels: -5,
			want:      []Rect{{X: 0, Y: 0, Width: 1, Height: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRegions(tt.mask, tt.width, tt.height, tt.minPixels)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractRegions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractRegionsFullMask(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {7, 3}, {64, 48}, {640, 480}} {
		mask := make([]byte, size.X*size.Y)
		for i := range mask {
			mask[i] = 1
		}

		got := ExtractRegions(mask, size.X, size.Y, 1)
		want := []Rect{{X: 0, Y: 0, Width: size.X, Height: size.Y}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%v: got %v, want %v", size, got, want)
		}
	}
}

func TestExtractRegionsMalformed(t *testing.T) {
	tests := []struct {
		name          string
		length        int
		width, height int
	}{
		{"short buffer", 15, 4, 4},
		{"long buffer", 17, 4, 4},
		{"zero width", 0, 0, 4},
		{"negative dims", 1, -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := make([]byte, tt.length)
			for i := range mask {
				mask[i] = 1
			}
			if got := ExtractRegions(mask, tt.width, tt.height, 0); len(got) != 0 {
				t.Errorf("expected no regions, got %v", got)
			}
		})
	}
}

func TestExtractRegionsDoesNotMutateMask(t *testing.T) {
	mask := maskWith(4, 4, image.Pt(0, 0), image.Pt(1, 0), image.Pt(3, 3))
	orig := append([]byte(nil), mask...)

	ExtractRegions(mask, 4, 4, 1)

	if !reflect.DeepEqual(mask, orig) {
		t.Errorf("mask was modified: %v", mask)
	}
}

// Randomized masks: check partition, threshold, ordering and determinism
// against a naive reference labeling.
func TestExtractRegionsProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 50; iter++ {
		w, h := 1+r.Intn(40), 1+r.Intn(40)
		density := r.Float64()
		mask := make([]byte, w*h)
		for i := range mask {
			if r.Float64() < density {
				mask[i] = byte(1 + r.Intn(255))
			}
		}
		minPixels := r.Intn(6)

		got := ExtractRegions(mask, w, h, minPixels)
		again := ExtractRegions(mask, w, h, minPixels)
		if !reflect.DeepEqual(got, again) {
			t.Fatalf("iter %d: non-deterministic output", iter)
		}

		for i := 1; i < len(got); i++ {
			a, b := got[i-1], got[i]
			if a.Y > b.Y || (a.Y == b.Y && a.X > b.X) {
				t.Fatalf("iter %d: output not sorted at %d: %v then %v", iter, i, a, b)
			}
		}

		labels, sizes, boxes := referenceLabels(mask, w, h)

		// Every foreground pixel carries exactly one label
		for i, v := range mask {
			if (v != 0) != (labels[i] >= 0) {
				t.Fatalf("iter %d: pixel %d foreground=%v label=%d", iter, i, v != 0, labels[i])
			}
		}

		var want []Rect
		for id, n := range sizes {
			if n >= minPixels {
				want = append(want, boxes[id])
			}
		}
		if len(want) != len(got) {
			t.Fatalf("iter %d: got %d regions, reference has %d", iter, len(got), len(want))
		}

		seen := make(map[Rect]int)
		for _, rc := range want {
			seen[rc]++
		}
		for _, rc := range got {
			if seen[rc] == 0 {
				t.Fatalf("iter %d: unexpected region %v", iter, rc)
			}
			seen[rc]--

			// Tight box: every edge row/column holds a foreground pixel
			if !touchesAllEdges(mask, w, rc) {
				t.Fatalf("iter %d: region %v is not tight", iter, rc)
			}
		}
	}
}

func referenceLabels(mask []byte, w, h int) ([]int, []int, []Rect) {
	labels := make([]int, len(mask))
	for i := range labels {
		labels[i] = -1
	}
	var sizes []int
	var boxes []Rect

	var fill func(x, y, id int, box *[4]int) int
	fill = func(x, y, id int, box *[4]int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		i := y*w + x
		if mask[i] == 0 || labels[i] >= 0 {
			return 0
		}
		labels[i] = id
		box[0], box[1] = min(box[0], x), min(box[1], y)
		box[2], box[3] = max(box[2], x), max(box[3], y)
		return 1 + fill(x-1, y, id, box) + fill(x+1, y, id, box) + fill(x, y-1, id, box) + fill(x, y+1, id, box)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] == 0 || labels[y*w+x] >= 0 {
				continue
			}
			box := [4]int{x, y, x, y}
			n := fill(x, y, len(sizes), &box)
			sizes = append(sizes, n)
			boxes = append(boxes, Rect{X: box[0], Y: box[1], Width: box[2] - box[0] + 1, Height: box[3] - box[1] + 1})
		}
	}
	return labels, sizes, boxes
}

func touchesAllEdges(mask []byte, w int, r Rect) bool {
	on := func(x, y int) bool { return mask[y*w+x] != 0 }
	var top, bottom, left, right bool
	for x := r.X; x < r.X+r.Width; x++ {
		top = top || on(x, r.Y)
		bottom = bottom || on(x, r.Y+r.Height-1)
	}
	for y := r.Y; y < r.Y+r.Height; y++ {
		left = left || on(r.X, y)
		right = right || on(r.X+r.Width-1, y)
	}
	return top && bottom && left && right
}

func TestMaskFromGray(t *testing.T) {
	img := image.NewGray(image.Rect(10, 10, 13, 12))
	img.SetGray(10, 10, color.Gray{Y: 200})
	img.SetGray(12, 11, color.Gray{Y: 100})

	mask := MaskFromGray(img, 128)
	want := []byte{1, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(mask, want) {
		t.Errorf("MaskFromGray() = %v, want %v", mask, want)
	}
}

func TestRectConversions(t *testing.T) {
	r := Rect{X: 3, Y: 4, Width: 5, Height: 6}
	if got := r.Rectangle(); got != image.Rect(3, 4, 8, 10) {
		t.Errorf("Rectangle() = %v", got)
	}
	if got := RectFromImage(image.Rect(8, 10, 3, 4)); got != r {
		t.Errorf("RectFromImage() = %v, want %v", got, r)
	}
	if r.Area() != 30 || r.Empty() {
		t.Errorf("unexpected Area/Empty for %v", r)
	}
}
