package script

import (
	"sort"

	"github.com/ivlev/slidefix/internal/analyzer"
)

// RowThreshold is the vertical distance (pixels) under which two blocks are
// treated as one text row when ordering them
const RowThreshold = 20

// PageFromBlocks turns detected text blocks into a page of erase-and-replace
// edits in reading order. Replacement text starts as the recognized text so
// the script can be edited by hand.
func PageFromBlocks(index int, blocks []analyzer.Block) Page {
	page := Page{Page: index}
	for _, b := range SortBlocks(blocks) {
		page.Replacements = append(page.Replacements, Replacement{
			Rect:     analyzer.RectFromImage(b.Rect),
			Text:     b.Text,
			Original: b.Text,
			Erase:    true,
		})
	}
	return page
}

// SortBlocks sorts blocks in reading order (top-to-bottom, left-to-right),
// treating blocks within RowThreshold of each other as one row
func SortBlocks(blocks []analyzer.Block) []analyzer.Block {
	sorted := make([]analyzer.Block, len(blocks))
	copy(sorted, blocks)

	sort.SliceStable(sorted, func(i, j int) bool {
		yDiff := sorted[i].Rect.Min.Y - sorted[j].Rect.Min.Y
		if abs(yDiff) > RowThreshold {
			return sorted[i].Rect.Min.Y < sorted[j].Rect.Min.Y
		}

		// Same row, sort by X
		return sorted[i].Rect.Min.X < sorted[j].Rect.Min.X
	})

	return sorted
}

// abs returns absolute value of an integer
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
