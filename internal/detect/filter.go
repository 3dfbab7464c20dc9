package detect

import (
	"manuscript-symbols/pkg/geometry"
)

// OverlapMergeThreshold is the overlap ratio above which two candidate
// boxes are considered fragments of one symbol and merged.
const OverlapMergeThreshold = 0.5

// FilterRegions turns raw candidate boxes into the final box list for a
// page:
//
//  1. drop boxes outside the page bounds or intersecting the excluded margin
//  2. drop boxes whose width or height falls outside [min, max]
//  3. merge boxes whose overlap ratio exceeds OverlapMergeThreshold,
//     taking the union of their extents, until no pair merges
//  4. sort top-to-bottom, left-to-right (lower y first, then lower x)
//
// The ordering is load-bearing: it keeps symbol ids stable across
// re-extractions of the same page.
func FilterRegions(boxes []geometry.RectInt, params Params, bounds, interior geometry.RectInt) []geometry.RectInt {
	region := bounds
	if params.IgnoreMargins {
		region = interior
	}

	kept := make([]geometry.RectInt, 0, len(boxes))
	for _, b := range boxes {
		if !region.ContainsRect(b) {
			continue
		}
		if b.Width < params.MinSymbolSize || b.Height < params.MinSymbolSize {
			continue
		}
		if b.Width > params.MaxSymbolSize || b.Height > params.MaxSymbolSize {
			continue
		}
		kept = append(kept, b)
	}

	kept = mergeOverlapping(kept)

	// Merging can push a union past the size cap; such a union is one
	// oversized blob, not a symbol, and must not be persisted.
	final := kept[:0]
	for _, b := range kept {
		if b.Width > params.MaxSymbolSize || b.Height > params.MaxSymbolSize {
			continue
		}
		final = append(final, b)
	}

	geometry.SortReadingOrder(final)
	return final
}

// mergeOverlapping repeatedly unions box pairs whose overlap ratio exceeds
// the threshold, so a symbol split into several fragments collapses into a
// single box rather than being double-counted.
func mergeOverlapping(boxes []geometry.RectInt) []geometry.RectInt {
	if len(boxes) <= 1 {
		return boxes
	}

	merged := true
	for merged {
		merged = false
		for i := 0; i < len(boxes) && !merged; i++ {
			for j := i + 1; j < len(boxes); j++ {
				if boxes[i].OverlapRatio(boxes[j]) <= OverlapMergeThreshold {
					continue
				}
				boxes[i] = boxes[i].Union(boxes[j])
				boxes = append(boxes[:j], boxes[j+1:]...)
				merged = true
				break
			}
		}
	}
	return boxes
}
