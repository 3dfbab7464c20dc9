// Package geometry provides basic geometric types used throughout the application.
package geometry

import "sort"

// RectInt represents a rectangle with integer pixel coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// Right returns the exclusive right edge coordinate.
func (r RectInt) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge coordinate.
func (r RectInt) Bottom() int { return r.Y + r.Height }

// Area returns the rectangle area in pixels.
func (r RectInt) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Empty returns true if the rectangle has no area.
func (r RectInt) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// ContainsRect returns true if other lies entirely within r.
func (r RectInt) ContainsRect(other RectInt) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// Intersects returns true if the two rectangles overlap.
func (r RectInt) Intersects(other RectInt) bool {
	return r.X < other.Right() && r.Right() > other.X &&
		r.Y < other.Bottom() && r.Bottom() > other.Y
}

// Intersect returns the overlapping region of the two rectangles.
// The result is empty if they do not overlap.
func (r RectInt) Intersect(other RectInt) RectInt {
	x := maxInt(r.X, other.X)
	y := maxInt(r.Y, other.Y)
	x2 := minInt(r.Right(), other.Right())
	y2 := minInt(r.Bottom(), other.Bottom())
	if x2 <= x || y2 <= y {
		return RectInt{}
	}
	return RectInt{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// Union returns the smallest rectangle containing both rectangles.
func (r RectInt) Union(other RectInt) RectInt {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	x := minInt(r.X, other.X)
	y := minInt(r.Y, other.Y)
	x2 := maxInt(r.Right(), other.Right())
	y2 := maxInt(r.Bottom(), other.Bottom())
	return RectInt{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// OverlapRatio returns the intersection area divided by the smaller of the
// two rectangle areas. Returns 0 when either rectangle is empty.
func (r RectInt) OverlapRatio(other RectInt) float64 {
	smaller := minInt(r.Area(), other.Area())
	if smaller == 0 {
		return 0
	}
	return float64(r.Intersect(other).Area()) / float64(smaller)
}

// SortReadingOrder sorts rectangles top-to-bottom, left-to-right:
// lower Y first, ties broken by lower X.
func SortReadingOrder(rects []RectInt) {
	sort.Slice(rects, func(i, j int) bool {
		if rects[i].Y != rects[j].Y {
			return rects[i].Y < rects[j].Y
		}
		return rects[i].X < rects[j].X
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
