package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersectAndUnion(t *testing.T) {
	a := NewRectInt(0, 0, 10, 10)
	b := NewRectInt(5, 5, 10, 10)

	inter := a.Intersect(b)
	assert.Equal(t, RectInt{X: 5, Y: 5, Width: 5, Height: 5}, inter)

	union := a.Union(b)
	assert.Equal(t, RectInt{X: 0, Y: 0, Width: 15, Height: 15}, union)

	disjoint := NewRectInt(20, 20, 3, 3)
	assert.True(t, a.Intersect(disjoint).Empty())
	assert.False(t, a.Intersects(disjoint))
}

func TestOverlapRatio(t *testing.T) {
	a := NewRectInt(0, 0, 10, 10)
	b := NewRectInt(0, 0, 5, 10) // fully inside a, half its area

	// Ratio is relative to the smaller rectangle.
	assert.InDelta(t, 1.0, a.OverlapRatio(b), 1e-9)
	assert.InDelta(t, 1.0, b.OverlapRatio(a), 1e-9)

	c := NewRectInt(5, 0, 10, 10)
	assert.InDelta(t, 0.5, a.OverlapRatio(c), 1e-9)

	assert.Zero(t, a.OverlapRatio(RectInt{}))
}

func TestContainsRect(t *testing.T) {
	page := NewRectInt(0, 0, 100, 200)
	assert.True(t, page.ContainsRect(NewRectInt(0, 0, 100, 200)))
	assert.True(t, page.ContainsRect(NewRectInt(10, 10, 20, 20)))
	assert.False(t, page.ContainsRect(NewRectInt(90, 10, 20, 20)))
	assert.False(t, page.ContainsRect(NewRectInt(-1, 0, 10, 10)))
}

func TestSortReadingOrder(t *testing.T) {
	rects := []RectInt{
		{X: 50, Y: 10, Width: 5, Height: 5},
		{X: 10, Y: 40, Width: 5, Height: 5},
		{X: 10, Y: 10, Width: 5, Height: 5},
		{X: 90, Y: 10, Width: 5, Height: 5},
	}
	SortReadingOrder(rects)

	want := []RectInt{
		{X: 10, Y: 10, Width: 5, Height: 5},
		{X: 50, Y: 10, Width: 5, Height: 5},
		{X: 90, Y: 10, Width: 5, Height: 5},
		{X: 10, Y: 40, Width: 5, Height: 5},
	}
	assert.Equal(t, want, rects)
}
