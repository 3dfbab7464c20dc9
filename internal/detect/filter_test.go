package detect

import (
	"testing"

	"manuscript-symbols/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func testParams() Params {
	p := DefaultParams()
	p.MinSymbolSize = 16
	p.MaxSymbolSize = 64
	p.IgnoreMargins = false
	return p
}

func TestFilterRegionsSizeBounds(t *testing.T) {
	bounds := geometry.NewRectInt(0, 0, 500, 500)
	boxes := []geometry.RectInt{
		{X: 10, Y: 10, Width: 20, Height: 20},  // qualifies
		{X: 100, Y: 10, Width: 4, Height: 20},  // too narrow
		{X: 200, Y: 10, Width: 20, Height: 4},  // too short
		{X: 300, Y: 10, Width: 80, Height: 20}, // too wide
		{X: 10, Y: 100, Width: 64, Height: 64}, // at the cap, qualifies
	}

	got := FilterRegions(boxes, testParams(), bounds, bounds)
	assert.Equal(t, []geometry.RectInt{
		{X: 10, Y: 10, Width: 20, Height: 20},
		{X: 10, Y: 100, Width: 64, Height: 64},
	}, got)
}

func TestFilterRegionsMarginExclusion(t *testing.T) {
	bounds := geometry.NewRectInt(0, 0, 400, 400)
	interior := geometry.NewRectInt(20, 20, 360, 360)

	p := testParams()
	p.IgnoreMargins = true

	boxes := []geometry.RectInt{
		{X: 5, Y: 5, Width: 20, Height: 20},    // in the margin
		{X: 15, Y: 100, Width: 20, Height: 20}, // straddles the margin
		{X: 100, Y: 100, Width: 20, Height: 20},
	}

	got := FilterRegions(boxes, p, bounds, interior)
	assert.Equal(t, []geometry.RectInt{{X: 100, Y: 100, Width: 20, Height: 20}}, got)

	// Without margin exclusion all three survive.
	p.IgnoreMargins = false
	got = FilterRegions(boxes, p, bounds, interior)
	assert.Len(t, got, 3)
}

func TestFilterRegionsMergesFragments(t *testing.T) {
	bounds := geometry.NewRectInt(0, 0, 500, 500)

	// Two heavily overlapping fragments of one glyph plus one separate box.
	boxes := []geometry.RectInt{
		{X: 100, Y: 100, Width: 30, Height: 30},
		{X: 110, Y: 105, Width: 30, Height: 28},
		{X: 300, Y: 100, Width: 20, Height: 20},
	}

	got := FilterRegions(boxes, testParams(), bounds, bounds)
	assert.Equal(t, []geometry.RectInt{
		{X: 100, Y: 100, Width: 40, Height: 33},
		{X: 300, Y: 100, Width: 20, Height: 20},
	}, got)
}

func TestFilterRegionsDropsOversizedMerge(t *testing.T) {
	bounds := geometry.NewRectInt(0, 0, 500, 500)

	// Each fragment fits the cap but their union does not.
	boxes := []geometry.RectInt{
		{X: 100, Y: 100, Width: 60, Height: 60},
		{X: 140, Y: 130, Width: 60, Height: 60},
	}

	got := FilterRegions(boxes, testParams(), bounds, bounds)
	assert.Empty(t, got)
}

func TestFilterRegionsReadingOrder(t *testing.T) {
	bounds := geometry.NewRectInt(0, 0, 500, 500)
	boxes := []geometry.RectInt{
		{X: 200, Y: 50, Width: 20, Height: 20},
		{X: 50, Y: 200, Width: 20, Height: 20},
		{X: 50, Y: 50, Width: 20, Height: 20},
	}

	got := FilterRegions(boxes, testParams(), bounds, bounds)
	assert.Equal(t, []geometry.RectInt{
		{X: 50, Y: 50, Width: 20, Height: 20},
		{X: 200, Y: 50, Width: 20, Height: 20},
		{X: 50, Y: 200, Width: 20, Height: 20},
	}, got)
}

func TestFilterRegionsDeterministic(t *testing.T) {
	bounds := geometry.NewRectInt(0, 0, 500, 500)
	boxes := []geometry.RectInt{
		{X: 50, Y: 50, Width: 20, Height: 20},
		{X: 55, Y: 52, Width: 22, Height: 20},
		{X: 300, Y: 40, Width: 30, Height: 30},
		{X: 40, Y: 300, Width: 17, Height: 25},
	}

	first := FilterRegions(append([]geometry.RectInt(nil), boxes...), testParams(), bounds, bounds)
	second := FilterRegions(append([]geometry.RectInt(nil), boxes...), testParams(), bounds, bounds)
	assert.Equal(t, first, second)
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	assert.NoError(t, p.Validate())

	p = DefaultParams()
	p.ThresholdValue = 300
	var verr *ValidationError
	err := p.Validate()
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "thresholdValue", verr.Field)

	p = DefaultParams()
	p.MinSymbolSize = 40
	p.MaxSymbolSize = 20
	err = p.Validate()
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "maxSymbolSize", verr.Field)

	p = DefaultParams()
	p.MinSymbolSize = 0
	assert.Error(t, p.Validate())
}

func TestParamsValueEquality(t *testing.T) {
	// Params is a value object: equal parameter sets must compare equal,
	// which is how idempotent re-runs are recognized.
	assert.True(t, DefaultParams() == DefaultParams())

	a := DefaultParams()
	b := DefaultParams()
	b.ThresholdValue++
	assert.False(t, a == b)
}
