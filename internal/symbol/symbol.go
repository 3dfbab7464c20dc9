// Package symbol persists extracted symbols and answers frequency and
// similarity queries over the whole manuscript.
package symbol

import (
	"errors"
	"time"

	"manuscript-symbols/pkg/geometry"
)

// ErrNotFound is returned when a symbol id does not exist.
var ErrNotFound = errors.New("symbol not found")

// Symbol is a detected, bounded region of a page image representing one
// glyph or figure candidate.
type Symbol struct {
	ID     int64 `json:"id"`
	PageID int64 `json:"pageId"`
	X      int   `json:"x"`
	Y      int   `json:"y"`
	Width  int   `json:"width"`
	Height int   `json:"height"`

	// Category is nil until classified.
	Category *string `json:"category"`

	// Signature groups visually equivalent symbols; Frequency is the size
	// of the signature bucket across the manuscript, derived at read time.
	Signature     string  `json:"signature"`
	MeanIntensity float64 `json:"meanIntensity"`
	Frequency     int     `json:"frequency"`

	Metadata    map[string]string `json:"metadata,omitempty"`
	ExtractedAt time.Time         `json:"extractedAt"`
}

// Box returns the symbol's bounding box.
func (s *Symbol) Box() geometry.RectInt {
	return geometry.RectInt{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Record is a symbol awaiting persistence, produced by the extraction
// pipeline before ids are assigned.
type Record struct {
	Box           geometry.RectInt
	Signature     string
	MeanIntensity float64
	Metadata      map[string]string
}

// FrequencyEntry is one row of the manuscript-wide frequency report.
type FrequencyEntry struct {
	Signature string `json:"signature"`
	Count     int    `json:"count"`
}

// CategoryCount is one row of the category distribution report. Symbols
// not yet classified are reported under the empty category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
