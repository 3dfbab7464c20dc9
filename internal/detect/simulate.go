package detect

import (
	"hash/fnv"
	"math/rand"

	"manuscript-symbols/pkg/geometry"

	"gocv.io/x/gocv"
)

// Simulator is a stand-in detector for demo installations without
// manuscript scans. It never reads ink: it lays out plausible-looking
// candidate boxes on a coarse grid. The layout is seeded from the image
// dimensions and parameters, so the simulator honors the same determinism
// contract as the real detector.
type Simulator struct{}

// DetectRegions produces a deterministic pseudo-detection for the image.
func (Simulator) DetectRegions(gray gocv.Mat, params Params) ([]geometry.RectInt, error) {
	cols, rows := gray.Cols(), gray.Rows()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	h := fnv.New64a()
	for _, v := range []int{cols, rows, int(params.Method), params.ThresholdValue,
		params.MinSymbolSize, params.MaxSymbolSize} {
		h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	}
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	side := params.MinSymbolSize
	if params.MaxSymbolSize > side {
		side = (params.MinSymbolSize + params.MaxSymbolSize) / 2
	}
	cell := side * 3
	if cell < 1 {
		cell = 1
	}

	var boxes []geometry.RectInt
	for y := cell; y+side < rows-cell; y += cell {
		for x := cell; x+side < cols-cell; x += cell {
			// Sparse occupancy so pages do not look uniformly tiled.
			if rng.Intn(4) != 0 {
				continue
			}
			w := params.MinSymbolSize + rng.Intn(side-params.MinSymbolSize+1)
			hh := params.MinSymbolSize + rng.Intn(side-params.MinSymbolSize+1)
			boxes = append(boxes, geometry.RectInt{X: x, Y: y, Width: w, Height: hh})
		}
	}
	return boxes, nil
}
