// Package signature computes deterministic similarity descriptors for
// symbol regions. Visually equivalent symbols hash to the same signature,
// which is the basis for manuscript-wide frequency counts and similarity
// queries.
package signature

import (
	"fmt"
	"image"
	"math"
	"math/bits"

	"manuscript-symbols/pkg/geometry"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
)

// hashSide is the side length of the downsampled grid the hash is
// computed over: 8x8 cells give a 64-bit signature.
const hashSide = 8

// Descriptor is the similarity descriptor of one symbol region.
type Descriptor struct {
	// Signature is the 64-bit average hash, hex encoded. Symbols with
	// equal signatures are counted as visually equivalent.
	Signature string
	// MeanIntensity is the average grayscale value (0-255) of the region,
	// used as a secondary distance for ranking within a signature bucket.
	MeanIntensity float64
}

// Compute derives the descriptor for the given box of img. The pipeline is
// pure Go (crop, grayscale, box-filter downsample, threshold at the mean),
// so the same pixels always produce the same signature regardless of the
// OpenCV build used for detection.
func Compute(img image.Image, box geometry.RectInt) (Descriptor, error) {
	if box.Empty() {
		return Descriptor{}, fmt.Errorf("empty region %+v", box)
	}

	b := img.Bounds()
	crop := image.Rect(b.Min.X+box.X, b.Min.Y+box.Y, b.Min.X+box.Right(), b.Min.Y+box.Bottom())
	if !crop.In(b) {
		return Descriptor{}, fmt.Errorf("region %+v outside image bounds %v", box, b)
	}

	gray := image.NewGray(crop)
	draw.Draw(gray, crop, img, crop.Min, draw.Src)

	small := image.NewGray(image.Rect(0, 0, hashSide, hashSide))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), gray, crop, draw.Src, nil)

	cells := make([]float64, 0, hashSide*hashSide)
	for y := 0; y < hashSide; y++ {
		for x := 0; x < hashSide; x++ {
			cells = append(cells, float64(small.GrayAt(x, y).Y))
		}
	}
	mean := stat.Mean(cells, nil)

	var hash uint64
	for i, v := range cells {
		if v < mean {
			// Darker than the region mean: ink.
			hash |= 1 << uint(i)
		}
	}

	return Descriptor{
		Signature:     fmt.Sprintf("%016x", hash),
		MeanIntensity: mean,
	}, nil
}

// Distance returns the Hamming distance between two signatures, or an
// error if either is not a valid signature.
func Distance(a, b string) (int, error) {
	ha, err := parse(a)
	if err != nil {
		return 0, err
	}
	hb, err := parse(b)
	if err != nil {
		return 0, err
	}
	return bits.OnesCount64(ha ^ hb), nil
}

// IntensityDistance is the secondary ranking metric within a signature
// bucket.
func IntensityDistance(a, b float64) float64 {
	return math.Abs(a - b)
}

func parse(s string) (uint64, error) {
	var h uint64
	if _, err := fmt.Sscanf(s, "%016x", &h); err != nil {
		return 0, fmt.Errorf("malformed signature %q: %w", s, err)
	}
	return h, nil
}
