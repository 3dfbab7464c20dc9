// Package detect segments normalized page images into candidate symbol
// regions: binarization, contour extraction, and size/region filtering.
package detect

import (
	"fmt"

	"manuscript-symbols/pkg/geometry"

	"gocv.io/x/gocv"
)

// Detector produces raw candidate bounding boxes from a normalized
// grayscale image. Implementations must be deterministic: identical image
// and parameters always yield the identical candidate list.
type Detector interface {
	DetectRegions(gray gocv.Mat, params Params) ([]geometry.RectInt, error)
}

// ContourDetector is the real detector: it binarizes the image per the
// chosen threshold method and extracts external contours.
type ContourDetector struct{}

// adaptiveBlockSize is the neighborhood size for adaptive thresholding.
// Must be odd.
const (
	adaptiveBlockSize = 15
	adaptiveC         = 10
)

// DetectRegions binarizes gray and returns the bounding boxes of all
// external contours, in contour-extraction order. Ink is assumed darker
// than the page, so binary-inverse thresholding puts symbols in the
// foreground.
func (ContourDetector) DetectRegions(gray gocv.Mat, params Params) ([]geometry.RectInt, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	binary := gocv.NewMat()
	defer binary.Close()

	switch params.Method {
	case MethodOtsu:
		gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
	case MethodAdaptive:
		gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdMean,
			gocv.ThresholdBinaryInv, adaptiveBlockSize, adaptiveC)
	case MethodSimple:
		gocv.Threshold(gray, &binary, float32(params.ThresholdValue), 255, gocv.ThresholdBinaryInv)
	default:
		return nil, fmt.Errorf("unknown threshold method %d", params.Method)
	}

	mode := gocv.ChainApproxSimple
	if params.ContourMode == ContourNone {
		mode = gocv.ChainApproxNone
	}

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, mode)
	defer contours.Close()

	boxes := make([]geometry.RectInt, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		boxes = append(boxes, geometry.RectInt{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		})
	}
	return boxes, nil
}
