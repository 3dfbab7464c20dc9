// Package preprocess normalizes page images ahead of detection: grayscale
// conversion, an enhancement preset, and margin exclusion.
package preprocess

import (
	"fmt"
	"image"

	"manuscript-symbols/pkg/geometry"

	"gocv.io/x/gocv"
)

// Preset selects the enhancement transform applied before thresholding.
type Preset int

const (
	// PresetNone applies grayscale conversion only.
	PresetNone Preset = iota
	// PresetDefault adds global histogram equalization.
	PresetDefault
	// PresetHighContrast adds CLAHE for locally adaptive contrast.
	PresetHighContrast
)

func (p Preset) String() string {
	switch p {
	case PresetNone:
		return "none"
	case PresetDefault:
		return "default"
	case PresetHighContrast:
		return "high-contrast"
	default:
		return "unknown"
	}
}

// ParsePreset parses a preset name.
func ParsePreset(s string) (Preset, error) {
	switch s {
	case "none":
		return PresetNone, nil
	case "default", "":
		return PresetDefault, nil
	case "high-contrast":
		return PresetHighContrast, nil
	default:
		return PresetNone, fmt.Errorf("unknown enhancement preset %q", s)
	}
}

// MarshalJSON encodes the preset by name.
func (p Preset) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes a preset name.
func (p *Preset) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParsePreset(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarginFraction is the border fraction excluded on each edge when margin
// exclusion is requested.
const MarginFraction = 0.05

// Result holds a normalized page ready for detection. The caller owns Gray
// and must Close it.
type Result struct {
	Gray     gocv.Mat
	Interior geometry.RectInt
}

// Run converts src to grayscale, applies the enhancement preset, and
// computes the interior rectangle. It is a pure function of its inputs:
// identical image and parameters always produce identical output.
func Run(src gocv.Mat, preset Preset, ignoreMargins bool) (Result, error) {
	if src.Empty() {
		return Result{}, fmt.Errorf("empty image")
	}

	gray := gocv.NewMat()
	if src.Channels() > 1 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		src.CopyTo(&gray)
	}

	switch preset {
	case PresetNone:
		// grayscale only
	case PresetDefault:
		gocv.EqualizeHist(gray, &gray)
	case PresetHighContrast:
		clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
		clahe.Apply(gray, &gray)
		clahe.Close()
	default:
		gray.Close()
		return Result{}, fmt.Errorf("unknown enhancement preset %d", preset)
	}

	return Result{
		Gray:     gray,
		Interior: Interior(src.Cols(), src.Rows(), ignoreMargins),
	}, nil
}

// Interior returns the detection region for a page of the given pixel size.
// With margin exclusion a fixed-fraction border is removed on every edge;
// otherwise the full page is returned.
func Interior(width, height int, ignoreMargins bool) geometry.RectInt {
	if !ignoreMargins {
		return geometry.RectInt{Width: width, Height: height}
	}
	mx := int(float64(width) * MarginFraction)
	my := int(float64(height) * MarginFraction)
	return geometry.RectInt{X: mx, Y: my, Width: width - 2*mx, Height: height - 2*my}
}

// ImageToMat converts a decoded Go image to an 8-bit BGR Mat.
func ImageToMat(srcImg image.Image) (gocv.Mat, error) {
	bounds := srcImg.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := srcImg.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}
