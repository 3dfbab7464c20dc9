package detect

import (
	"fmt"

	"manuscript-symbols/internal/preprocess"
)

// ThresholdMethod selects the binarization strategy.
type ThresholdMethod int

const (
	// MethodOtsu computes a global threshold from the histogram; the
	// supplied threshold value is ignored.
	MethodOtsu ThresholdMethod = iota
	// MethodAdaptive computes a local threshold per neighborhood.
	MethodAdaptive
	// MethodSimple applies the fixed supplied threshold value.
	MethodSimple
)

func (m ThresholdMethod) String() string {
	switch m {
	case MethodOtsu:
		return "otsu"
	case MethodAdaptive:
		return "adaptive"
	case MethodSimple:
		return "simple"
	default:
		return "unknown"
	}
}

// ParseThresholdMethod parses a threshold method name.
func ParseThresholdMethod(s string) (ThresholdMethod, error) {
	switch s {
	case "otsu", "":
		return MethodOtsu, nil
	case "adaptive":
		return MethodAdaptive, nil
	case "simple":
		return MethodSimple, nil
	default:
		return MethodOtsu, fmt.Errorf("unknown threshold method %q", s)
	}
}

// MarshalJSON encodes the method by name.
func (m ThresholdMethod) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a method name.
func (m *ThresholdMethod) UnmarshalJSON(data []byte) error {
	parsed, err := ParseThresholdMethod(unquote(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ContourMode selects the contour approximation used during extraction.
type ContourMode int

const (
	// ContourSimple compresses horizontal, vertical and diagonal runs.
	ContourSimple ContourMode = iota
	// ContourNone keeps every contour point.
	ContourNone
)

func (m ContourMode) String() string {
	switch m {
	case ContourSimple:
		return "simple"
	case ContourNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseContourMode parses a contour approximation mode name.
func ParseContourMode(s string) (ContourMode, error) {
	switch s {
	case "simple", "":
		return ContourSimple, nil
	case "none":
		return ContourNone, nil
	default:
		return ContourSimple, fmt.Errorf("unknown contour mode %q", s)
	}
}

// MarshalJSON encodes the mode by name.
func (m ContourMode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a mode name.
func (m *ContourMode) UnmarshalJSON(data []byte) error {
	parsed, err := ParseContourMode(unquote(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func unquote(data []byte) string {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// Params is the extraction parameter set. It is a value object: two Params
// compare equal with == when they request the same processing, which is how
// idempotent re-runs are recognized.
type Params struct {
	Method         ThresholdMethod   `json:"thresholdMethod"`
	ThresholdValue int               `json:"thresholdValue"`
	MinSymbolSize  int               `json:"minSymbolSize"`
	MaxSymbolSize  int               `json:"maxSymbolSize"`
	IgnoreMargins  bool              `json:"ignoreMargins"`
	Enhancement    preprocess.Preset `json:"enhancement"`
	ContourMode    ContourMode       `json:"contourMode"`
}

// DefaultParams returns parameters suited to typical manuscript scans.
func DefaultParams() Params {
	return Params{
		Method:         MethodOtsu,
		ThresholdValue: 128,
		MinSymbolSize:  8,
		MaxSymbolSize:  256,
		IgnoreMargins:  true,
		Enhancement:    preprocess.PresetDefault,
		ContourMode:    ContourSimple,
	}
}

// ValidationError reports a parameter that is out of range. Validation
// failures are surfaced synchronously, before any job is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks all parameter ranges.
func (p Params) Validate() error {
	if p.ThresholdValue < 0 || p.ThresholdValue > 255 {
		return &ValidationError{Field: "thresholdValue", Reason: fmt.Sprintf("must be 0-255, got %d", p.ThresholdValue)}
	}
	if p.MinSymbolSize < 1 {
		return &ValidationError{Field: "minSymbolSize", Reason: fmt.Sprintf("must be at least 1, got %d", p.MinSymbolSize)}
	}
	if p.MaxSymbolSize < p.MinSymbolSize {
		return &ValidationError{Field: "maxSymbolSize", Reason: fmt.Sprintf("must be >= minSymbolSize (%d), got %d", p.MinSymbolSize, p.MaxSymbolSize)}
	}
	switch p.Method {
	case MethodOtsu, MethodAdaptive, MethodSimple:
	default:
		return &ValidationError{Field: "thresholdMethod", Reason: "unknown method"}
	}
	switch p.ContourMode {
	case ContourSimple, ContourNone:
	default:
		return &ValidationError{Field: "contourMode", Reason: "unknown mode"}
	}
	switch p.Enhancement {
	case preprocess.PresetNone, preprocess.PresetDefault, preprocess.PresetHighContrast:
	default:
		return &ValidationError{Field: "enhancement", Reason: "unknown preset"}
	}
	return nil
}
