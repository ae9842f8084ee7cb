package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// ValidateLineSpacing checks that the vertical distance between scan rows
// is a positive, finite number.
func ValidateLineSpacing(spacing float64) error {
	if math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return New(ErrCodeInvalidParameter, "line spacing must be a finite number")
	}
	if spacing <= 0 {
		return New(ErrCodeInvalidParameter, "line spacing must be greater than 0, got %v", spacing)
	}
	return nil
}

// ValidateAmplitudeScale checks that the wave amplitude scale is
// non-negative and finite.
func ValidateAmplitudeScale(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return New(ErrCodeInvalidParameter, "amplitude scale must be a finite number")
	}
	if scale < 0 {
		return New(ErrCodeInvalidParameter, "amplitude scale must be non-negative, got %v", scale)
	}
	return nil
}

// ValidateDarknessThreshold checks that the threshold lies in [0, 1].
func ValidateDarknessThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return New(ErrCodeInvalidParameter, "darkness threshold must be between 0 and 1, got %v", threshold)
	}
	return nil
}

// ValidateMinClearance checks that the minimum clearance is non-negative
// and finite.
func ValidateMinClearance(clearance float64) error {
	if math.IsNaN(clearance) || math.IsInf(clearance, 0) || clearance < 0 {
		return New(ErrCodeInvalidParameter, "minimum clearance must be a non-negative number, got %v", clearance)
	}
	return nil
}

// ValidateStrokeWidth checks that the pen width used for rendering is positive.
func ValidateStrokeWidth(width float64) error {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return New(ErrCodeInvalidParameter, "stroke width must be greater than 0, got %v", width)
	}
	return nil
}

// presetNameRegex matches valid preset names: lowercase words joined by
// dashes or underscores.
var presetNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidatePresetName validates a preset name from a config file or flag.
func ValidatePresetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPreset, "preset name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidPreset, "preset name too long (max 64 characters)")
	}
	if !presetNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPreset, "invalid preset name: %q", name)
	}
	return nil
}

// ValidatePath validates a user-supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	return nil
}
