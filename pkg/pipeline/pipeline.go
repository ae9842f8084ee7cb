// Package pipeline provides the conversion pipeline shared by the CLI and
// the HTTP server.
//
// # Architecture
//
// A run has three stages:
//
//  1. Decode: read the image and reduce it to a luma grid ([raster.Decode])
//  2. Convert: scan the grid row by row, synthesize waves and resolve
//     clearance against the previous accepted row ([Convert])
//  3. Render: serialize the document to the requested formats ([Render])
//
// Convert itself is a map stage feeding a fold stage. Darkness extraction and
// wave synthesis depend only on the grid, so rows are synthesized in
// parallel. Clearance resolution depends on the previously accepted row and
// runs strictly in order over the synthesized rows.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Organic = true
//	result, err := runner.Execute(ctx, pipeline.Input{Data: img}, opts)
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts[pipeline.FormatSVG]
//
// Or run the engine directly on a grid:
//
//	doc, stats, err := pipeline.Convert(ctx, grid, opts)
//
// [raster.Decode]: github.com/matzehuels/polargraph/pkg/raster.Decode
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/polargraph/pkg/cache"
	"github.com/matzehuels/polargraph/pkg/clearance"
	"github.com/matzehuels/polargraph/pkg/drawing"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/sink"
	"github.com/matzehuels/polargraph/pkg/wave"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultLineSpacing is the vertical distance between scan rows in pixels.
	DefaultLineSpacing = 5.0

	// DefaultAmplitudeScale scales wave amplitude by darkness.
	DefaultAmplitudeScale = 10.0

	// DefaultDarknessThreshold is the segmentation cut-off.
	DefaultDarknessThreshold = wave.DefaultDarknessThreshold

	// DefaultMinClearance is the minimum gap between adjacent strokes.
	DefaultMinClearance = clearance.DefaultMinClearance

	// DefaultSeed is the organic-mode seed.
	DefaultSeed = wave.DefaultSeed

	// DefaultStrokeWidth is the pen width written to SVG and PNG output.
	DefaultStrokeWidth = sink.DefaultStrokeWidth

	// MaxScanRows caps the scan rows of one conversion. Height divided by
	// line spacing must not exceed it.
	MaxScanRows = 1 << 16
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatPlot = "plot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatJSON: true,
	FormatPNG:  true,
	FormatPlot: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a conversion.
// This struct supports JSON serialization for API requests and config files.
//
// Every field is used literally: a zero DarknessThreshold keeps every column
// and a zero MinClearance only forbids crossings. Start from
// [DefaultOptions] to get the documented defaults.
type Options struct {
	// Synthesis options
	LineSpacing       float64 `json:"line_spacing"`
	AmplitudeScale    float64 `json:"amplitude_scale"`
	DarknessThreshold float64 `json:"darkness_threshold"`
	Segmented         bool    `json:"segmented"`
	Organic           bool    `json:"organic"`
	Seed              uint64  `json:"seed"`

	// Clearance options
	MinClearance float64 `json:"min_clearance"`

	// Input options
	MaxWidth int `json:"max_width,omitempty"` // Downscale wider images; 0 keeps the original size

	// Render options
	Formats     []string `json:"formats,omitempty"`
	StrokeWidth float64  `json:"stroke_width,omitempty"`

	// Runtime options (not serialized)
	Logger  *log.Logger `json:"-"`
	Refresh bool        `json:"-"` // Skip cache reads
}

// DefaultOptions returns the options of a plain `polargraph convert` run.
func DefaultOptions() Options {
	return Options{
		LineSpacing:       DefaultLineSpacing,
		AmplitudeScale:    DefaultAmplitudeScale,
		DarknessThreshold: DefaultDarknessThreshold,
		MinClearance:      DefaultMinClearance,
		Seed:              DefaultSeed,
		Formats:           []string{FormatSVG},
		StrokeWidth:       DefaultStrokeWidth,
	}
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, json, png, plot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults fills render and runtime fields that have no meaningful zero
// value. It is idempotent.
func (o *Options) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.StrokeWidth == 0 {
		o.StrokeWidth = DefaultStrokeWidth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate reports the first invalid parameter as a parameter error.
func (o *Options) Validate() error {
	if err := errors.ValidateLineSpacing(o.LineSpacing); err != nil {
		return err
	}
	if err := errors.ValidateAmplitudeScale(o.AmplitudeScale); err != nil {
		return err
	}
	if err := errors.ValidateDarknessThreshold(o.DarknessThreshold); err != nil {
		return err
	}
	if err := errors.ValidateMinClearance(o.MinClearance); err != nil {
		return err
	}
	if o.MaxWidth < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "max width must be non-negative, got %d", o.MaxWidth)
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.StrokeWidth != 0 {
		return errors.ValidateStrokeWidth(o.StrokeWidth)
	}
	return nil
}

// ValidateAndSetDefaults applies defaults, then validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// WaveOptions returns the synthesis subset of the options.
func (o *Options) WaveOptions() wave.Options {
	return wave.Options{
		LineSpacing:       o.LineSpacing,
		AmplitudeScale:    o.AmplitudeScale,
		DarknessThreshold: o.DarknessThreshold,
		Segmented:         o.Segmented,
		Organic:           o.Organic,
		Seed:              o.Seed,
	}
}

// Mode names the stroke style, e.g. "segmented organic" or "basic".
func (o *Options) Mode() string {
	var parts []string
	if o.Segmented {
		parts = append(parts, "segmented")
	}
	if o.Organic {
		parts = append(parts, "organic")
	}
	if len(parts) == 0 {
		return "basic"
	}
	return strings.Join(parts, " ")
}

// Description is the SVG <desc> text for these options.
func (o *Options) Description() string {
	if o.Organic {
		return sink.DefaultDescription + " with organic style"
	}
	return sink.DefaultDescription + " with collision prevention"
}

// HasFormat reports whether format was requested.
func (o *Options) HasFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}

// DocumentKeyOpts returns cache key options for the converted document.
func (o *Options) DocumentKeyOpts() cache.DocumentKeyOpts {
	return cache.DocumentKeyOpts{
		LineSpacing:       o.LineSpacing,
		AmplitudeScale:    o.AmplitudeScale,
		DarknessThreshold: o.DarknessThreshold,
		MinClearance:      o.MinClearance,
		Segmented:         o.Segmented,
		Organic:           o.Organic,
		Seed:              o.seedKey(),
		MaxWidth:          o.MaxWidth,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, StrokeWidth: o.StrokeWidth}
}

// seedKey ignores the seed when it cannot influence the result.
func (o *Options) seedKey() uint64 {
	if !o.Organic {
		return 0
	}
	return o.Seed
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the converted drawing.
	Document *drawing.Document

	// ImageHash is the SHA-256 of the input image bytes.
	ImageHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats describes the conversion.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ConvertHit bool // Whether the document came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

func (o *Options) String() string {
	return fmt.Sprintf("spacing=%g amplitude=%g threshold=%g clearance=%g mode=%s",
		o.LineSpacing, o.AmplitudeScale, o.DarknessThreshold, o.MinClearance, o.Mode())
}
