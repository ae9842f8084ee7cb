package pipeline

import (
	"fmt"

	"github.com/matzehuels/polargraph/pkg/drawing"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/sink"
)

// Render generates output artifacts in the requested formats.
func Render(doc *drawing.Document, stats Stats, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(doc, buildSVGOptions(stats, opts)...)
		case FormatJSON:
			data, err = sink.RenderJSON(doc,
				sink.WithJSONParams(jsonParams(opts)),
				sink.WithJSONCounts(stats.Counts()),
			)
		case FormatPNG:
			data, err = sink.RenderPNG(doc, sink.WithPNGStrokeWidth(opts.StrokeWidth))
		case FormatPlot:
			data, err = sink.RenderPlot(stats.ClearanceSamples(),
				sink.WithMinClearance(opts.MinClearance),
				sink.WithPlotTitle(fmt.Sprintf("Row clearance (%s)", opts.Mode())),
			)
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func buildSVGOptions(stats Stats, opts Options) []sink.SVGOption {
	svgOpts := []sink.SVGOption{
		sink.WithStrokeWidth(opts.StrokeWidth),
		sink.WithDescription(opts.Description()),
	}
	if stats.TotalRows > 0 {
		svgOpts = append(svgOpts, sink.WithComment(stats.Summary()))
	}
	return svgOpts
}

func jsonParams(opts Options) sink.Params {
	return sink.Params{
		LineSpacing:       opts.LineSpacing,
		AmplitudeScale:    opts.AmplitudeScale,
		DarknessThreshold: opts.DarknessThreshold,
		MinClearance:      opts.MinClearance,
		Segmented:         opts.Segmented,
		Organic:           opts.Organic,
		Seed:              opts.seedKey(),
	}
}
