// Package pkg provides the core libraries for Polargraph pen-plotter drawings.
//
// # Overview
//
// Polargraph turns a raster image into rows of horizontal sine waves. Dark
// regions get taller, tighter waves; light regions flatten out or lift the
// pen entirely. Each row is pushed down when it would come closer than a
// minimum clearance to the row above, so strokes never cross.
//
// # Architecture
//
// The data flow through Polargraph:
//
//	PNG/JPEG/GIF/BMP/TIFF/WebP
//	         ↓
//	    [raster] package (decode to a grayscale grid)
//	         ↓
//	    [wave] package (one row of polylines per scan line)
//	         ↓
//	    [clearance] package (check and push rows apart)
//	         ↓
//	    [drawing] package (document model)
//	         ↓
//	    [sink] package (SVG, JSON, PNG preview, clearance plot)
//
// [pipeline] ties the stages together, caches documents and artifacts
// through [cache] and reports stage timings to [observability] hooks.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/matzehuels/polargraph/pkg/pipeline"
//	    "github.com/matzehuels/polargraph/pkg/raster"
//	    "github.com/matzehuels/polargraph/pkg/sink"
//	)
//
//	g, _ := raster.Load("portrait.jpg", raster.WithMaxWidth(800))
//
//	opts := pipeline.DefaultOptions()
//	opts.Organic = true
//	doc, stats, _ := pipeline.Convert(context.Background(), g, opts)
//
//	svg := sink.RenderSVG(doc, sink.WithStrokeWidth(opts.StrokeWidth))
//	fmt.Println(stats.Summary())
//
// # Main Packages
//
// [raster] - Image decoding and the darkness mapping (0 for white, 1 for
// black). Images can be downscaled on load.
//
// [wave] - Row synthesis. Basic mode draws a plain sine per pixel; organic
// mode adds per-row phase, frequency jitter and wobble from a seeded RNG.
//
// [clearance] - Signed minimum vertical gap between consecutive rows and the
// minimal downward shift that restores it.
//
// [drawing] - Points, polylines, rows and documents with a stable JSON form.
//
// [sink] - Output renderers. SVG is the plotter format; PNG and the
// clearance plot are previews.
//
// [pipeline] - Options, validation, conversion statistics and the cached
// [pipeline.Runner] used by the CLI and the HTTP service.
//
// [config] - TOML config file with defaults and named presets.
//
// [cache] - Key/value caching with file, Redis and no-op backends.
//
// [errors] - Error codes that separate bad input, bad parameters and
// internal failures.
//
// [observability] - Hooks for pipeline, cache and server events.
//
// [buildinfo] - Version information set at link time.
package pkg
