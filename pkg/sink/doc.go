// Package sink provides output format renderers for polargraph documents.
//
// # Overview
//
// A "sink" transforms a finished [drawing.Document] into bytes. This package
// provides renderers for:
//
//   - SVG: plotter-ready vector output, one polyline per stroke
//   - JSON: the document geometry plus conversion metadata
//   - PNG: a raster preview of what the pen will draw
//   - Plot: a diagnostics chart of row-to-row clearance
//
// # SVG Output
//
// [RenderSVG] writes an XML declaration, a root element sized to the source
// image with a matching viewBox, a description and a single group carrying
// the pen style (no fill, black stroke, round caps and joins). Inside the
// group every drawable polyline becomes one element with coordinates printed
// to two decimal places:
//
//	svg := sink.RenderSVG(doc,
//	    sink.WithStrokeWidth(0.5),
//	    sink.WithDescription("Polargraph SVG - Generated from image with collision prevention"),
//	)
//
// Single-point polylines are never written; a pen cannot draw them.
//
// # PNG and Plot Output
//
// [RenderPNG] rasterizes the strokes with fogleman/gg on a white canvas.
// [RenderPlot] charts the smallest gap between each row and its predecessor
// with gonum/plot, marking rows that were pushed down for clearance. Both
// are previews; the SVG is the artifact sent to the plotter.
//
// [drawing.Document]: github.com/matzehuels/polargraph/pkg/drawing.Document
package sink
