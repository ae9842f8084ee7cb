package sink

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/matzehuels/polargraph/pkg/drawing"
)

const (
	// DefaultStrokeWidth is the pen width written on the stroke group.
	DefaultStrokeWidth = 0.5

	// DefaultDescription is used when no description option is given.
	DefaultDescription = "Polargraph SVG - Generated from image"
)

// SVGOption configures SVG rendering via [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	strokeWidth float64
	description string
	comments    []string
}

// WithStrokeWidth sets the stroke width of every polyline.
func WithStrokeWidth(w float64) SVGOption { return func(r *svgRenderer) { r.strokeWidth = w } }

// WithDescription sets the text of the <desc> element.
func WithDescription(s string) SVGOption { return func(r *svgRenderer) { r.description = s } }

// WithComment adds an XML comment after the stroke group, for example the
// collision summary of the conversion.
func WithComment(s string) SVGOption {
	return func(r *svgRenderer) { r.comments = append(r.comments, s) }
}

// RenderSVG serializes the document for a pen plotter.
func RenderSVG(doc *drawing.Document, opts ...SVGOption) []byte {
	r := svgRenderer{strokeWidth: DefaultStrokeWidth, description: DefaultDescription}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		doc.Width, doc.Height, doc.Width, doc.Height)
	fmt.Fprintf(&buf, "  <desc>%s</desc>\n", html.EscapeString(r.description))
	fmt.Fprintf(&buf, `  <g fill="none" stroke="black" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round">`+"\n",
		strconv.FormatFloat(r.strokeWidth, 'f', -1, 64))

	for l := range doc.Polylines() {
		buf.WriteString(`    <polyline points="`)
		writePoints(&buf, l)
		buf.WriteString(`"/>` + "\n")
	}

	buf.WriteString("  </g>\n")
	for _, c := range r.comments {
		fmt.Fprintf(&buf, "  <!-- %s -->\n", sanitizeComment(c))
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writePoints(buf *bytes.Buffer, l drawing.Polyline) {
	for i, p := range l {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(buf, "%.2f,%.2f", float64(p.X), p.Y)
	}
}

// sanitizeComment keeps "--" out of XML comments.
func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "--", "- -")
}
