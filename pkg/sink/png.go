package sink

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"

	"github.com/matzehuels/polargraph/pkg/drawing"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	scale       float64
	strokeWidth float64
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// WithPNGStrokeWidth sets the pen width in document units.
func WithPNGStrokeWidth(w float64) PNGOption {
	return func(r *pngRenderer) { r.strokeWidth = w }
}

// RenderPNG rasterizes the document's strokes on a white canvas.
func RenderPNG(doc *drawing.Document, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 2.0, strokeWidth: DefaultStrokeWidth}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		return nil, fmt.Errorf("invalid png scale %v", r.scale)
	}

	w := max(1, int(float64(doc.Width)*r.scale+0.5))
	h := max(1, int(float64(doc.Height)*r.scale+0.5))

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.Scale(r.scale, r.scale)
	dc.SetRGB(0, 0, 0)
	// Line width is in device pixels, unaffected by Scale.
	dc.SetLineWidth(r.strokeWidth * r.scale)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for l := range doc.Polylines() {
		dc.MoveTo(float64(l[0].X), l[0].Y)
		for _, p := range l[1:] {
			dc.LineTo(float64(p.X), p.Y)
		}
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
