package sink

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ClearanceSample is the collision check result for one emitted row.
type ClearanceSample struct {
	// Y is the nominal row position.
	Y float64

	// Distance is the smallest gap to the previous row before adjustment,
	// +Inf when the rows share no column.
	Distance float64

	// Adjusted marks rows pushed down to restore clearance.
	Adjusted bool
}

// PlotOption configures diagnostics rendering via [RenderPlot].
type PlotOption func(*plotRenderer)

type plotRenderer struct {
	minClearance float64
	title        string
	width        vg.Length
	height       vg.Length
}

// WithMinClearance draws a reference line at the required clearance.
func WithMinClearance(c float64) PlotOption {
	return func(r *plotRenderer) { r.minClearance = c }
}

// WithPlotTitle sets the chart title.
func WithPlotTitle(s string) PlotOption { return func(r *plotRenderer) { r.title = s } }

// WithPlotSize sets the chart size in inches.
func WithPlotSize(w, h float64) PlotOption {
	return func(r *plotRenderer) { r.width, r.height = vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch }
}

var (
	gapColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	adjustedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	limitColor    = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// RenderPlot charts the gap between consecutive rows as a PNG. Rows without
// a shared column are left out.
func RenderPlot(samples []ClearanceSample, opts ...PlotOption) ([]byte, error) {
	r := plotRenderer{
		title:  "Row clearance",
		width:  10 * vg.Inch,
		height: 4 * vg.Inch,
	}
	for _, opt := range opts {
		opt(&r)
	}

	p := plot.New()
	p.Title.Text = r.title
	p.X.Label.Text = "Row y (px)"
	p.Y.Label.Text = "Minimum gap (px)"

	gaps := make(plotter.XYs, 0, len(samples))
	adjusted := make(plotter.XYs, 0)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		if math.IsInf(s.Distance, 0) || math.IsNaN(s.Distance) {
			continue
		}
		pt := plotter.XY{X: s.Y, Y: s.Distance}
		gaps = append(gaps, pt)
		if s.Adjusted {
			adjusted = append(adjusted, pt)
		}
		minY, maxY = min(minY, s.Y), max(maxY, s.Y)
	}

	if len(gaps) > 0 {
		line, err := plotter.NewLine(gaps)
		if err != nil {
			return nil, fmt.Errorf("gap line: %w", err)
		}
		line.Color = gapColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("gap", line)
	}

	if len(adjusted) > 0 {
		pts, err := plotter.NewScatter(adjusted)
		if err != nil {
			return nil, fmt.Errorf("adjusted rows: %w", err)
		}
		pts.GlyphStyle.Color = adjustedColor
		pts.GlyphStyle.Radius = vg.Points(2)
		p.Add(pts)
		p.Legend.Add("adjusted", pts)
	}

	if r.minClearance > 0 && len(gaps) > 0 {
		limit, err := plotter.NewLine(plotter.XYs{{X: minY, Y: r.minClearance}, {X: maxY, Y: r.minClearance}})
		if err != nil {
			return nil, fmt.Errorf("clearance line: %w", err)
		}
		limit.Color = limitColor
		limit.Width = vg.Points(1)
		limit.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(limit)
		p.Legend.Add(fmt.Sprintf("min clearance %.2g", r.minClearance), limit)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return nil, fmt.Errorf("plot writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode plot: %w", err)
	}
	return buf.Bytes(), nil
}
