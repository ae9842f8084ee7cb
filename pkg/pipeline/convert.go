package pipeline

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/polargraph/pkg/clearance"
	"github.com/matzehuels/polargraph/pkg/drawing"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/observability"
	"github.com/matzehuels/polargraph/pkg/raster"
	"github.com/matzehuels/polargraph/pkg/wave"
)

// ScanRows returns the nominal y of every scan row of an image of the given
// height: 0, spacing, 2·spacing, … while below height. Positions accumulate
// by repeated addition. At most MaxScanRows positions are returned, and the
// scan stops early once adding spacing no longer advances y.
func ScanRows(height int, spacing float64) []float64 {
	if !(spacing > 0) {
		return nil
	}
	var ys []float64
	for y := 0.0; y < float64(height) && len(ys) < MaxScanRows; {
		ys = append(ys, y)
		next := y + spacing
		if next == y {
			break
		}
		y = next
	}
	return ys
}

// checkScanRows rejects spacings that would produce more than MaxScanRows
// rows for the given height.
func checkScanRows(height int, spacing float64) error {
	if n := float64(height) / spacing; n > MaxScanRows {
		return errors.New(errors.ErrCodeInvalidParameter,
			"line spacing %g gives %.3g scan rows for height %d (max %d)", spacing, n, height, MaxScanRows)
	}
	return nil
}

// Convert turns a grid into a plotter document.
//
// Rows are synthesized concurrently, then folded top to bottom: an empty row
// is skipped and leaves the baseline untouched; a row closer than
// MinClearance to the last accepted row is adjusted and counted. Options
// are rejected when invalid or when the spacing would give the grid more
// than MaxScanRows rows; past that only ctx cancellation can fail Convert.
func Convert(ctx context.Context, g *raster.Grid, opts Options) (*drawing.Document, Stats, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, Stats{}, err
	}
	if err := checkScanRows(g.Height, opts.LineSpacing); err != nil {
		return nil, Stats{}, err
	}

	start := time.Now()
	observability.Pipeline().OnConvertStart(ctx, g.Width, g.Height)

	rows, err := synthesizeRows(ctx, g, opts.WaveOptions())
	if err != nil {
		observability.Pipeline().OnConvertComplete(ctx, 0, 0, time.Since(start), err)
		return nil, Stats{}, err
	}

	doc, stats := foldRows(g.Width, g.Height, rows, opts.MinClearance)
	stats.MeanDarkness = g.MeanDarkness()
	stats.Duration = time.Since(start)

	opts.Logger.Debug("converted grid",
		"width", g.Width,
		"height", g.Height,
		"rows", stats.TotalRows,
		"emitted", stats.EmittedRows,
		"adjusted", stats.AdjustedRows,
		"mode", opts.Mode())
	observability.Pipeline().OnConvertComplete(ctx, stats.TotalRows, stats.AdjustedRows, stats.Duration, nil)

	return doc, stats, nil
}

// synthesizeRows is the map stage. Each row gets its own slot, so workers
// never share state.
func synthesizeRows(ctx context.Context, g *raster.Grid, opts wave.Options) ([]drawing.Row, error) {
	ys := ScanRows(g.Height, opts.LineSpacing)
	rows := make([]drawing.Row, len(ys))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, y := range ys {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[i] = wave.Synthesize(y, g.DarknessRow(int(y)), opts)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// foldRows is the sequential stage. prev is the last accepted row; the zero
// Row stands for "none yet" since clearance checks against an empty row are
// vacuous.
func foldRows(width, height int, rows []drawing.Row, minClearance float64) (*drawing.Document, Stats) {
	doc := &drawing.Document{Width: width, Height: height, Rows: make([]drawing.Row, 0, len(rows))}
	stats := Stats{
		Width:       width,
		Height:      height,
		TotalRows:   len(rows),
		MinDistance: NoOverlap,
		Trace:       make([]RowTrace, 0, len(rows)),
	}

	var prev drawing.Row
	for _, row := range rows {
		tr := RowTrace{Y: row.Y, Distance: NoOverlap}
		if row.Empty() {
			tr.Skipped = true
			stats.Trace = append(stats.Trace, tr)
			continue
		}

		violated, dist := clearance.Check(prev, row, minClearance)
		tr.Distance = Distance(dist)
		stats.MinDistance = min(stats.MinDistance, tr.Distance)
		if violated {
			row = clearance.Adjust(row, prev, minClearance)
			tr.Adjusted = true
			stats.AdjustedRows++
		}

		doc.Rows = append(doc.Rows, row)
		prev = row
		stats.Trace = append(stats.Trace, tr)
	}

	stats.EmittedRows = len(doc.Rows)
	stats.Polylines = doc.PolylineCount()
	stats.Points = doc.PointCount()
	return doc, stats
}
