package wave

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/polargraph/pkg/drawing"
)

const (
	// DefaultDarknessThreshold is the darkness below which segmented mode
	// treats a column as background (roughly gray 230 and lighter).
	DefaultDarknessThreshold = 0.1

	// DefaultSeed seeds organic mode when no seed is configured.
	DefaultSeed uint64 = 42

	baseFrequency     = 0.1
	frequencyGain     = 0.2
	minFrequencyScale = 0.8
	maxFrequencyScale = 1.2
	wobbleRange       = 0.5
	easeGain          = 0.3
)

// Options controls wave synthesis.
type Options struct {
	LineSpacing       float64
	AmplitudeScale    float64
	DarknessThreshold float64
	Segmented         bool
	Organic           bool
	Seed              uint64
}

// rowParams are the per-row organic draws.
type rowParams struct {
	phase     float64
	freqScale float64
	rng       *rand.Rand
}

func newRowParams(y float64, opts Options) rowParams {
	if !opts.Organic {
		return rowParams{freqScale: 1}
	}
	rng := RowRand(opts.Seed, y)
	p := rowParams{rng: rng}
	p.phase = rng.Float64() * 2 * math.Pi
	p.freqScale = minFrequencyScale + rng.Float64()*(maxFrequencyScale-minFrequencyScale)
	return p
}

// RowRand returns the generator used for the row at nominal height y. It is
// a pure function of seed and y.
func RowRand(seed uint64, y float64) *rand.Rand {
	s := seed + uint64(int64(y*1000))
	return rand.New(rand.NewPCG(s, s^0xdeadbeef))
}

// Synthesize builds the strokes for the scan row at nominal height y.
//
// In basic mode the result is a single polyline covering every column. In
// segmented mode it holds one polyline per run of columns at or above the
// darkness threshold, which may include single-point runs; callers drop those
// when drawing.
func Synthesize(y float64, darkness []float64, opts Options) drawing.Row {
	row := drawing.Row{Y: y}
	p := newRowParams(y, opts)

	var run drawing.Polyline
	for x, d := range darkness {
		if opts.Segmented && d < opts.DarknessThreshold {
			if len(run) > 0 {
				row.Polylines = append(row.Polylines, run)
				run = nil
			}
			continue
		}
		run = append(run, drawing.Point{X: x, Y: y + p.offset(x, d, opts.AmplitudeScale)})
	}
	if len(run) > 0 {
		row.Polylines = append(row.Polylines, run)
	}
	return row
}

func (p rowParams) offset(x int, d, amplitudeScale float64) float64 {
	frequency := (baseFrequency + d*frequencyGain) * p.freqScale
	off := d * amplitudeScale * math.Sin(float64(x)*frequency+p.phase)
	if p.rng == nil {
		return off
	}

	// One draw per emitted point keeps the stream aligned across runs.
	wobble := (p.rng.Float64()*2 - 1) * wobbleRange * d
	if amplitudeScale == 0 {
		return 0
	}
	off += wobble
	return off * (easeGain*math.Sin(2*float64(x)*frequency) + 1)
}
