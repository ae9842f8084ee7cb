package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/polargraph/pkg/sink"
)

// Distance is a vertical gap between two rows in pixels. +Inf means the rows
// share no column; it is encoded as JSON null.
type Distance float64

// NoOverlap is the distance between rows that share no column.
var NoOverlap = Distance(math.Inf(1))

// Finite reports whether the rows shared at least one column.
func (d Distance) Finite() bool { return !math.IsInf(float64(d), 0) }

// MarshalJSON implements json.Marshaler.
func (d Distance) MarshalJSON() ([]byte, error) {
	if !d.Finite() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Distance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = NoOverlap
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = Distance(f)
	return nil
}

// RowTrace records what happened to one scan row.
type RowTrace struct {
	Y float64 `json:"y"`

	// Skipped rows synthesized to nothing and were not emitted.
	Skipped bool `json:"skipped,omitempty"`

	// Distance is the smallest gap to the previous accepted row before
	// adjustment.
	Distance Distance `json:"distance"`

	// Adjusted rows were pushed down to restore clearance.
	Adjusted bool `json:"adjusted,omitempty"`
}

// Stats describes a conversion.
type Stats struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// TotalRows counts every scan row, including skipped ones.
	TotalRows int `json:"total_rows"`

	// EmittedRows counts rows appended to the document.
	EmittedRows int `json:"emitted_rows"`

	// AdjustedRows is the collision counter.
	AdjustedRows int `json:"adjusted_rows"`

	Polylines int `json:"polylines"`
	Points    int `json:"points"`

	// MinDistance is the smallest pre-adjustment gap seen anywhere.
	MinDistance Distance `json:"min_distance"`

	// MeanDarkness is the average darkness of the whole grid.
	MeanDarkness float64 `json:"mean_darkness"`

	Duration time.Duration `json:"duration"`

	Trace []RowTrace `json:"trace,omitempty"`
}

// Summary is the collision side channel of a conversion.
func (s Stats) Summary() string {
	return fmt.Sprintf("Collision prevention: %d/%d lines adjusted for clearance", s.AdjustedRows, s.TotalRows)
}

// ClearanceSamples converts the trace of emitted rows for [sink.RenderPlot].
func (s Stats) ClearanceSamples() []sink.ClearanceSample {
	out := make([]sink.ClearanceSample, 0, s.EmittedRows)
	for _, t := range s.Trace {
		if t.Skipped {
			continue
		}
		out = append(out, sink.ClearanceSample{Y: t.Y, Distance: float64(t.Distance), Adjusted: t.Adjusted})
	}
	return out
}

// Counts returns the collision counters for [sink.RenderJSON].
func (s Stats) Counts() sink.Counts {
	return sink.Counts{TotalRows: s.TotalRows, EmittedRows: s.EmittedRows, AdjustedRows: s.AdjustedRows}
}
