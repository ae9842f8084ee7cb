package sink

import (
	"encoding/json"

	"github.com/matzehuels/polargraph/pkg/drawing"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	params *Params
	counts *Counts
}

// Params records the conversion parameters that produced a document, so a
// drawing can be reproduced later.
type Params struct {
	LineSpacing       float64 `json:"line_spacing"`
	AmplitudeScale    float64 `json:"amplitude_scale"`
	DarknessThreshold float64 `json:"darkness_threshold"`
	MinClearance      float64 `json:"min_clearance"`
	Segmented         bool    `json:"segmented,omitempty"`
	Organic           bool    `json:"organic,omitempty"`
	Seed              uint64  `json:"seed,omitempty"`
}

// Counts summarizes collision handling during a conversion.
type Counts struct {
	TotalRows    int `json:"total_rows"`
	EmittedRows  int `json:"emitted_rows"`
	AdjustedRows int `json:"adjusted_rows"`
}

// WithJSONParams records the conversion parameters in the output.
func WithJSONParams(p Params) JSONOption { return func(r *jsonRenderer) { r.params = &p } }

// WithJSONCounts records the collision counters in the output.
func WithJSONCounts(c Counts) JSONOption { return func(r *jsonRenderer) { r.counts = &c } }

type jsonOutput struct {
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Params    *Params            `json:"params,omitempty"`
	Counts    *Counts            `json:"counts,omitempty"`
	Polylines []drawing.Polyline `json:"polylines"`
	Rows      []drawing.Row      `json:"rows"`
}

// RenderJSON exports the document as pretty-printed JSON. Polylines holds the
// drawable strokes in pen order; Rows holds every accepted row including
// single-point runs, in the [drawing.Document] wire format.
func RenderJSON(doc *drawing.Document, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Width:     doc.Width,
		Height:    doc.Height,
		Params:    r.params,
		Counts:    r.counts,
		Polylines: make([]drawing.Polyline, 0, doc.PolylineCount()),
		Rows:      doc.Rows,
	}
	for l := range doc.Polylines() {
		out.Polylines = append(out.Polylines, l)
	}
	if out.Rows == nil {
		out.Rows = []drawing.Row{}
	}
	return json.MarshalIndent(out, "", "  ")
}
