package drawing

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// =============================================================================
// Point
// =============================================================================

// Point is a pen position. X is the grid column, Y the vertical position in
// image coordinates (growing downward).
type Point struct {
	X int
	Y float64
}

// MarshalJSON encodes the point as a two-element array [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.X), p.Y})
}

// UnmarshalJSON decodes a two-element array [x, y].
func (p *Point) UnmarshalJSON(data []byte) error {
	var v [2]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v[0] != float64(int(v[0])) {
		return fmt.Errorf("point x must be an integer column, got %v", v[0])
	}
	p.X, p.Y = int(v[0]), v[1]
	return nil
}

// =============================================================================
// Polyline
// =============================================================================

// Polyline is an ordered run of points drawn as a single stroke.
type Polyline []Point

// Drawable reports whether the polyline has enough points to be stroked.
func (l Polyline) Drawable() bool { return len(l) >= 2 }

// Span returns the first and last x of the polyline. It panics on an empty
// polyline.
func (l Polyline) Span() (minX, maxX int) {
	return l[0].X, l[len(l)-1].X
}

// Overlaps reports whether the x ranges of two non-empty polylines intersect.
func (l Polyline) Overlaps(o Polyline) bool {
	if len(l) == 0 || len(o) == 0 {
		return false
	}
	lMin, lMax := l.Span()
	oMin, oMax := o.Span()
	return lMax >= oMin && lMin <= oMax
}

// =============================================================================
// Row
// =============================================================================

// Row is everything drawn for one scan row.
type Row struct {
	// Y is the nominal vertical position of the row.
	Y float64 `json:"y"`

	// Polylines are ordered left to right and never share an x value.
	Polylines []Polyline `json:"polylines"`
}

// Empty reports whether the row has no points at all.
func (r Row) Empty() bool {
	for _, l := range r.Polylines {
		if len(l) > 0 {
			return false
		}
	}
	return true
}

// PointCount returns the number of points across all polylines.
func (r Row) PointCount() int {
	n := 0
	for _, l := range r.Polylines {
		n += len(l)
	}
	return n
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := Row{Y: r.Y, Polylines: make([]Polyline, len(r.Polylines))}
	for i, l := range r.Polylines {
		out.Polylines[i] = slices.Clone(l)
	}
	return out
}

// =============================================================================
// Document
// =============================================================================

// Document is the finished drawing: every accepted row in emission order.
type Document struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Rows   []Row `json:"rows"`
}

// Polylines yields every drawable polyline in emission order.
func (d *Document) Polylines() iter.Seq[Polyline] {
	return func(yield func(Polyline) bool) {
		for _, r := range d.Rows {
			for _, l := range r.Polylines {
				if !l.Drawable() {
					continue
				}
				if !yield(l) {
					return
				}
			}
		}
	}
}

// PolylineCount returns the number of drawable polylines.
func (d *Document) PolylineCount() int {
	n := 0
	for range d.Polylines() {
		n++
	}
	return n
}

// PointCount returns the number of points in drawable polylines.
func (d *Document) PointCount() int {
	n := 0
	for l := range d.Polylines() {
		n += len(l)
	}
	return n
}

// Marshal encodes the document in its JSON wire format.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Unmarshal decodes a document from its JSON wire format.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}
