// Package clearance keeps consecutive pen strokes from touching.
//
// A plotter pen laying a stroke too close to the one above it pools ink or
// snags paper. [Check] measures how close a freshly synthesized row comes to
// the previously accepted row, and [Adjust] pushes the new row down until
// every shared column is at least the minimum clearance below its
// predecessor.
//
// Points are matched by exact column: two rows only interact where both have
// a point at the same x.
package clearance

import (
	"math"

	"github.com/matzehuels/polargraph/pkg/drawing"
)

// DefaultMinClearance is the vertical gap required between adjacent strokes,
// in pixels.
const DefaultMinClearance = 0.8

// columnIndex maps each column of a row to its y value.
type columnIndex map[int]float64

func indexRow(r drawing.Row) columnIndex {
	idx := make(columnIndex, r.PointCount())
	for _, l := range r.Polylines {
		for _, p := range l {
			idx[p.X] = p.Y
		}
	}
	return idx
}

// Check reports whether curr comes closer than minClearance to prev at any
// shared column, along with the smallest observed gap curr.y - prev.y.
//
// The gap is signed, not the absolute |curr.y - prev.y|: a point of curr
// lying above its counterpart in prev is a crossing and yields a negative
// distance however far above it lies. Without any shared column the result
// is (false, +Inf).
func Check(prev, curr drawing.Row, minClearance float64) (violated bool, minDistance float64) {
	minDistance = math.Inf(1)
	if prev.Empty() || curr.Empty() {
		return false, minDistance
	}

	idx := indexRow(prev)
	for _, l := range curr.Polylines {
		for _, p := range l {
			if py, ok := idx[p.X]; ok {
				minDistance = min(minDistance, p.Y-py)
			}
		}
	}
	return minDistance < minClearance, minDistance
}

// Adjust returns a copy of curr in which every point sharing a column with
// prev lies at least minClearance below it. Points are only ever moved down;
// polyline count, point count and columns are unchanged.
func Adjust(curr, prev drawing.Row, minClearance float64) drawing.Row {
	out := curr.Clone()
	if prev.Empty() {
		return out
	}

	idx := indexRow(prev)
	for _, l := range out.Polylines {
		for i, p := range l {
			if py, ok := idx[p.X]; ok {
				l[i].Y = max(p.Y, py+minClearance)
			}
		}
	}
	return out
}
