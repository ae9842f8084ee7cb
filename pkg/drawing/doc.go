// Package drawing defines the geometry shared by every stage of polargraph:
// points, polylines, scan rows and the finished document.
//
// # Core Types
//
//   - [Point]: an integer column and a floating-point vertical position
//   - [Polyline]: points with strictly increasing x, drawn as one pen stroke
//   - [Row]: everything drawn for one scan row (one polyline in basic mode,
//     any number in segmented mode, none when the row is pure background)
//   - [Document]: accepted rows in top-to-bottom emission order
//
// # Invariants
//
// Within a [Polyline] the x values increase by exactly 1 between neighbours.
// Polylines of one [Row] never share an x value, so any column maps to at most
// one point of a row. The clearance package relies on this when matching
// points between consecutive rows.
//
// Single-point polylines are kept in a [Row] so they still take part in
// clearance checks, but they are not drawable: [Document.Polylines] and the
// sinks skip them.
//
// # Wire Format
//
// Documents serialize to a compact JSON form used by the JSON sink, the
// artifact cache and the HTTP API:
//
//	{
//	  "width": 4, "height": 2,
//	  "rows": [{"y": 1, "polylines": [[[0, 1], [1, 1], [2, 1], [3, 1]]]}]
//	}
package drawing
