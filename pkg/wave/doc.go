// Package wave turns one row of darkness values into sinusoidal strokes.
//
// # Overview
//
// Every column x of a scan row at nominal height y becomes a point whose
// vertical offset encodes the darkness d at that column:
//
//	amplitude = d * AmplitudeScale
//	frequency = 0.1 + d*0.2
//	offset    = amplitude * sin(x*frequency + phase)
//
// Darker columns therefore swing further and oscillate faster.
//
// # Modes
//
// [Options] carries two orthogonal flags, both off by default:
//
//   - Segmented: columns with darkness of at least DarknessThreshold are
//     kept, lighter columns break the stroke. A row of pure background yields an empty
//     [drawing.Row].
//   - Organic: each row gets a random phase in [0, 2π) and a frequency
//     factor in [0.8, 1.2); each point gets a wobble in [-0.5, 0.5)·d and the
//     offset is eased by 0.3·sin(2·x·frequency) + 1. With a zero
//     AmplitudeScale the row stays flat in either mode.
//
// # Reproducibility
//
// The random draws of a row depend only on (Seed, y). A fresh generator is
// built for each row, so [Synthesize] can be called for rows in any order,
// or concurrently, and still produce identical output.
//
// [drawing.Row]: github.com/matzehuels/polargraph/pkg/drawing.Row
package wave
