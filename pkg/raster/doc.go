// Package raster turns image files into the read-only intensity grid the
// line synthesizer scans.
//
// Decoding supports PNG, JPEG and GIF from the standard library plus BMP,
// TIFF and WebP from golang.org/x/image. Every image is reduced to 8-bit luma
// (ITU-R 601 weights, the same as a "L" mode conversion), where 0 is black
// and 255 is white. Headers declaring more than [DefaultMaxPixels] pixels
// are rejected before decoding; see [WithMaxPixels].
//
// # Darkness
//
// [Darkness] maps a sample to [0, 1] with 1 - s/255, so black is 1 and
// white is 0. [Grid.DarknessRow] applies it to a whole scan row.
//
//	g, err := raster.Load("photo.jpg", raster.WithMaxWidth(800))
//	if err != nil {
//	    return err
//	}
//	row := g.DarknessRow(42)
package raster
