package raster

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
)

// Darkness converts a luma sample to a darkness factor: 0 for white, 1 for
// black.
func Darkness(sample uint8) float64 {
	return 1.0 - float64(sample)/255.0
}

// Grid is an immutable two-dimensional array of luma samples in row-major
// order.
type Grid struct {
	Width  int
	Height int
	pix    []uint8
}

// NewGrid builds a grid from row-major samples. The slice is copied.
func NewGrid(width, height int, pix []uint8) (*Grid, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("grid %dx%d needs %d samples, got %d", width, height, width*height, len(pix))
	}
	return &Grid{Width: width, Height: height, pix: slices.Clone(pix)}, nil
}

// At returns the sample at column x of row y.
func (g *Grid) At(x, y int) uint8 {
	return g.pix[y*g.Width+x]
}

// DarknessRow returns the darkness of every sample in row y. The returned
// slice is freshly allocated.
func (g *Grid) DarknessRow(y int) []float64 {
	row := g.pix[y*g.Width : (y+1)*g.Width]
	out := make([]float64, len(row))
	for x, s := range row {
		out[x] = Darkness(s)
	}
	return out
}

// MeanDarkness returns the average darkness over the whole grid, or 0 for
// an empty grid. Only one row of darkness values is held at a time.
func (g *Grid) MeanDarkness() float64 {
	if g.Width == 0 || g.Height == 0 {
		return 0
	}
	means := make([]float64, g.Height)
	for y := range g.Height {
		means[y] = stat.Mean(g.DarknessRow(y), nil)
	}
	// Rows have equal width, so the mean of row means is the grid mean.
	return stat.Mean(means, nil)
}

// DefaultMaxPixels is the decode budget applied unless WithMaxPixels
// overrides it.
const DefaultMaxPixels = 1 << 26

// Option configures image conversion.
type Option func(*options)

type options struct {
	maxWidth  int
	maxPixels int
}

func newOptions(opts []Option) options {
	o := options{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxPixels rejects images whose header declares more than n pixels,
// before any pixel data is allocated. Zero or less disables the check.
func WithMaxPixels(n int) Option {
	return func(o *options) { o.maxPixels = n }
}

// WithMaxWidth downscales images wider than n pixels, preserving aspect
// ratio. Zero disables resizing.
func WithMaxWidth(n int) Option {
	return func(o *options) { o.maxWidth = n }
}

// FromImage converts any image to a luma grid.
func FromImage(img image.Image, opts ...Option) *Grid {
	o := newOptions(opts)

	src := img
	if b := img.Bounds(); o.maxWidth > 0 && b.Dx() > o.maxWidth {
		h := max(1, b.Dy()*o.maxWidth/b.Dx())
		scaled := image.NewGray(image.Rect(0, 0, o.maxWidth, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		src = scaled
	}

	gray, ok := src.(*image.Gray)
	if !ok {
		b := src.Bounds()
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	}

	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, 0, w*h)
	for y := 0; y < h; y++ {
		off := gray.PixOffset(b.Min.X, b.Min.Y+y)
		pix = append(pix, gray.Pix[off:off+w]...)
	}
	return &Grid{Width: w, Height: h, pix: pix}
}
