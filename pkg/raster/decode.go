package raster

import (
	"bytes"
	"image"
	"io"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/polargraph/pkg/errors"
)

// Decode reads an image in any registered format and converts it to a grid.
func Decode(r io.Reader, opts ...Option) (*Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "read image")
	}
	return DecodeBytes(data, opts...)
}

// DecodeBytes decodes an in-memory image. The header is checked against the
// pixel budget before the pixels are decoded.
func DecodeBytes(data []byte, opts ...Option) (*Grid, error) {
	o := newOptions(opts)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New(errors.ErrCodeDecode, "%s image has no pixels", format)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); o.maxPixels > 0 && px > int64(o.maxPixels) {
		return nil, errors.New(errors.ErrCodeDecode,
			"%s image is %dx%d, over the limit of %d pixels", format, cfg.Width, cfg.Height, o.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode image")
	}
	if img.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeDecode, "%s image has no pixels", format)
	}
	return FromImage(img, opts...), nil
}

// Load opens and decodes the image at path.
func Load(path string, opts ...Option) (*Grid, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := DecodeBytes(data, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "load %s", path)
	}
	return g, nil
}

// ReadFile reads an input image file, classifying failures as input errors.
func ReadFile(path string) ([]byte, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "input file does not exist: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return data, nil
}
