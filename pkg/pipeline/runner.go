package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/polargraph/pkg/cache"
	"github.com/matzehuels/polargraph/pkg/drawing"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/observability"
	"github.com/matzehuels/polargraph/pkg/raster"
)

// Input is an encoded image to convert.
type Input struct {
	// Data holds the encoded image (PNG, JPEG, GIF, BMP, TIFF or WebP).
	Data []byte

	// Name identifies the input in logs, typically the file name.
	Name string
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger, so multiple
// goroutines can safely share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// convertEntry is the cached form of a conversion.
type convertEntry struct {
	Document *drawing.Document `json:"document"`
	Stats    Stats             `json:"stats"`
}

// Execute runs the complete decode → convert → render pipeline with caching.
// Options are validated before the image is decoded.
func (r *Runner) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty image")
	}

	result := &Result{ImageHash: cache.Hash(in.Data)}
	docKey := r.Keyer.DocumentKey(result.ImageHash, opts.DocumentKeyOpts())

	doc, stats, hit, err := r.convertWithCache(ctx, docKey, in, opts)
	if err != nil {
		return nil, err
	}
	result.Document, result.Stats, result.CacheInfo.ConvertHit = doc, stats, hit

	r.Logger.Info("converted image",
		"input", in.Name,
		"size", formatSize(stats.Width, stats.Height),
		"rows", stats.TotalRows,
		"adjusted", stats.AdjustedRows,
		"polylines", stats.Polylines,
		"cached", hit)

	artifacts, renderHit, err := r.renderWithCache(ctx, docKey, doc, stats, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts, result.CacheInfo.RenderHit = artifacts, renderHit

	return result, nil
}

func (r *Runner) convertWithCache(ctx context.Context, key string, in Input, opts Options) (*drawing.Document, Stats, bool, error) {
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var e convertEntry
			if err := json.Unmarshal(data, &e); err == nil && e.Document != nil {
				observability.Cache().OnCacheHit(ctx, "document")
				return e.Document, e.Stats, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("cache read failed", "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, "document")
	}

	grid, err := r.decode(ctx, in, opts)
	if err != nil {
		return nil, Stats{}, false, err
	}

	doc, stats, err := Convert(ctx, grid, opts)
	if err != nil {
		return nil, Stats{}, false, err
	}

	if data, err := json.Marshal(convertEntry{Document: doc, Stats: stats}); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLDocument); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "document", len(data))
		}
	}
	return doc, stats, false, nil
}

func (r *Runner) decode(ctx context.Context, in Input, opts Options) (*raster.Grid, error) {
	start := time.Now()
	observability.Pipeline().OnDecodeStart(ctx, len(in.Data))

	grid, err := raster.DecodeBytes(in.Data, raster.WithMaxWidth(opts.MaxWidth))
	if err != nil {
		observability.Pipeline().OnDecodeComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	observability.Pipeline().OnDecodeComplete(ctx, grid.Width, grid.Height, time.Since(start), nil)

	r.Logger.Debug("decoded image", "input", in.Name, "size", formatSize(grid.Width, grid.Height))
	return grid, nil
}

func (r *Runner) renderWithCache(ctx context.Context, docKey string, doc *drawing.Document, stats Stats, opts Options) (map[string][]byte, bool, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(docKey, opts.ArtifactKeyOpts(format)))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := Render(doc, stats, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(docKey, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func formatSize(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
