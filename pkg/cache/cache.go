// Package cache stores conversion results keyed by image content and
// parameters.
//
// # Backends
//
//   - [FileCache]: JSON entries on disk, used by the CLI
//   - [RedisCache]: a shared Redis instance, used by the HTTP server
//   - [NullCache]: stores nothing, used by --no-cache and tests
//
// # Keys
//
// A [Keyer] derives keys from the SHA-256 of the input image ([Hash]) and the
// options that influence the result. Documents depend on the synthesis and
// clearance parameters only; artifacts additionally depend on the output
// format and its render options. [ScopedKeyer] prefixes every key, which lets
// several deployments share one Redis database.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Entry lifetimes. Conversions are pure functions of image and options, so
// entries only expire to bound storage.
const (
	TTLDocument = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// DocumentKeyOpts are the options that change a converted document.
type DocumentKeyOpts struct {
	LineSpacing       float64 `json:"line_spacing"`
	AmplitudeScale    float64 `json:"amplitude_scale"`
	DarknessThreshold float64 `json:"darkness_threshold"`
	MinClearance      float64 `json:"min_clearance"`
	Segmented         bool    `json:"segmented"`
	Organic           bool    `json:"organic"`
	Seed              uint64  `json:"seed"`
	MaxWidth          int     `json:"max_width"`
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	StrokeWidth float64 `json:"stroke_width"`
}

// Keyer derives cache keys.
type Keyer interface {
	// DocumentKey returns the key of the document converted from the image
	// with the given hash.
	DocumentKey(imageHash string, opts DocumentKeyOpts) string

	// ArtifactKey returns the key of one rendered format of a document.
	ArtifactKey(documentKey string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DocumentKey implements [Keyer].
func (DefaultKeyer) DocumentKey(imageHash string, opts DocumentKeyOpts) string {
	return hashKey("doc", imageHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(documentKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", documentKey, opts)
}
