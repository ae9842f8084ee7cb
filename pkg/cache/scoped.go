package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments, or several
// versions of the converter, can share one backend without seeing each
// other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "polargraph:v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DocumentKey generates a prefixed document key.
func (k *ScopedKeyer) DocumentKey(imageHash string, opts DocumentKeyOpts) string {
	return k.prefix + k.inner.DocumentKey(imageHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(documentKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(documentKey, opts)
}
