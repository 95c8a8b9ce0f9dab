// Package mutator provides a write-once-read-many lazy value cache.
//
// A Mutator maps string keys to values computed on first use by a
// resolution function supplied at construction:
//
//	m := mutator.New(func(ctx context.Context, key string) (*Theme, error) {
//	    return loadTheme(ctx, key)
//	})
//	theme, err := m.Get(ctx, "dark")
//
// A key is resolved at most once: later calls return the cached value
// without invoking the resolver. A failed resolution is returned to the
// caller and not cached, so a later Get retries. Concurrent Gets for a
// missing key share a single resolution.
//
// Values are never evicted. The cache lives as long as the Mutator.
package mutator
