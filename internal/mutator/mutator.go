package mutator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/DeforaOS/libSystem/internal/logging"
)

// ResolveFunc computes the value of a key.
type ResolveFunc[V any] func(ctx context.Context, key string) (V, error)

// Mutator is a memoizing key to value resolver. It is safe for concurrent
// use.
type Mutator[V any] struct {
	mu     sync.RWMutex
	values map[string]V
	keys   []string

	resolve ResolveFunc[V]
	group   singleflight.Group
	logger  *slog.Logger

	hits     atomic.Uint64
	misses   atomic.Uint64
	resolved atomic.Uint64
	failed   atomic.Uint64
}

// Option configures a Mutator.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report resolutions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates an empty Mutator. resolve may be nil, in which case only
// values stored with Set can be retrieved.
func New[V any](resolve ResolveFunc[V], opts ...Option) *Mutator[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Mutator[V]{
		values:  make(map[string]V),
		resolve: resolve,
		logger:  logging.OrNop(o.logger),
	}
}

// Get returns the value of key, resolving and caching it on first use.
//
// Concurrent calls for the same missing key share one resolution, run with
// the context of the first caller.
func (m *Mutator[V]) Get(ctx context.Context, key string) (V, error) {
	if v, ok := m.Lookup(key); ok {
		m.hits.Add(1)
		return v, nil
	}
	m.misses.Add(1)

	if m.resolve == nil {
		var zero V
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// Another caller may have finished between Lookup and Do.
		if v, ok := m.Lookup(key); ok {
			return v, nil
		}

		v, err := m.resolve(ctx, key)
		if err != nil {
			m.failed.Add(1)
			m.logger.Debug("mutator resolution failed", "key", key, "error", err)
			return nil, &ResolveError{Key: key, Err: err}
		}

		m.resolved.Add(1)
		m.logger.Debug("mutator resolved key", "key", key)
		return m.store(key, v), nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	// A nil interface value does not assert to V.
	res, _ := v.(V)
	return res, nil
}

// store caches v unless a value is already present, and returns the value
// that ends up cached.
func (m *Mutator[V]) store(key string, v V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.values[key]; ok {
		return existing
	}
	m.values[key] = v
	m.keys = append(m.keys, key)
	return v
}

// Lookup returns the cached value of key without resolving it.
func (m *Mutator[V]) Lookup(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value for key unless key already has a value. It reports
// whether the value was stored.
func (m *Mutator[V]) Set(key string, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.values[key]; ok {
		return false
	}
	m.values[key] = value
	m.keys = append(m.keys, key)
	return true
}

// Len returns the number of cached values.
func (m *Mutator[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Keys returns the cached keys in the order they were stored.
func (m *Mutator[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.keys...)
}

// Foreach calls fn for every cached value in the order keys were stored,
// until fn returns false. fn runs without the lock held.
func (m *Mutator[V]) Foreach(fn func(key string, value V) bool) {
	m.mu.RLock()
	keys := append([]string(nil), m.keys...)
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = m.values[k]
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if !fn(k, values[i]) {
			return
		}
	}
}

// Stats contains cache statistics.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Resolved uint64
	Failed   uint64
}

// Stats returns a snapshot of the cache statistics.
func (m *Mutator[V]) Stats() Stats {
	return Stats{
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Resolved: m.resolved.Load(),
		Failed:   m.failed.Load(),
	}
}
