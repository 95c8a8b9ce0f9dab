package mutator

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for a missing key when the Mutator has no
// resolver.
var ErrNotFound = errors.New("key not found")

// ResolveError wraps a resolver failure.
type ResolveError struct {
	// Key is the key that failed to resolve.
	Key string

	// Err is the error returned by the resolver.
	Err error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("mutator: resolving %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Err
}
