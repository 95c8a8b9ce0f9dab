package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLoad is the category of every LoadError.
	ErrLoad = errors.New("plugin load failed")

	// ErrModuleNotFound is returned when no candidate file exists.
	ErrModuleNotFound = errors.New("module not found")

	// ErrInvalidName is returned for empty names or names escaping the
	// search directories.
	ErrInvalidName = errors.New("invalid module name")

	// ErrUnsupported is returned when the platform cannot open the module.
	ErrUnsupported = errors.New("module format not supported")
)

// LoadError describes a module that could not be resolved or opened.
type LoadError struct {
	Name  string
	Path  string   // resolved path, empty if resolution failed
	Tried []string // candidates examined during resolution
	Err   error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plugin %q", e.Name)
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if len(e.Tried) > 0 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(e.Tried, ", "))
	}
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports ErrLoad as a match.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}
