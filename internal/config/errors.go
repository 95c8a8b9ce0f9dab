package config

import (
	"errors"
	"fmt"

	"github.com/DeforaOS/libSystem/internal/config/keyfile"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidName indicates a section or variable name that cannot be stored.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidValue indicates a value that cannot be stored.
	ErrInvalidValue = errors.New("invalid value")

	// ErrParse is matched by every *ParseError.
	ErrParse = keyfile.ErrSyntax

	// ErrIO is matched by every *IOError.
	ErrIO = errors.New("i/o error")

	// ErrUnknownFormat indicates an unsupported export or import format.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrConflict indicates a default-section variable and a section share a
	// name, which nested formats cannot represent.
	ErrConflict = errors.New("name conflict")
)

// ParseError represents an error while parsing a configuration file.
type ParseError = keyfile.ParseError

// IOError wraps a failure to open, read or write a configuration file.
type IOError struct {
	// Op is the failed operation ("read" or "write").
	Op string
	// Path is the file path.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("config: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
