package keyfile

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every ParseError.
var ErrSyntax = errors.New("syntax error")

// ParseError represents an error while parsing a key-file.
type ParseError struct {
	// Path is the file path (or reader name) that failed to parse.
	Path string
	// Line is the 1-based line number where the error occurred (if available).
	Line int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSyntax.
func (e *ParseError) Is(target error) bool {
	return target == ErrSyntax
}
