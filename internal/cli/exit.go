// Package cli implements the configctl and pluginctl command-line tools.
package cli

import (
	"errors"
	"fmt"
)

// Exit codes of the tools.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a queried key or symbol is absent
	ExitCommandError = 2 // bad usage, unreadable file, load failure
)

// ExitError carries the exit status of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message == "":
		return fmt.Sprint(e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func commandError(message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: message, Err: err}
}

// errAbsent reports absent keys or symbols without a message.
var errAbsent = &ExitError{Code: ExitFailure}

// ExitCode returns the exit status for err. Errors that are not an
// ExitError, such as flag parsing errors, map to ExitCommandError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Silent reports whether err should be returned without a message.
func Silent(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Message == "" && exitErr.Err == nil
}
