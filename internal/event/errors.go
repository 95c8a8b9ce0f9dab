package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event loop.
var (
	// ErrLoopRunning is returned when Loop is called while the loop runs.
	ErrLoopRunning = errors.New("event loop is already running")

	// ErrInvalidFD is returned when registering a negative file descriptor.
	ErrInvalidFD = errors.New("invalid file descriptor")

	// ErrInvalidTimeout is returned when registering a negative timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrNilCallback is returned when a nil callback is provided.
	ErrNilCallback = errors.New("callback cannot be nil")

	// ErrUnsupported is returned when registering file descriptor sources on
	// a platform without a poller.
	ErrUnsupported = errors.New("file descriptor sources are not supported on this platform")

	// ErrCallbackPanic is matched by every *PanicError.
	ErrCallbackPanic = errors.New("callback panicked")
)

// PanicError wraps a panic value recovered from a callback.
type PanicError struct {
	// Source is the ID of the source whose callback panicked.
	Source SourceID

	// Kind is the kind of the source.
	Kind Kind

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%s callback of source %d panicked: %v", e.Kind, e.Source, e.Value)
}

// Is allows errors.Is to match PanicError with ErrCallbackPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrCallbackPanic
}
