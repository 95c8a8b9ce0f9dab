package event

import (
	"log/slog"
	"runtime/debug"
	"time"
)

// PanicHandler is called when a callback panics.
type PanicHandler func(err *PanicError)

// result records the outcome of one callback invocation.
type result struct {
	keep     bool
	panicked *PanicError
	duration time.Duration
}

// executor runs callbacks with panic recovery and timing.
type executor struct {
	logger       *slog.Logger
	panicHandler PanicHandler
}

// run invokes the callback of s and recovers from panics. A panicking
// callback never keeps its source.
func (e *executor) run(s *source, fn func() bool) (res result) {
	start := time.Now()

	defer func() {
		res.duration = time.Since(start)

		if r := recover(); r != nil {
			res.keep = false
			res.panicked = &PanicError{
				Source: s.id,
				Kind:   s.kind,
				Value:  r,
				Stack:  debug.Stack(),
			}

			e.logger.Warn("event callback panicked",
				"source", uint64(s.id),
				"kind", s.kind.String(),
				"panic", r,
			)

			// Protect the panic handler call; it must not crash the loop.
			if e.panicHandler != nil {
				func() {
					defer func() {
						_ = recover()
					}()
					e.panicHandler(res.panicked)
				}()
			}
		}
	}()

	res.keep = fn()
	return res
}
