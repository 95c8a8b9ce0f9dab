// Package event provides a single-threaded cooperative event loop.
//
// A Loop multiplexes three kinds of wait sources: file descriptors that
// became readable, file descriptors that became writable, and timers.
// Callbacks run to completion on the goroutine that called Loop; a slow
// callback stalls the whole loop.
//
// # Basic Usage
//
//	loop := event.New(event.WithLogger(logger))
//	defer loop.Close()
//
//	loop.RegisterTimeout(time.Second, func() bool {
//	    fmt.Println("tick")
//	    return true // stay registered
//	})
//	loop.RegisterRead(fd, func(fd int) bool {
//	    return handleInput(fd)
//	})
//
//	if err := loop.Loop(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Iterations
//
// Each iteration computes the time until the soonest timer deadline,
// blocks in the poller on every registered descriptor for at most that long,
// then dispatches each ready source exactly once:
//
//  1. due timers, by deadline then registration order
//  2. readable descriptors, by registration order
//  3. writable descriptors, by registration order
//
// Timers are periodic. A timer whose callback returns true is re-armed at
// the time it fired plus its interval; an idle callback is a timer with a
// zero interval and runs on every iteration.
//
// Loop returns nil when Quit was called or when no source is left, and
// ctx.Err() when the context is cancelled.
//
// # Registration During Dispatch
//
// Sources registered from a callback are first considered on the next
// iteration. A source unregistered from a callback is never called again,
// including later in the same pass.
//
// # Panics
//
// A panicking callback is recovered, its source removed, the panic counted
// in Stats and reported to the panic handler (see WithPanicHandler).
//
// # Thread Safety
//
// A Loop has a single owner. Registration and unregistration must happen on
// the goroutine running the loop (typically from callbacks) or while the
// loop is stopped. Quit, Running and Stats are safe from any goroutine.
package event
