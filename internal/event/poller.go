package event

import "time"

// poller blocks until a descriptor is ready, the timeout expires or wake is
// called.
type poller interface {
	// wait blocks for at most timeout (forever when negative).
	wait(reads, writes []int, timeout time.Duration) (readiness, error)

	// wake interrupts a blocked wait. Safe from any goroutine.
	wake()

	close() error
}

// readiness is the set of descriptors reported ready by a wait.
type readiness struct {
	read  map[int]bool
	write map[int]bool
}

func (r readiness) readable(fd int) bool {
	return r.read[fd]
}

func (r readiness) writable(fd int) bool {
	return r.write[fd]
}

// pollTimeout converts a wait duration to poll(2) milliseconds, rounding up
// so that a timer is never woken before its deadline.
func pollTimeout(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > 1<<31-1 {
		return 1<<31 - 1
	}
	return int(ms)
}
