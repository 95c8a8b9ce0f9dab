package event

import (
	"slices"
	"time"
)

// SourceID identifies a registered source. IDs increase with registration
// order and are never reused by a Loop.
type SourceID uint64

// Kind is the kind of a wait source.
type Kind int

const (
	// KindTimeout is a timer or idle source.
	KindTimeout Kind = iota

	// KindRead is a readable file descriptor source.
	KindRead

	// KindWrite is a writable file descriptor source.
	KindWrite
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// IOFunc is called when a file descriptor is ready. Returning false
// unregisters the source.
type IOFunc func(fd int) bool

// TimeoutFunc is called when a timer expires. Returning false unregisters
// the source.
type TimeoutFunc func() bool

type source struct {
	id   SourceID
	kind Kind

	fd int
	io IOFunc

	timeout  TimeoutFunc
	interval time.Duration
	deadline time.Time

	removed bool
}

// dueTimers returns the timers whose deadline is not after now, ordered by
// deadline then registration.
func dueTimers(sources []*source, now time.Time) []*source {
	var due []*source
	for _, s := range sources {
		if s.kind == KindTimeout && !s.removed && !s.deadline.After(now) {
			due = append(due, s)
		}
	}
	slices.SortStableFunc(due, func(a, b *source) int {
		if c := a.deadline.Compare(b.deadline); c != 0 {
			return c
		}
		if a.id < b.id {
			return -1
		}
		return 1
	})
	return due
}

// nextWait returns how long to wait for the soonest timer, or -1 when no
// timer is registered.
func nextWait(sources []*source, now time.Time) time.Duration {
	wait := time.Duration(-1)
	for _, s := range sources {
		if s.kind != KindTimeout || s.removed {
			continue
		}
		d := max(s.deadline.Sub(now), 0)
		if wait < 0 || d < wait {
			wait = d
		}
	}
	return wait
}
