package event

import (
	"sync/atomic"
	"time"
)

// Stats contains loop statistics.
type Stats struct {
	// Iterations is the number of completed poller waits.
	Iterations uint64

	// Dispatched is the number of callbacks invoked.
	Dispatched uint64

	// Panicked is the number of callbacks that panicked.
	Panicked uint64

	// Removed is the number of sources removed because their callback
	// returned false or panicked.
	Removed uint64

	// Sources is the number of currently registered sources.
	Sources int64

	// CallbackTime is the total time spent in callbacks.
	CallbackTime time.Duration
}

// AverageCallbackTime returns the average callback duration.
func (s Stats) AverageCallbackTime() time.Duration {
	if s.Dispatched == 0 {
		return 0
	}
	return s.CallbackTime / time.Duration(s.Dispatched)
}

type counters struct {
	iterations  atomic.Uint64
	dispatched  atomic.Uint64
	panicked    atomic.Uint64
	removed     atomic.Uint64
	sources     atomic.Int64
	totalTimeNs atomic.Int64
}

func (c *counters) record(res result) {
	c.dispatched.Add(1)
	c.totalTimeNs.Add(int64(res.duration))
	if res.panicked != nil {
		c.panicked.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Iterations:   c.iterations.Load(),
		Dispatched:   c.dispatched.Load(),
		Panicked:     c.panicked.Load(),
		Removed:      c.removed.Load(),
		Sources:      c.sources.Load(),
		CallbackTime: time.Duration(c.totalTimeNs.Load()),
	}
}
