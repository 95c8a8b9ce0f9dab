//go:build !unix

package event

import (
	"time"
)

const fdSupported = false

// timerPoller only supports timers. Descriptor sources are refused at
// registration with ErrUnsupported.
type timerPoller struct {
	wakeup chan struct{}
}

func newPoller() (poller, error) {
	return &timerPoller{wakeup: make(chan struct{}, 1)}, nil
}

func (p *timerPoller) wait(_, _ []int, timeout time.Duration) (readiness, error) {
	if timeout < 0 {
		<-p.wakeup
		return readiness{}, nil
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.wakeup:
	}
	return readiness{}, nil
}

func (p *timerPoller) wake() {
	select {
	case p.wakeup <- struct{}{}:
	default:
	}
}

func (p *timerPoller) close() error {
	return nil
}
