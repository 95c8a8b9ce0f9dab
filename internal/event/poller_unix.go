//go:build unix

package event

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const fdSupported = true

// pollPoller waits with poll(2). A self-pipe lets other goroutines wake a
// blocked wait.
type pollPoller struct {
	mu     sync.Mutex
	pipe   [2]int
	closed bool

	fds []unix.PollFd
}

func newPoller() (poller, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("event: wake pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("event: wake pipe: %w", err)
		}
	}
	return &pollPoller{pipe: p}, nil
}

func (p *pollPoller) wait(reads, writes []int, timeout time.Duration) (readiness, error) {
	p.fds = p.fds[:0]
	p.fds = append(p.fds, unix.PollFd{Fd: int32(p.pipe[0]), Events: unix.POLLIN})

	index := make(map[int]int, len(reads)+len(writes))
	add := func(fd int, events int16) {
		if i, ok := index[fd]; ok {
			p.fds[i].Events |= events
			return
		}
		index[fd] = len(p.fds)
		p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: events})
	}
	for _, fd := range reads {
		add(fd, unix.POLLIN)
	}
	for _, fd := range writes {
		add(fd, unix.POLLOUT)
	}

	ready := readiness{read: make(map[int]bool), write: make(map[int]bool)}

	n, err := unix.Poll(p.fds, pollTimeout(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return ready, nil
		}
		return ready, fmt.Errorf("event: poll: %w", err)
	}
	if n == 0 {
		return ready, nil
	}

	if p.fds[0].Revents != 0 {
		p.drain()
	}
	for _, pfd := range p.fds[1:] {
		if pfd.Revents == 0 {
			continue
		}
		fd := int(pfd.Fd)
		if pfd.Revents&unix.POLLNVAL != 0 {
			return ready, fmt.Errorf("event: poll: fd %d: %w", fd, ErrInvalidFD)
		}
		hup := pfd.Revents&(unix.POLLHUP|unix.POLLERR) != 0
		if pfd.Events&unix.POLLIN != 0 && (pfd.Revents&unix.POLLIN != 0 || hup) {
			ready.read[fd] = true
		}
		if pfd.Events&unix.POLLOUT != 0 && (pfd.Revents&unix.POLLOUT != 0 || hup) {
			ready.write[fd] = true
		}
	}
	return ready, nil
}

func (p *pollPoller) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.pipe[0], buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (p *pollPoller) wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// A full pipe already guarantees a wakeup.
	_, _ = unix.Write(p.pipe[1], []byte{0})
}

func (p *pollPoller) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return errors.Join(unix.Close(p.pipe[0]), unix.Close(p.pipe[1]))
}
