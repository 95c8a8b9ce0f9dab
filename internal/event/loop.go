package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeforaOS/libSystem/internal/logging"
)

// Loop is a cooperative event loop. See the package documentation for the
// dispatch order.
type Loop struct {
	sources []*source
	nextID  SourceID

	pmu    sync.Mutex
	poller poller

	// qmu orders Quit against the exit of Loop so that quit is never
	// set while the loop is idle.
	qmu     sync.Mutex
	running atomic.Bool
	quit    atomic.Bool

	now      func() time.Time
	logger   *slog.Logger
	executor executor
	stats    counters
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger of the loop.
func WithLogger(l *slog.Logger) Option {
	return func(loop *Loop) {
		loop.logger = logging.OrNop(l)
	}
}

// WithPanicHandler sets a function called after a callback panicked.
func WithPanicHandler(h PanicHandler) Option {
	return func(loop *Loop) {
		loop.executor.panicHandler = h
	}
}

// New creates an idle loop without sources.
func New(opts ...Option) *Loop {
	l := &Loop{
		now:    time.Now,
		logger: logging.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}
	l.executor.logger = l.logger

	return l
}

// RegisterRead registers fn to be called whenever fd is readable.
func (l *Loop) RegisterRead(fd int, fn IOFunc) (SourceID, error) {
	return l.registerIO(KindRead, fd, fn)
}

// RegisterWrite registers fn to be called whenever fd is writable.
func (l *Loop) RegisterWrite(fd int, fn IOFunc) (SourceID, error) {
	return l.registerIO(KindWrite, fd, fn)
}

func (l *Loop) registerIO(kind Kind, fd int, fn IOFunc) (SourceID, error) {
	if fd < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFD, fd)
	}
	if fn == nil {
		return 0, ErrNilCallback
	}
	if !fdSupported {
		return 0, ErrUnsupported
	}
	return l.add(&source{kind: kind, fd: fd, io: fn}), nil
}

// RegisterTimeout registers fn to be called every d. The first call happens
// d after registration.
func (l *Loop) RegisterTimeout(d time.Duration, fn TimeoutFunc) (SourceID, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
	}
	if fn == nil {
		return 0, ErrNilCallback
	}
	return l.add(&source{
		kind:     KindTimeout,
		timeout:  fn,
		interval: d,
		deadline: l.now().Add(d),
	}), nil
}

// RegisterIdle registers fn to be called on every iteration. It is a
// timeout of zero.
func (l *Loop) RegisterIdle(fn TimeoutFunc) (SourceID, error) {
	return l.RegisterTimeout(0, fn)
}

func (l *Loop) add(s *source) SourceID {
	l.nextID++
	s.id = l.nextID
	l.sources = append(l.sources, s)
	l.stats.sources.Add(1)

	l.logger.Debug("event source registered", "source", uint64(s.id), "kind", s.kind.String(), "fd", s.fd)
	return s.id
}

// Unregister removes the source id. It reports whether the source was
// registered.
func (l *Loop) Unregister(id SourceID) bool {
	for _, s := range l.sources {
		if s.id == id && !s.removed {
			l.remove(s)
			return true
		}
	}
	return false
}

// UnregisterRead removes every read source of fd and returns how many were
// removed.
func (l *Loop) UnregisterRead(fd int) int {
	return l.unregisterFD(KindRead, fd)
}

// UnregisterWrite removes every write source of fd and returns how many
// were removed.
func (l *Loop) UnregisterWrite(fd int) int {
	return l.unregisterFD(KindWrite, fd)
}

func (l *Loop) unregisterFD(kind Kind, fd int) int {
	n := 0
	for _, s := range l.sources {
		if s.kind == kind && s.fd == fd && !s.removed {
			l.remove(s)
			n++
		}
	}
	return n
}

// remove marks s removed. Removed sources are dropped from the slice at the
// start of the next iteration so that a dispatch in progress can skip them.
func (l *Loop) remove(s *source) {
	s.removed = true
	l.stats.sources.Add(-1)
	l.logger.Debug("event source removed", "source", uint64(s.id), "kind", s.kind.String())
}

func (l *Loop) compact() {
	kept := l.sources[:0]
	for _, s := range l.sources {
		if !s.removed {
			kept = append(kept, s)
		}
	}
	clear(l.sources[len(kept):])
	l.sources = kept
}

// Len returns the number of registered sources.
func (l *Loop) Len() int {
	n := 0
	for _, s := range l.sources {
		if !s.removed {
			n++
		}
	}
	return n
}

// Running reports whether Loop is executing. Safe from any goroutine.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Stats returns a snapshot of the loop statistics. Safe from any goroutine.
func (l *Loop) Stats() Stats {
	return l.stats.snapshot()
}

// Quit asks a running loop to return. The request is honored no later than
// the end of the current iteration. Safe from callbacks and from any
// goroutine; calling it while the loop is idle has no effect.
func (l *Loop) Quit() {
	l.qmu.Lock()
	if !l.running.Load() {
		l.qmu.Unlock()
		return
	}
	l.quit.Store(true)
	l.qmu.Unlock()
	l.wake()
}

func (l *Loop) wake() {
	l.pmu.Lock()
	p := l.poller
	l.pmu.Unlock()
	if p != nil {
		p.wake()
	}
}

func (l *Loop) getPoller() (poller, error) {
	l.pmu.Lock()
	defer l.pmu.Unlock()
	if l.poller == nil {
		p, err := newPoller()
		if err != nil {
			return nil, err
		}
		l.poller = p
	}
	return l.poller, nil
}

// Loop runs the loop until Quit is called, no source is left or ctx is
// cancelled. It returns ErrLoopRunning if the loop is already running.
// A nil ctx is treated as context.Background.
func (l *Loop) Loop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer func() {
		l.qmu.Lock()
		l.quit.Store(false)
		l.running.Store(false)
		l.qmu.Unlock()
	}()

	p, err := l.getPoller()
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, l.wake)
	defer stop()

	for {
		if l.quit.Load() {
			l.logger.Debug("event loop quit")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		l.compact()
		if len(l.sources) == 0 {
			l.logger.Debug("event loop has no sources left")
			return nil
		}

		if err := l.iterate(p); err != nil {
			return err
		}
	}
}

// iterate waits once and dispatches every ready source.
func (l *Loop) iterate(p poller) error {
	var reads, writes []int
	for _, s := range l.sources {
		switch s.kind {
		case KindRead:
			reads = append(reads, s.fd)
		case KindWrite:
			writes = append(writes, s.fd)
		}
	}

	wait := nextWait(l.sources, l.now())
	ready, err := p.wait(reads, writes, wait)
	if err != nil {
		return err
	}
	l.stats.iterations.Add(1)

	if l.quit.Load() {
		return nil
	}

	// Sources registered by callbacks wait for the next iteration.
	pass := append([]*source(nil), l.sources...)
	now := l.now()

	for _, s := range dueTimers(pass, now) {
		if s.removed {
			continue
		}
		res := l.dispatch(s, s.timeout)
		if res.keep && !s.removed {
			s.deadline = now.Add(s.interval)
		}
	}

	for _, s := range pass {
		if s.kind == KindRead && !s.removed && ready.readable(s.fd) {
			l.dispatch(s, func() bool { return s.io(s.fd) })
		}
	}
	for _, s := range pass {
		if s.kind == KindWrite && !s.removed && ready.writable(s.fd) {
			l.dispatch(s, func() bool { return s.io(s.fd) })
		}
	}

	return nil
}

func (l *Loop) dispatch(s *source, fn func() bool) result {
	res := l.executor.run(s, fn)
	l.stats.record(res)

	if !res.keep && !s.removed {
		l.remove(s)
		l.stats.removed.Add(1)
	}
	return res
}

// Close drops every source and releases the poller. The loop can be used
// again afterwards. Close must not be called while Loop runs.
func (l *Loop) Close() error {
	for _, s := range l.sources {
		if !s.removed {
			l.remove(s)
		}
	}
	l.sources = nil

	l.pmu.Lock()
	p := l.poller
	l.poller = nil
	l.pmu.Unlock()

	if p != nil {
		return p.close()
	}
	return nil
}
