package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds every DoFile, DoString and Call.
const DefaultExecutionTimeout = 5 * time.Second

// removedGlobals are base functions that load code from outside the state.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring"}

// State wraps a restricted gopher-lua state. It is safe for concurrent use.
type State struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the execution timeout. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// NewState creates a restricted Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		L.Push(L.NewFunction(open))
		if err := L.PCall(0, 0, nil); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library: %w", err)
		}
	}
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	s.L = L
	return s, nil
}

// DoFile executes the script at path.
func (s *State) DoFile(path string) error {
	return s.exec(func() error { return s.L.DoFile(path) })
}

// DoString executes code.
func (s *State) DoString(code string) error {
	return s.exec(func() error { return s.L.DoString(code) })
}

// Call calls the global function name with args and returns its results
// converted with ToGo.
func (s *State) Call(name string, args ...any) ([]any, error) {
	var results []any
	err := s.exec(func() error {
		fn := s.L.GetGlobal(name)
		switch fn.Type() {
		case lua.LTNil:
			return fmt.Errorf("%w: %q", ErrUndefined, name)
		case lua.LTFunction:
		default:
			return fmt.Errorf("%w: %q is a %s", ErrNotFunction, name, fn.Type())
		}

		top := s.L.GetTop()
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(ToLua(s.L, arg))
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		n := s.L.GetTop() - top
		results = make([]any, n)
		for i := range n {
			results[i] = ToGo(s.L.Get(top + i + 1))
		}
		s.L.Pop(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// exec runs fn under the lock with the execution timeout installed.
func (s *State) exec(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		s.L.SetContext(ctx)
		defer func() {
			s.L.RemoveContext()
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", ErrExecutionTimeout, err)
			}
			cancel()
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Global returns the value of the global name converted with ToGo. The
// boolean is false when the global is nil.
func (s *State) Global(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	v := s.L.GetGlobal(name)
	if v == lua.LNil {
		return nil, false
	}
	return ToGo(v), true
}

// IsFunction reports whether the global name is a function.
func (s *State) IsFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// SetGlobal sets the global name to v converted with ToLua.
func (s *State) SetGlobal(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	s.L.SetGlobal(name, ToLua(s.L, v))
	return nil
}

// IsClosed reports whether Close has been called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. It is safe to call more than once.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
