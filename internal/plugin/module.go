package plugin

import (
	"log/slog"
	"sync"
)

// Symbol is the value exported under a symbol name. Native modules return
// pointers to variables and functions, Lua modules return LuaFunc values
// and converted globals.
type Symbol = any

// Symbols is the symbol table of a static module.
type Symbols map[string]Symbol

// Module is an opened module backend.
type Module interface {
	// Lookup returns the symbol named name. It reports false when the
	// module does not export it.
	Lookup(name string) (Symbol, bool)

	// Close releases the module.
	Close() error
}

// Opener opens the module file at path.
type Opener interface {
	Open(path string) (Module, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Module, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Module, error) {
	return f(path)
}

// Plugin is an opened module.
type Plugin struct {
	name   string
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	mod Module
}

func newPlugin(name, path string, mod Module, logger *slog.Logger) *Plugin {
	return &Plugin{name: name, path: path, mod: mod, logger: logger}
}

// Name returns the name the plugin was opened with.
func (p *Plugin) Name() string {
	return p.name
}

// Path returns the file the plugin was opened from, or "" for static
// modules.
func (p *Plugin) Path() string {
	return p.path
}

// Lookup returns the symbol named symbol. A missing symbol reports false
// and leaves the plugin open. After Close, Lookup always reports false.
func (p *Plugin) Lookup(symbol string) (Symbol, bool) {
	if symbol == "" {
		return nil, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.mod == nil {
		return nil, false
	}
	return p.mod.Lookup(symbol)
}

// Closed reports whether Close has been called.
func (p *Plugin) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mod == nil
}

// Close releases the module. Failures are logged. Calling Close more than
// once has no effect.
func (p *Plugin) Close() {
	p.mu.Lock()
	mod := p.mod
	p.mod = nil
	p.mu.Unlock()

	if mod == nil {
		return
	}
	if err := mod.Close(); err != nil {
		p.logger.Warn("plugin close failed", "name", p.name, "path", p.path, "error", err)
		return
	}
	p.logger.Debug("plugin closed", "name", p.name)
}

type staticModule Symbols

func (m staticModule) Lookup(name string) (Symbol, bool) {
	s, ok := m[name]
	return s, ok
}

func (staticModule) Close() error {
	return nil
}

// selfModule searches the registered static modules in registration order.
type selfModule struct {
	modules []staticModule
}

func (m selfModule) Lookup(name string) (Symbol, bool) {
	for _, mod := range m.modules {
		if s, ok := mod[name]; ok {
			return s, true
		}
	}
	return nil, false
}

func (selfModule) Close() error {
	return nil
}
