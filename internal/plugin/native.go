package plugin

import (
	"fmt"
	goplugin "plugin"
)

// NativeOpener opens Go plugins built with -buildmode=plugin.
var NativeOpener Opener = OpenerFunc(openNative)

type nativeModule struct {
	p *goplugin.Plugin
}

func openNative(path string) (Module, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return &nativeModule{p: p}, nil
}

func (m *nativeModule) Lookup(name string) (Symbol, bool) {
	s, err := m.p.Lookup(name)
	if err != nil {
		return nil, false
	}
	return s, true
}

// Close is a no-op: the runtime cannot unload a Go plugin.
func (m *nativeModule) Close() error {
	return nil
}
