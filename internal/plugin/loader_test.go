package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linux = Naming{Prefix: "lib", Suffix: ".so"}

func touch(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fakeModule records Close calls.
type fakeModule struct {
	symbols  Symbols
	closeErr error
	closed   int
}

func (m *fakeModule) Lookup(name string) (Symbol, bool) {
	s, ok := m.symbols[name]
	return s, ok
}

func (m *fakeModule) Close() error {
	m.closed++
	return m.closeErr
}

func TestNamingFor(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "libcodec.so"},
		{"freebsd", "libcodec.so"},
		{"darwin", "libcodec.dylib"},
		{"windows", "codec.dll"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.want, NamingFor(tt.goos).FileName("codec"))
		})
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv(PathEnv, "/opt/a"+string(os.PathListSeparator)+string(os.PathListSeparator)+"/opt/b")

	paths := DefaultPaths()
	require.GreaterOrEqual(t, len(paths), 4)
	assert.Equal(t, []string{"/opt/a", "/opt/b"}, paths[:2])
	assert.Equal(t, []string{"/usr/local/lib", "/usr/lib"}, paths[len(paths)-2:])
}

func TestPathsAndAddPath(t *testing.T) {
	l := NewLoader(WithPaths("/a"))
	l.AddPath("/b")

	paths := l.Paths()
	assert.Equal(t, []string{"/a", "/b"}, paths)

	paths[0] = "changed"
	assert.Equal(t, "/a", l.Paths()[0])
}

func TestResolveOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	l := NewLoader(WithPaths(first, second), WithNaming(linux))

	bare := touch(t, filepath.Join(second, "codec.so"), "")
	path, err := l.Resolve("codec")
	require.NoError(t, err)
	assert.Equal(t, bare, path)

	// An earlier directory wins over a better name later on.
	early := touch(t, filepath.Join(first, "codec.lua"), "")
	path, err = l.Resolve("codec")
	require.NoError(t, err)
	assert.Equal(t, early, path)

	prefixed := touch(t, filepath.Join(first, "libcodec.so"), "")
	path, err = l.Resolve("codec")
	require.NoError(t, err)
	assert.Equal(t, prefixed, path)
}

func TestResolveSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "libcodec.so"), 0o755))
	want := touch(t, filepath.Join(dir, "codec.so"), "")

	l := NewLoader(WithPaths(dir), WithNaming(linux))
	path, err := l.Resolve("codec")
	require.NoError(t, err)
	assert.Equal(t, want, path)
}

func TestResolvePathName(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(WithPaths(), WithNaming(linux))

	lib := touch(t, filepath.Join(dir, "libx.so"), "")
	path, err := l.Resolve(filepath.Join(dir, "libx"))
	require.NoError(t, err)
	assert.Equal(t, lib, path)

	path, err = l.Resolve(lib)
	require.NoError(t, err)
	assert.Equal(t, lib, path)

	script := touch(t, filepath.Join(dir, "y.lua"), "")
	path, err = l.Resolve(script)
	require.NoError(t, err)
	assert.Equal(t, script, path)
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(WithPaths(dir), WithNaming(linux))

	_, err := l.Resolve("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, ErrModuleNotFound)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "missing", le.Name)
	assert.Equal(t, []string{
		filepath.Join(dir, "libmissing.so"),
		filepath.Join(dir, "missing.so"),
		filepath.Join(dir, "missing.lua"),
	}, le.Tried)
	assert.Contains(t, err.Error(), "missing.lua")

	_, err = l.Resolve("")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestOpenStatic(t *testing.T) {
	l := NewLoader(WithPaths())
	require.NoError(t, l.Register("math", Symbols{
		"Answer": 42,
		"Double": func(n int) int { return 2 * n },
	}))

	p, err := l.Open("math")
	require.NoError(t, err)
	assert.Equal(t, "math", p.Name())
	assert.Empty(t, p.Path())

	v, ok := p.Lookup("Answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	// A missing symbol does not close the plugin.
	_, ok = p.Lookup("Missing")
	assert.False(t, ok)
	_, ok = p.Lookup("")
	assert.False(t, ok)

	fn, ok := p.Lookup("Double")
	require.True(t, ok)
	assert.Equal(t, 8, fn.(func(int) int)(4))

	p.Close()
	p.Close()
	assert.True(t, p.Closed())
	_, ok = p.Lookup("Answer")
	assert.False(t, ok)

	assert.ErrorIs(t, l.Register("", nil), ErrInvalidName)
}

func TestRegisterCopiesSymbols(t *testing.T) {
	l := NewLoader(WithPaths())
	syms := Symbols{"a": 1}
	require.NoError(t, l.Register("m", syms))
	syms["b"] = 2

	p, err := l.Open("m")
	require.NoError(t, err)
	_, ok := p.Lookup("b")
	assert.False(t, ok)
}

func TestOpenSelf(t *testing.T) {
	l := NewLoader(WithPaths())
	require.NoError(t, l.Register("one", Symbols{"x": 1, "y": 1}))
	require.NoError(t, l.Register("two", Symbols{"y": 2, "z": 2}))

	p := l.OpenSelf()
	for sym, want := range map[string]int{"x": 1, "y": 1, "z": 2} {
		v, ok := p.Lookup(sym)
		require.True(t, ok, sym)
		assert.Equal(t, want, v, sym)
	}
	_, ok := p.Lookup("w")
	assert.False(t, ok)
}

func TestOpenUsesOpenerByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "libnative.so"), "")
	touch(t, filepath.Join(dir, "script.fake"), "")

	native := &fakeModule{symbols: Symbols{"Init": "native"}}
	fake := &fakeModule{symbols: Symbols{"Init": "fake"}}
	var opened []string

	l := NewLoader(
		WithPaths(dir),
		WithNaming(linux),
		WithNativeOpener(OpenerFunc(func(path string) (Module, error) {
			opened = append(opened, path)
			return native, nil
		})),
		WithOpener(".fake", OpenerFunc(func(path string) (Module, error) {
			opened = append(opened, path)
			return fake, nil
		})),
	)

	p, err := l.Open("native")
	require.NoError(t, err)
	v, _ := p.Lookup("Init")
	assert.Equal(t, "native", v)
	assert.Equal(t, filepath.Join(dir, "libnative.so"), p.Path())

	q, err := l.Open("script")
	require.NoError(t, err)
	v, _ = q.Lookup("Init")
	assert.Equal(t, "fake", v)

	assert.Len(t, opened, 2)

	p.Close()
	q.Close()
	q.Close()
	assert.Equal(t, 1, native.closed)
	assert.Equal(t, 1, fake.closed)
}

func TestOpenerFailure(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "libbroken.so"), "")
	boom := errors.New("bad header")

	l := NewLoader(WithPaths(dir), WithNaming(linux), WithNativeOpener(OpenerFunc(func(string) (Module, error) {
		return nil, boom
	})))

	p, err := l.Open("broken")
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, boom)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, path, le.Path)
}

func TestOpenInvalidNativeFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "libgarbage.so"), "not an object file")

	l := NewLoader(WithPaths(dir), WithNaming(linux))
	p, err := l.Open("garbage")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCloseFailureIsNotReturned(t *testing.T) {
	l := NewLoader(WithPaths())
	mod := &fakeModule{closeErr: errors.New("busy")}

	p := newPlugin("x", "/x", mod, l.logger)
	p.Close()
	p.Close()
	assert.Equal(t, 1, mod.closed)
	assert.True(t, p.Closed())
}

func TestOpenPackage(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	want := touch(t, filepath.Join(second, "Desktop", "widget", "clock.so"), "")

	var opened string
	l := NewLoader(WithPaths(first, second), WithNaming(linux), WithNativeOpener(OpenerFunc(func(path string) (Module, error) {
		opened = path
		return &fakeModule{}, nil
	})))

	p, err := l.OpenPackage("Desktop", "widget", "clock")
	require.NoError(t, err)
	assert.Equal(t, want, opened)
	assert.Equal(t, "clock", p.Name())

	_, err = l.OpenPackage("Desktop", "widget", "calendar")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Len(t, le.Tried, 2)

	for _, bad := range [][3]string{{"", "w", "n"}, {"p", "..", "n"}, {"p", "w", "a/b"}} {
		_, err := l.OpenPackage(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestDiscover(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	a := touch(t, filepath.Join(first, "libalpha.so"), "")
	touch(t, filepath.Join(first, "README"), "")
	touch(t, filepath.Join(second, "alpha.so"), "")
	b := touch(t, filepath.Join(second, "beta.lua"), "")
	require.NoError(t, os.Mkdir(filepath.Join(second, "gamma.so"), 0o755))

	l := NewLoader(WithPaths(first, second, filepath.Join(first, "missing")), WithNaming(linux))
	mods, err := l.Discover()
	require.NoError(t, err)
	assert.Equal(t, []ModuleInfo{
		{Name: "alpha", Path: a},
		{Name: "beta", Path: b},
	}, mods)
}

func TestConcurrentLookup(t *testing.T) {
	l := NewLoader(WithPaths())
	require.NoError(t, l.Register("m", Symbols{"k": "v"}))
	p, err := l.Open("m")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				v, ok := p.Lookup("k")
				assert.True(t, ok)
				assert.Equal(t, "v", v)
			}
		}()
	}
	wg.Wait()
}
