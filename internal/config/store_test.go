package config

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeforaOS/libSystem/internal/config/notify"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	mu       sync.Mutex
	files    map[string][]byte
	writeErr error
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (m *MemFS) WriteFile(path string, data []byte, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return &fs.PathError{Op: "open", Path: path, Err: m.writeErr}
	}
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *MemFS) content(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[path])
}

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestStoreSetGet(t *testing.T) {
	s := New()

	require.NoError(t, s.Set("net", "host", "localhost"))

	v, ok := s.Get("net", "host")
	assert.True(t, ok)
	assert.Equal(t, "localhost", v)

	_, ok = s.Get("net", "port")
	assert.False(t, ok)

	_, ok = s.Get("missing", "host")
	assert.False(t, ok)
	assert.False(t, s.Has("missing"), "Get must not create sections")
}

func TestStoreOverwriteKeepsOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("a", "x", "1"))
	require.NoError(t, s.Set("a", "y", "2"))
	require.NoError(t, s.Set("b", "z", "3"))
	require.NoError(t, s.Set("a", "x", "10"))

	assert.Equal(t, []string{"a", "b"}, s.Sections())
	assert.Equal(t, []string{"x", "y"}, s.Variables("a"))
	v, _ := s.Get("a", "x")
	assert.Equal(t, "10", v)
	assert.Equal(t, 3, s.Len())
}

func TestStoreSetValidation(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		variable string
		value    string
		want     error
	}{
		{"empty variable", "a", "", "v", ErrInvalidName},
		{"bracket in section", "a]", "x", "v", ErrInvalidName},
		{"equals in variable", "a", "x=y", "v", ErrInvalidName},
		{"comment variable", "a", "#x", "v", ErrInvalidName},
		{"semicolon variable", "a", ";x", "v", ErrInvalidName},
		{"control character", "a", "x\ty", "v", ErrInvalidName},
		{"leading space", " a", "x", "v", ErrInvalidName},
		{"trailing space", "a", "x ", "v", ErrInvalidName},
		{"newline in value", "a", "x", "1\n2", ErrInvalidValue},
		{"carriage return in value", "a", "x", "1\r", ErrInvalidValue},
		{"padded value", "a", "x", " padded ", ErrInvalidValue},
		{"trailing tab in value", "a", "x", "tab\t", ErrInvalidValue},
		{"leading vertical tab in value", "a", "x", "\vvt", ErrInvalidValue},
		{"trailing next line in value", "a", "x", "nel\u0085", ErrInvalidValue},
		{"default section", "", "x", "v", nil},
		{"empty value", "a", "x", "", nil},
		{"spaces inside", "my section", "my var", "some value", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			err := s.Set(tt.section, tt.variable, tt.value)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, s.Len())
		})
	}
}

func TestStoreUnset(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("a", "x", "1"))

	assert.True(t, s.Unset("a", "x"))
	assert.False(t, s.Unset("a", "x"))
	assert.False(t, s.Unset("b", "x"))
	assert.True(t, s.Has("a"))
	assert.Empty(t, s.Variables("a"))
}

func TestStoreUnsetDropsEmptyDefaultSection(t *testing.T) {
	memfs := NewMemFS()
	s := New(WithFileSystem(memfs))
	require.NoError(t, s.Set("", "x", "1"))
	require.NoError(t, s.Set("b", "y", "2"))

	assert.True(t, s.Unset("", "x"))
	assert.False(t, s.Has(DefaultSection))
	assert.Equal(t, []string{"b"}, s.Sections())

	require.NoError(t, s.Save("/out.conf"))
	loaded := New(WithFileSystem(memfs))
	require.NoError(t, loaded.Load("/out.conf"))
	assert.Equal(t, s.Sections(), loaded.Sections())
	assert.True(t, s.Document().Equal(loaded.Document()))
}

func TestStoreResetIdempotent(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("a", "x", "1"))
	require.NoError(t, s.Set("", "top", "level"))

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Sections())

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Sections())
}

func TestStoreForeach(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("a", "x", "1"))
	require.NoError(t, s.Set("b", "y", "2"))
	require.NoError(t, s.Set("b", "z", "3"))

	var sections []string
	s.Foreach(func(section string) { sections = append(sections, section) })
	assert.Equal(t, []string{"a", "b"}, sections)

	var pairs []string
	s.ForeachSection("b", func(variable, value string) {
		pairs = append(pairs, variable+"="+value)
	})
	assert.Equal(t, []string{"y=2", "z=3"}, pairs)

	// Modifying the store from the callback must not deadlock.
	s.ForeachSection("a", func(variable, value string) {
		require.NoError(t, s.Set("a", variable, value+value))
	})
	v, _ := s.Get("a", "x")
	assert.Equal(t, "11", v)
}

func TestStoreLoadScenario(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/etc/app.conf", "[a]\nx = 1\n# comment\n[b]\ny = 2\n")

	s := New(WithFileSystem(memfs))
	require.NoError(t, s.Load("/etc/app.conf"))

	assert.Equal(t, map[string]map[string]string{
		"a": {"x": "1"},
		"b": {"y": "2"},
	}, s.Document().Map())
}

func TestStoreLoadMerges(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/one.conf", "[a]\nx = 1\ny = 2\n")
	memfs.AddFile("/two.conf", "[a]\ny = 20\n[b]\nz = 3\n")

	s := New(WithFileSystem(memfs))
	require.NoError(t, s.Load("/one.conf"))
	require.NoError(t, s.Load("/two.conf"))

	assert.Equal(t, map[string]map[string]string{
		"a": {"x": "1", "y": "20"},
		"b": {"z": "3"},
	}, s.Document().Map())

	// Loading the same file again changes nothing.
	require.NoError(t, s.Load("/two.conf"))
	assert.Equal(t, 3, s.Len())
}

func TestStoreLoadParseErrorLeavesStore(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.conf", "[a]\nx = 1\nthis line is broken\n")

	s := New(WithFileSystem(memfs))
	require.NoError(t, s.Set("keep", "me", "yes"))

	err := s.Load("/bad.conf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "/bad.conf", pe.Path)

	assert.Equal(t, []string{"keep"}, s.Sections())
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := New(WithFileSystem(NewMemFS()))

	err := s.Load("/nope.conf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var ioe *IOError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, "read", ioe.Op)
}

func TestStoreLoadReader(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadReader("stdin", strings.NewReader("top = 1\n[s]\nk = v\n")))

	v, ok := s.Get("", "top")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	err := s.LoadReader("stdin", strings.NewReader("[broken\n"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestStoreReloadReplaces(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/app.conf", "[a]\nx = 1\n")

	s := New(WithFileSystem(memfs))
	require.NoError(t, s.Set("old", "v", "1"))
	require.NoError(t, s.Reload("/app.conf"))
	assert.Equal(t, []string{"a"}, s.Sections())

	memfs.AddFile("/app.conf", "[a\n")
	assert.ErrorIs(t, s.Reload("/app.conf"), ErrParse)
	assert.Equal(t, []string{"a"}, s.Sections())
}

func TestStoreSaveRoundTrip(t *testing.T) {
	memfs := NewMemFS()
	s := New(WithFileSystem(memfs))

	require.NoError(t, s.Set("net", "host", "localhost"))
	require.NoError(t, s.Set("net", "port", "8080"))
	require.NoError(t, s.Set("", "name", "demo"))
	require.NoError(t, s.Set("paths", "home", "/home/user = mine"))
	require.NoError(t, s.Set("empty", "value", ""))
	require.NoError(t, s.Set("text", "inner", "a \t b"))
	assert.ErrorIs(t, s.Set("text", "outer", " a b "), ErrInvalidValue)

	require.NoError(t, s.Save("/out.conf"))

	loaded := New(WithFileSystem(memfs))
	require.NoError(t, loaded.Load("/out.conf"))
	assert.True(t, s.Document().Equal(loaded.Document()))
}

func TestStoreSaveGolden(t *testing.T) {
	memfs := NewMemFS()
	s := New(WithFileSystem(memfs))

	require.NoError(t, s.Set("net", "host", "localhost"))
	require.NoError(t, s.Set("net", "port", "8080"))
	require.NoError(t, s.Set("", "name", "demo"))
	require.NoError(t, s.Set("ui", "theme", "dark"))

	require.NoError(t, s.Save("/out.conf"))

	g := newGolden(t)
	g.Assert(t, "save", []byte(memfs.content("/out.conf")))
}

func TestStoreSaveWriteError(t *testing.T) {
	memfs := NewMemFS()
	memfs.writeErr = fs.ErrPermission

	s := New(WithFileSystem(memfs))
	require.NoError(t, s.Set("a", "x", "1"))

	err := s.Save("/ro/out.conf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestStoreWriteTo(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("a", "x", "1"))

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "[a]\nx = 1\n", buf.String())
}

func TestStoreLoadPreferences(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/sys/DeforaOS/Browser/browser.conf", "[ui]\ntheme = light\nzoom = 1\n")
	memfs.AddFile("/home/u/.config/DeforaOS/Browser/browser.conf", "[ui]\ntheme = dark\n")

	s := New(WithFileSystem(memfs), WithSysconfDir("/sys"), WithHomeDir("/home/u"))
	require.NoError(t, s.LoadPreferences("DeforaOS", "Browser", "browser.conf"))

	theme, _ := s.Get("ui", "theme")
	zoom, _ := s.Get("ui", "zoom")
	assert.Equal(t, "dark", theme)
	assert.Equal(t, "1", zoom)
}

func TestStoreLoadPreferencesMissing(t *testing.T) {
	s := New(WithFileSystem(NewMemFS()), WithSysconfDir("/sys"), WithHomeDir("/home/u"))
	assert.NoError(t, s.LoadPreferences("DeforaOS", "Browser", "browser.conf"))
	assert.Zero(t, s.Len())
}

func TestStoreLoadPreferencesInvalid(t *testing.T) {
	s := New(WithFileSystem(NewMemFS()), WithSysconfDir("/sys"), WithHomeDir("/home/u"))

	assert.ErrorIs(t, s.LoadPreferencesSystem("a/b", "pkg", "f"), ErrInvalidName)
	assert.ErrorIs(t, s.LoadPreferencesSystem("vendor", "../pkg", "f"), ErrInvalidName)
	assert.ErrorIs(t, s.LoadPreferencesUser("vendor", "pkg", "dir/f"), ErrInvalidName)
}

func TestStoreNotifications(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/app.conf", "[a]\nx = 2\ny = 3\n")

	s := New(WithFileSystem(memfs))

	var got []notify.Change
	s.Subscribe(func(c notify.Change) { got = append(got, c) })

	require.NoError(t, s.Set("a", "x", "1"))
	require.NoError(t, s.Set("a", "x", "1"))
	require.NoError(t, s.Load("/app.conf"))
	s.Unset("a", "y")
	s.Reset()
	s.Reset()
	require.NoError(t, s.Reload("/app.conf"))

	types := make([]notify.ChangeType, len(got))
	for i, c := range got {
		types[i] = c.Type
	}
	assert.Equal(t, []notify.ChangeType{
		notify.ChangeSet,
		notify.ChangeSet,
		notify.ChangeSet,
		notify.ChangeDelete,
		notify.ChangeReset,
		notify.ChangeReload,
	}, types)

	assert.Equal(t, "1", got[1].OldValue)
	assert.Equal(t, "2", got[1].NewValue)
	assert.Equal(t, "/app.conf", got[1].Source)
}

func TestStoreSubscribeSection(t *testing.T) {
	s := New()

	var got []string
	s.SubscribeSection("net", func(c notify.Change) {
		got = append(got, c.Variable)
	})

	require.NoError(t, s.Set("net", "host", "a"))
	require.NoError(t, s.Set("ui", "theme", "b"))
	require.NoError(t, s.Set("net", "port", "c"))

	assert.Equal(t, []string{"host", "port"}, got)
}
