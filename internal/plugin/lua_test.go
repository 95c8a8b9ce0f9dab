package plugin

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeforaOS/libSystem/internal/plugin/lua"
)

const greeter = `
name = "greeter"
version = 2
tags = {"a", "b"}

function greet(who)
	return "hello " .. who
end

function fail()
	error("refused")
end
`

func TestOpenLuaModule(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "greeter.lua"), greeter)

	l := NewLoader(WithPaths(dir), WithNaming(linux))
	p, err := l.Open("greeter")
	require.NoError(t, err)
	defer p.Close()

	v, ok := p.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "greeter", v)

	v, ok = p.Lookup("tags")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, v)

	sym, ok := p.Lookup("greet")
	require.True(t, ok)
	greet, ok := sym.(LuaFunc)
	require.True(t, ok)

	out, err := greet("world")
	require.NoError(t, err)
	assert.Equal(t, []any{"hello world"}, out)

	// Missing symbols and failing calls leave the module usable.
	_, ok = p.Lookup("missing")
	assert.False(t, ok)

	fail, ok := p.Lookup("fail")
	require.True(t, ok)
	_, err = fail.(LuaFunc)()
	assert.ErrorContains(t, err, "refused")

	out, err = greet("again")
	require.NoError(t, err)
	assert.Equal(t, []any{"hello again"}, out)
}

func TestLuaFuncAfterClose(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "greeter.lua"), greeter)

	l := NewLoader(WithPaths(dir))
	p, err := l.Open("greeter")
	require.NoError(t, err)

	sym, ok := p.Lookup("greet")
	require.True(t, ok)
	p.Close()

	_, ok = p.Lookup("greet")
	assert.False(t, ok)

	_, err = sym.(LuaFunc)("late")
	assert.ErrorIs(t, err, lua.ErrStateClosed)
}

func TestOpenLuaSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "broken.lua"), "function (")

	l := NewLoader(WithPaths(dir))
	p, err := l.Open("broken")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrLoad)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
}

func TestLuaModuleIsRestricted(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "escape.lua"), `f = io.open("/etc/passwd")`)

	l := NewLoader(WithPaths(dir))
	_, err := l.Open("escape")
	assert.ErrorIs(t, err, ErrLoad)
}

func TestLuaOpenerTimeout(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "spin.lua"), `while true do end`)

	l := NewLoader(WithPaths(dir), WithOpener(LuaExtension, LuaOpener(50*time.Millisecond)))
	_, err := l.Open("spin")
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, lua.ErrExecutionTimeout)
}

func TestLuaOpenerRemoved(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "greeter.lua"), greeter)

	l := NewLoader(WithPaths(dir), WithOpener(LuaExtension, nil))
	_, err := l.Open("greeter")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}
