package plugin

import (
	"time"

	"github.com/DeforaOS/libSystem/internal/plugin/lua"
)

// LuaExtension is the file extension of Lua modules.
const LuaExtension = ".lua"

// LuaFunc calls a global function of a Lua module.
type LuaFunc func(args ...any) ([]any, error)

// LuaOpener returns an Opener running Lua scripts with the given execution
// timeout per call. Zero disables the timeout.
func LuaOpener(timeout time.Duration) Opener {
	return OpenerFunc(func(path string) (Module, error) {
		st, err := lua.NewState(lua.WithExecutionTimeout(timeout))
		if err != nil {
			return nil, err
		}
		if err := st.DoFile(path); err != nil {
			st.Close()
			return nil, err
		}
		return &luaModule{state: st}, nil
	})
}

type luaModule struct {
	state *lua.State
}

func (m *luaModule) Lookup(name string) (Symbol, bool) {
	if m.state.IsFunction(name) {
		return LuaFunc(func(args ...any) ([]any, error) {
			return m.state.Call(name, args...)
		}), true
	}
	return m.state.Global(name)
}

func (m *luaModule) Close() error {
	return m.state.Close()
}
