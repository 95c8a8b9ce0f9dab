// Package lua runs Lua plugin modules on a restricted gopher-lua state.
//
// A State opens only the base, table, string and math libraries and
// removes the loaders that reach the file system (dofile, loadfile, load
// and loadstring). Scripts are executed once with DoFile or DoString; the
// globals they leave behind are the module's symbols.
//
// # Values
//
// ToGo and ToLua convert between Lua and Go values. Numbers with an
// integral value become int64, sequences become []any and other tables
// become map[string]any.
//
//	st, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	if err := st.DoString(`function add(a, b) return a + b end`); err != nil {
//	    return err
//	}
//	out, err := st.Call("add", 1, 2) // []any{int64(3)}
//
// A State serializes all calls with a mutex; the underlying LState is never
// used from two goroutines at once.
package lua
