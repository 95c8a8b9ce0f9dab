// Package plugin opens loadable modules by name and looks up their symbols.
//
// A Loader resolves a module name against a list of directories using the
// host's library naming convention (libfoo.so, libfoo.dylib, foo.dll) and
// opens the file with the Opener registered for its extension. Three
// backends are provided:
//
//   - native: Go plugins built with -buildmode=plugin, opened with the
//     standard plugin package
//   - Lua: .lua scripts run on a restricted gopher-lua state; global
//     functions are exposed as LuaFunc values
//   - static: symbol tables registered in-process with Loader.Register
//
// # Resolution
//
// A name containing a path separator is used as a path. Any other name is
// tried in every search directory, in order:
//
//	<dir>/<prefix><name><suffix>
//	<dir>/<name><suffix>
//	<dir>/<name><ext>   for each registered opener extension
//
// The first regular file wins. OpenPackage resolves the
// <dir>/<package>/<kind>/<name><suffix> layout used to group plugins by
// the package and the kind of extension they provide.
//
// # Lookup
//
// Lookup of a missing symbol reports false; it is not an error and the
// module stays open. After Close every lookup reports false.
//
//	l := plugin.NewLoader(plugin.WithPaths("/usr/lib/myapp"))
//	p, err := l.Open("codec")
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	if sym, ok := p.Lookup("Decode"); ok {
//	    decode := sym.(func([]byte) error)
//	    ...
//	}
package plugin
