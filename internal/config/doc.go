// Package config provides the configuration store of libSystem.
//
// A Store is an in-memory table of sections, each holding an ordered set of
// string variables. Stores are filled with Set or by loading key-files and
// written back with Save:
//
//	# comment
//	top = value in the default section
//
//	[net]
//	host = localhost
//	port = 8080
//
// # Basic Usage
//
//	store := config.New()
//	if err := store.Load("/etc/app.conf"); err != nil {
//	    log.Fatal(err)
//	}
//	host, ok := store.Get("net", "host")
//
// # Load Policies
//
// Load merges the file into the current content: variables from the file
// overwrite existing ones and everything else is kept. Reload replaces the
// whole content. Both parse into a staging document first, so a malformed
// file leaves the store untouched.
//
// # Sub-packages
//
//   - keyfile: key-file parsing and encoding
//   - notify: change notification and observer pattern
//   - watcher: fsnotify-based file watching for live reload
//
// # Error Handling
//
//   - Get reports a missing variable with ok == false, never an error
//   - ErrParse matches *ParseError (malformed file, line number included)
//   - ErrIO matches *IOError (open, read or write failure)
//   - ErrInvalidName and ErrInvalidValue reject names and values that
//     would not survive a Save/Load cycle
package config
