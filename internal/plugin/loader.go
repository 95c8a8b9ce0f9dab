package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/DeforaOS/libSystem/internal/logging"
	"github.com/DeforaOS/libSystem/internal/plugin/lua"
)

// PathEnv lists directories searched before the default ones.
const PathEnv = "LIBSYSTEM_PLUGIN_PATH"

// Loader resolves and opens modules.
type Loader struct {
	mu       sync.RWMutex
	paths    []string
	naming   Naming
	openers  map[string]Opener
	native   Opener
	builtins map[string]staticModule
	order    []string
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths replaces the search directories.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = append([]string(nil), paths...)
	}
}

// WithNaming sets the library naming convention.
func WithNaming(n Naming) LoaderOption {
	return func(l *Loader) {
		l.naming = n
	}
}

// WithOpener registers o for files with extension ext, which includes the
// leading dot. A nil opener removes the registration.
func WithOpener(ext string, o Opener) LoaderOption {
	return func(l *Loader) {
		if o == nil {
			delete(l.openers, ext)
			return
		}
		l.openers[ext] = o
	}
}

// WithNativeOpener replaces the opener used for files without a registered
// extension.
func WithNativeOpener(o Opener) LoaderOption {
	return func(l *Loader) {
		l.native = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader searching DefaultPaths with the host naming
// convention and the Lua opener registered for LuaExtension.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:    DefaultPaths(),
		naming:   DefaultNaming(),
		openers:  map[string]Opener{LuaExtension: LuaOpener(lua.DefaultExecutionTimeout)},
		native:   NativeOpener,
		builtins: make(map[string]staticModule),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNop(l.logger)
	return l
}

// DefaultPaths returns the entries of LIBSYSTEM_PLUGIN_PATH followed by
// ~/.local/lib, /usr/local/lib and /usr/lib.
func DefaultPaths() []string {
	var paths []string
	for _, p := range filepath.SplitList(os.Getenv(PathEnv)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "lib"))
	}
	return append(paths, "/usr/local/lib", "/usr/lib")
}

// Paths returns the search directories.
func (l *Loader) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.paths)
}

// AddPath appends a search directory.
func (l *Loader) AddPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

// Naming returns the library naming convention.
func (l *Loader) Naming() Naming {
	return l.naming
}

// Register makes symbols available as the static module name. Open finds
// registered modules before searching the file system. Registering a name
// again replaces its symbols.
func (l *Loader) Register(name string, symbols Symbols) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	mod := make(staticModule, len(symbols))
	for k, v := range symbols {
		mod[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.builtins[name]; !ok {
		l.order = append(l.order, name)
	}
	l.builtins[name] = mod
	return nil
}

// Open opens the module name. Registered static modules are returned
// first; otherwise the name is resolved and opened with the opener of its
// extension.
func (l *Loader) Open(name string) (*Plugin, error) {
	l.mu.RLock()
	mod, ok := l.builtins[name]
	l.mu.RUnlock()
	if ok {
		l.logger.Debug("plugin opened", "name", name, "backend", "static")
		return newPlugin(name, "", mod, l.logger), nil
	}

	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	return l.open(name, path)
}

// OpenPackage opens the module <dir>/<pkg>/<kind>/<name><suffix> from the
// first search directory holding it.
func (l *Loader) OpenPackage(pkg, kind, name string) (*Plugin, error) {
	for _, c := range []string{pkg, kind, name} {
		if err := checkComponent(c); err != nil {
			return nil, &LoadError{Name: name, Err: err}
		}
	}

	var tried []string
	for _, dir := range l.Paths() {
		path := filepath.Join(dir, pkg, kind, name+l.naming.Suffix)
		tried = append(tried, path)
		if isFile(path) {
			return l.open(name, path)
		}
	}
	return nil, &LoadError{Name: name, Tried: tried, Err: ErrModuleNotFound}
}

// OpenSelf returns a plugin looking up symbols in every registered static
// module, in registration order.
func (l *Loader) OpenSelf() *Plugin {
	l.mu.RLock()
	mods := make([]staticModule, len(l.order))
	for i, name := range l.order {
		mods[i] = l.builtins[name]
	}
	l.mu.RUnlock()

	return newPlugin("", "", selfModule{modules: mods}, l.logger)
}

func (l *Loader) open(name, path string) (*Plugin, error) {
	opener := l.opener(path)
	mod, err := opener.Open(path)
	if err != nil {
		return nil, &LoadError{Name: name, Path: path, Err: err}
	}
	l.logger.Debug("plugin opened", "name", name, "path", path)
	return newPlugin(name, path, mod, l.logger), nil
}

func (l *Loader) opener(path string) Opener {
	if o, ok := l.openers[filepath.Ext(path)]; ok {
		return o
	}
	return l.native
}

// Resolve returns the file module name would be opened from.
func (l *Loader) Resolve(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", &LoadError{Name: name, Err: ErrInvalidName}
	}

	var tried []string
	for _, path := range l.candidates(name) {
		tried = append(tried, path)
		if isFile(path) {
			l.logger.Debug("plugin resolved", "name", name, "path", path)
			return path, nil
		}
	}

	l.logger.Debug("plugin not found", "name", name, "tried", tried)
	return "", &LoadError{Name: name, Tried: tried, Err: ErrModuleNotFound}
}

func (l *Loader) candidates(name string) []string {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		ext := filepath.Ext(name)
		if _, ok := l.openers[ext]; ok || ext == l.naming.Suffix {
			return []string{name}
		}
		return []string{name + l.naming.Suffix}
	}

	exts := make([]string, 0, len(l.openers))
	for ext := range l.openers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	var out []string
	for _, dir := range l.Paths() {
		if l.naming.Prefix != "" {
			out = append(out, filepath.Join(dir, l.naming.FileName(name)))
		}
		out = append(out, filepath.Join(dir, name+l.naming.Suffix))
		for _, ext := range exts {
			out = append(out, filepath.Join(dir, name+ext))
		}
	}
	return out
}

// ModuleInfo describes a module file found by Discover.
type ModuleInfo struct {
	Name string
	Path string
}

// Discover lists the modules available in the search directories, sorted
// by name. When a name appears in several directories the first one wins.
// Missing directories are skipped.
func (l *Loader) Discover() ([]ModuleInfo, error) {
	found := make(map[string]ModuleInfo)

	for _, dir := range l.Paths() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("discover plugins in %s: %w", dir, err)
		}

		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			name, ok := l.moduleName(e.Name())
			if !ok {
				continue
			}
			if _, exists := found[name]; !exists {
				found[name] = ModuleInfo{Name: name, Path: filepath.Join(dir, e.Name())}
			}
		}
	}

	out := make([]ModuleInfo, 0, len(found))
	for _, info := range found {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// moduleName returns the module name of a file, if it is a module.
func (l *Loader) moduleName(file string) (string, bool) {
	ext := filepath.Ext(file)
	if _, ok := l.openers[ext]; ok {
		return strings.TrimSuffix(file, ext), len(file) > len(ext)
	}
	if ext != l.naming.Suffix || ext == "" {
		return "", false
	}
	name := strings.TrimSuffix(file, ext)
	name = strings.TrimPrefix(name, l.naming.Prefix)
	return name, name != ""
}

func checkComponent(c string) error {
	if c == "" || c == "." || c == ".." || strings.ContainsAny(c, `/\`) || strings.ContainsRune(c, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, c)
	}
	return nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
