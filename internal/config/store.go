package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/DeforaOS/libSystem/internal/config/keyfile"
	"github.com/DeforaOS/libSystem/internal/config/notify"
	"github.com/DeforaOS/libSystem/internal/logging"
)

// DefaultSection is the name of the section holding variables that appear
// before any section header.
const DefaultSection = ""

// Store is an ordered section → variable → value table.
//
// A Store is meant to be owned by one caller; the internal lock only exists
// so that a Watcher can reload it from its own goroutine.
type Store struct {
	mu sync.RWMutex

	doc *keyfile.Document

	fs       keyfile.FileSystem
	notifier *notify.Notifier
	logger   *slog.Logger

	sysconfDir string
	homeDir    string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// WithFileSystem sets the file system used by Load and Save.
func WithFileSystem(fs keyfile.FileSystem) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithNotifier sets the notifier receiving change events.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithSysconfDir sets the system configuration directory used by
// LoadPreferencesSystem.
func WithSysconfDir(dir string) Option {
	return func(s *Store) {
		s.sysconfDir = dir
	}
}

// WithHomeDir sets the home directory used by LoadPreferencesUser.
func WithHomeDir(dir string) Option {
	return func(s *Store) {
		s.homeDir = dir
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		doc:        keyfile.NewDocument(),
		fs:         keyfile.DefaultFS(),
		logger:     logging.NewNop(),
		sysconfDir: defaultSysconfDir(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func defaultSysconfDir() string {
	if dir := os.Getenv("LIBSYSTEM_SYSCONFDIR"); dir != "" {
		return dir
	}
	return "/usr/local/etc"
}

// Notifier returns the notifier of the store, creating one on first use.
func (s *Store) Notifier() *notify.Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notifier == nil {
		s.notifier = notify.New()
	}
	return s.notifier
}

// Subscribe registers an observer for every change of the store.
func (s *Store) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.Notifier().Subscribe(observer)
}

// SubscribeSection registers an observer for changes of one section.
func (s *Store) SubscribeSection(section string, observer notify.Observer) *notify.Subscription {
	return s.Notifier().SubscribeSection(section, observer)
}

// Get returns the value of variable in section. It never creates entries.
func (s *Store) Get(section, variable string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Get(section, variable)
}

// Set stores value for variable in section, creating the section if needed.
func (s *Store) Set(section, variable, value string) error {
	if err := validateSection(section); err != nil {
		return err
	}
	if err := validateVariable(variable); err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}

	s.mu.Lock()
	old, existed := s.doc.Section(section).Set(variable, value)
	n := s.notifier
	s.mu.Unlock()

	if n != nil && (!existed || old != value) {
		n.NotifySet(section, variable, old, value, "set")
	}
	return nil
}

// Unset removes variable from section. The section itself is kept, except
// for the default section, which only exists while it holds variables.
// It reports whether the variable existed.
func (s *Store) Unset(section, variable string) bool {
	s.mu.Lock()
	sec, ok := s.doc.Lookup(section)
	if !ok {
		s.mu.Unlock()
		return false
	}
	old, ok := sec.Delete(variable)
	if ok && section == DefaultSection && sec.Len() == 0 {
		s.doc.Remove(DefaultSection)
	}
	n := s.notifier
	s.mu.Unlock()

	if ok && n != nil {
		n.NotifyDelete(section, variable, old, "unset")
	}
	return ok
}

// Has reports whether section exists.
func (s *Store) Has(section string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doc.Lookup(section)
	return ok
}

// Sections returns the section names in insertion order.
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secs := s.doc.Sections()
	names := make([]string, len(secs))
	for i, sec := range secs {
		names[i] = sec.Name()
	}
	return names
}

// Variables returns the variable names of section in insertion order, or
// nil if the section does not exist.
func (s *Store) Variables(section string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.doc.Lookup(section)
	if !ok {
		return nil
	}
	return sec.Keys()
}

// Len returns the number of variables across all sections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Len()
}

// Foreach calls fn for every section name in insertion order.
func (s *Store) Foreach(fn func(section string)) {
	for _, name := range s.Sections() {
		fn(name)
	}
}

// ForeachSection calls fn for every variable of section in insertion order.
func (s *Store) ForeachSection(section string, fn func(variable, value string)) {
	s.mu.RLock()
	sec, ok := s.doc.Lookup(section)
	if !ok {
		s.mu.RUnlock()
		return
	}
	keys := sec.Keys()
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i], _ = sec.Get(k)
	}
	s.mu.RUnlock()

	for i, k := range keys {
		fn(k, values[i])
	}
}

// Reset clears every section and variable.
func (s *Store) Reset() {
	s.mu.Lock()
	wasEmpty := len(s.doc.Sections()) == 0
	s.doc = keyfile.NewDocument()
	n := s.notifier
	s.mu.Unlock()

	if !wasEmpty && n != nil {
		n.NotifyReset("reset")
	}
}

// Document returns a copy of the content as a key-file document.
func (s *Store) Document() *keyfile.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocument(s.doc)
}

func cloneDocument(doc *keyfile.Document) *keyfile.Document {
	out := keyfile.NewDocument()
	for _, sec := range doc.Sections() {
		dst := out.Section(sec.Name())
		for _, k := range sec.Keys() {
			v, _ := sec.Get(k)
			dst.Set(k, v)
		}
	}
	return out
}

func validateSection(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("section %q: %w", name, err)
	}
	if strings.ContainsAny(name, "[]") {
		return fmt.Errorf("section %q: %w: contains a bracket", name, ErrInvalidName)
	}
	return nil
}

func validateVariable(name string) error {
	if name == "" {
		return fmt.Errorf("variable: %w: empty name", ErrInvalidName)
	}
	if err := validateName(name); err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	if strings.Contains(name, "=") {
		return fmt.Errorf("variable %q: %w: contains '='", name, ErrInvalidName)
	}
	switch name[0] {
	case '#', ';', '[':
		return fmt.Errorf("variable %q: %w: starts with %q", name, ErrInvalidName, name[0])
	}
	return nil
}

func validateName(name string) error {
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%w: non-printable character %U", ErrInvalidName, r)
		}
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: surrounding whitespace", ErrInvalidName)
	}
	return nil
}

func validateValue(value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: contains a line break", ErrInvalidValue)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%w: surrounding whitespace", ErrInvalidValue)
	}
	return nil
}
