package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeforaOS/libSystem/internal/config/keyfile"
	"github.com/DeforaOS/libSystem/internal/config/notify"
)

// Load parses the key-file at path and merges it into the store.
//
// Variables of the file overwrite existing ones; everything else is kept.
// The file is parsed completely before the store is touched, so a parse
// error leaves the store unchanged.
func (s *Store) Load(path string) error {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return &IOError{Op: "read", Path: path, Err: err}
	}

	doc, err := keyfile.Parse(path, bytes.NewReader(data))
	if err != nil {
		return err
	}

	s.merge(doc, path)
	s.logger.Debug("config loaded", "path", path, "variables", doc.Len())
	return nil
}

// LoadReader parses a key-file from r and merges it into the store.
// name is used in error messages.
func (s *Store) LoadReader(name string, r io.Reader) error {
	doc, err := keyfile.Parse(name, r)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return err
		}
		return &IOError{Op: "read", Path: name, Err: err}
	}

	s.merge(doc, name)
	return nil
}

// Reload parses the key-file at path and replaces the whole content of the
// store with it. On failure the store keeps its previous content.
func (s *Store) Reload(path string) error {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return &IOError{Op: "read", Path: path, Err: err}
	}

	doc, err := keyfile.Parse(path, bytes.NewReader(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = doc
	n := s.notifier
	s.mu.Unlock()

	if n != nil {
		n.NotifyReload(path)
	}
	s.logger.Debug("config reloaded", "path", path, "variables", doc.Len())
	return nil
}

// merge copies every variable of doc into the store and publishes one set
// change per modified variable once the lock is released.
func (s *Store) merge(doc *keyfile.Document, source string) {
	s.mu.Lock()
	var batch *notify.Batch
	if s.notifier != nil {
		batch = s.notifier.NewBatch()
	}
	for _, sec := range doc.Sections() {
		dst := s.doc.Section(sec.Name())
		for _, k := range sec.Keys() {
			v, _ := sec.Get(k)
			old, existed := dst.Set(k, v)
			if batch != nil && (!existed || old != v) {
				batch.Set(sec.Name(), k, old, v, source)
			}
		}
	}
	s.mu.Unlock()

	if batch != nil {
		batch.Commit()
	}
}

// LoadPreferences loads the system then the user preferences file of a
// package. Missing files are skipped.
func (s *Store) LoadPreferences(vendor, pkg, filename string) error {
	if err := s.LoadPreferencesSystem(vendor, pkg, filename); err != nil {
		return err
	}
	return s.LoadPreferencesUser(vendor, pkg, filename)
}

// LoadPreferencesSystem loads <sysconfdir>/<vendor>/<pkg>/<filename>.
// A missing file is not an error.
func (s *Store) LoadPreferencesSystem(vendor, pkg, filename string) error {
	if err := checkComponents(vendor, pkg); err != nil {
		return err
	}
	path := filepath.Join(s.sysconfDir, vendor, pkg, filename)
	return s.loadOptional(path)
}

// LoadPreferencesUser loads $HOME/.config/<vendor>/<pkg>/<filename>.
// A missing file is not an error.
func (s *Store) LoadPreferencesUser(vendor, pkg, filename string) error {
	if err := checkComponents(vendor, pkg, filename); err != nil {
		return err
	}

	home := s.homeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return &IOError{Op: "resolve", Path: "$HOME", Err: err}
		}
	}

	path := filepath.Join(home, ".config", vendor, pkg, filename)
	return s.loadOptional(path)
}

func (s *Store) loadOptional(path string) error {
	err := s.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("config file not found, skipping", "path", path)
		return nil
	}
	return err
}

func checkComponents(parts ...string) error {
	for _, p := range parts {
		if p == "" || strings.ContainsRune(p, '/') || strings.ContainsRune(p, filepath.Separator) {
			return fmt.Errorf("path component %q: %w", p, ErrInvalidName)
		}
	}
	return nil
}
