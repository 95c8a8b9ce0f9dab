package config

import (
	"bytes"
	"io"

	"github.com/DeforaOS/libSystem/internal/config/keyfile"
)

// Save writes the store to path in key-file format. The default section
// comes first without a header, then every section in insertion order.
// The file is replaced atomically when the file system supports it.
func (s *Store) Save(path string) error {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}

	if err := s.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}

	s.logger.Debug("config saved", "path", path, "bytes", buf.Len())
	return nil
}

// WriteTo writes the store to w in key-file format.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return keyfile.Encode(w, s.doc)
}
