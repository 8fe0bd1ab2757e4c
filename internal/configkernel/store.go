package configkernel

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ccr-hq/gateway/internal/gwconfig"
)

// Store reads and atomically replaces the on-disk configuration document.
// Writes always go through a temp-file-then-rename in the same directory as
// the target, with a timestamped backup of the previous content, matching
// the Config Store contract in spec.md §4.1 / §6.
type Store struct {
	path string
}

// NewStore creates a Store bound to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the configured document path.
func (s *Store) Path() string { return s.path }

// Load reads and decodes the document at Path.
func (s *Store) Load() (*gwconfig.Document, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &ConfigIOError{Path: s.path, Op: "read", Err: err}
	}

	doc, err := gwconfig.Decode(s.path, content)
	if err != nil {
		return nil, &ConfigIOError{Path: s.path, Op: "parse", Err: err}
	}

	return doc, nil
}

// Write backs up the current file (if any), then atomically replaces it
// with doc's raw bytes via write-temp + rename.
func (s *Store) Write(doc *gwconfig.Document) error {
	if err := s.backup(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return &ConfigIOError{Path: s.path, Op: "create-temp", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(doc.Raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &ConfigIOError{Path: s.path, Op: "write-temp", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &ConfigIOError{Path: s.path, Op: "sync-temp", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &ConfigIOError{Path: s.path, Op: "close-temp", Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &ConfigIOError{Path: s.path, Op: "rename", Err: err}
	}

	return nil
}

// backup copies the existing file (if present) to <path>.backup.<unix-ts>.
// A missing source file is not an error: the first write has nothing to
// back up.
func (s *Store) backup() error {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &ConfigIOError{Path: s.path, Op: "read-for-backup", Err: err}
	}

	backupPath := fmt.Sprintf("%s.backup.%d", s.path, time.Now().Unix())
	if err := os.WriteFile(backupPath, content, 0o600); err != nil {
		return &ConfigIOError{Path: backupPath, Op: "write-backup", Err: err}
	}

	return nil
}
