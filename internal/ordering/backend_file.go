package ordering

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	storageDirPermissions  = 0750
	storageFilePermissions = 0600
)

// FileBackend keeps the record as a single JSON file.
//
// Writes go to "<path>.tmp" first and are renamed into place, so a crash
// mid-write leaves the previous record intact.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend storing the record at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the record file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}
	return data, nil
}

// Save implements Backend.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), storageDirPermissions); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, storageFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}
