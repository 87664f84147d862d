package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend persists the raw catalog document
type Backend interface {
	// Read returns the stored document, an error matching os.ErrNotExist when there is none
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored document
	Write(ctx context.Context, bs []byte) error
}

// File stores the catalog as a single JSON file
type File struct {
	path string
}

var _ Backend = (*File)(nil)

// NewFile returns a file backend writing to path
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location
func (f *File) Path() string {
	return f.path
}

// Read implements Backend
func (f *File) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.path)
}

// Write implements Backend. The document is written to a temp file in the same
// directory and renamed over the target, readers never see a partial file.
func (f *File) Write(ctx context.Context, bs []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(bs); err != nil {
		return errors.Join(err, tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Sync(); err != nil {
		return errors.Join(err, tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(err, os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Join(err, os.Remove(tmpName))
	}
	return nil
}
