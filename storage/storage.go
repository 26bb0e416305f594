// Package storage persists uploaded drawing files to a stable location
// before their extraction job is enqueued.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore writes uploads into a rooted directory.
type FileStore struct {
	root string
}

// NewFileStore creates the upload directory if needed and returns a store
// rooted there.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Save writes the upload under its base filename and returns the stable
// path. The filename is reduced to its base so a crafted name cannot
// escape the root.
func (s *FileStore) Save(filename string, r io.Reader) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	path := filepath.Join(s.root, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// Root returns the upload directory.
func (s *FileStore) Root() string {
	return s.root
}
