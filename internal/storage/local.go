package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore keeps files under baseDir/<id>/<name> on the local disk.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Upload writes the file, creating the namespace directory on first use.
func (s *LocalStore) Upload(_ context.Context, id, name string, data []byte) error {
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create namespace %s: %w", id, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write %s/%s: %w", id, name, err)
	}
	return nil
}

// Download reads one file back.
func (s *LocalStore) Download(_ context.Context, id, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, name))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", id, name, err)
	}
	return data, nil
}

// List returns the file names in one namespace.
func (s *LocalStore) List(_ context.Context, id string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, id))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", id, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
