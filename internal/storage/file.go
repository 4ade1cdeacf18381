package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists all keys in a single JSON document. Every operation
// re-reads the document so that separate CLI invocations and the web
// shell observe each other's writes; writes replace the file atomically.
// Read-modify-write cycles hold an advisory lock on "<path>.lock", so
// processes sharing the file do not lose each other's updates.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore rooted at path. The parent directory
// is created with 0700 permissions if it does not exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	unlock, err := lockFile(f.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	unlock, err := lockFile(f.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save(values)
}

func (f *FileStore) Keys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return nil, err
	}
	return matchKeys(values, prefix), nil
}

// load reads the document. A missing file is an empty store; a corrupt
// file is logged and treated as empty so that it gets rewritten on the
// next save instead of wedging every caller.
func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		slog.Warn("storage file is corrupt, starting empty",
			"path", f.path,
			"error", err,
		)
		return make(map[string]string), nil
	}
	return values, nil
}

func (f *FileStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp storage file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set storage file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close storage file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
