package localstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements BlobStore with one file per key under a directory.
// It is the client-side equivalent of browser local storage: it survives
// restarts of the process but is not shared across machines.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-backed blob store rooted at dir,
// creating the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("localstore: directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("localstore: failed to create directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Get returns the value for key if present
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("localstore: failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set stores the value for key. The write goes through a temp file and a
// rename so a crash mid-write cannot leave a torn value behind.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("localstore: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("localstore: failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: failed to persist %s: %w", key, err)
	}
	return nil
}

// Remove deletes the value for key. Removing an absent key is not an error.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("localstore: failed to remove %s: %w", key, err)
	}
	return nil
}

// path maps a key to a file name. Query escaping covers every character
// that is unsafe in a file name (":", "/", "\") and is collision-free, so
// distinct keys can never share a file.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+".json")
}

// Ensure FileStore implements BlobStore interface
var _ BlobStore = (*FileStore)(nil)
