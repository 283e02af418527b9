// Package localstore provides the client-side persistent store backing the
// guest cart and session token: a string-keyed blob store with
// interchangeable file, Redis and in-memory backends.
package localstore

import (
	"context"
	"sync"
)

// BlobStore is a string-keyed blob store.
// Get reports presence separately from errors so callers can distinguish
// "no value" from "store unavailable".
type BlobStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore implements BlobStore using an in-memory map.
// This is suitable for ephemeral sessions and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates a new in-memory blob store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]string),
	}
}

// Get returns the value for key if present
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	return value, ok, nil
}

// Set stores the value for key
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return nil
}

// Remove deletes the value for key. Removing an absent key is not an error.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Ensure MemoryStore implements BlobStore interface
var _ BlobStore = (*MemoryStore)(nil)
