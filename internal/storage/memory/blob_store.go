package memory

import (
	"context"
	"fmt"
	"sync"
)

// BlobStore stores document bytes in-memory and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// PutObject persists the content under key and returns a memory:// URI.
func (s *BlobStore) PutObject(_ context.Context, key, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", key), nil
}

// Get returns stored bytes for test assertions.
func (s *BlobStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	return data, ok
}

// Len reports the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// NoOpBlobStore discards writes; used for dry runs and previews.
type NoOpBlobStore struct{}

// PutObject does nothing and returns a noop:// URI.
func (NoOpBlobStore) PutObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	return fmt.Sprintf("noop://%s", key), nil
}
