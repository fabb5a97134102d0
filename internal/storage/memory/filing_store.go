// Package memory provides in-memory port implementations for development and
// deterministic testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/filing-harvester/internal/filing"
)

// FilingStore keeps filings in a map guarded by a mutex. Safe for concurrent
// use by the worker pool.
type FilingStore struct {
	mu      sync.RWMutex
	filings map[string]filing.Filing
	order   []string
}

// NewFilingStore constructs an empty FilingStore.
func NewFilingStore() *FilingStore {
	return &FilingStore{
		filings: make(map[string]filing.Filing),
	}
}

// Seed inserts or replaces filings, preserving insertion order for pending scans.
func (s *FilingStore) Seed(filings ...filing.Filing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fl := range filings {
		if _, exists := s.filings[fl.ID]; !exists {
			s.order = append(s.order, fl.ID)
		}
		s.filings[fl.ID] = fl
	}
}

// GetFilingsByIDs returns the filings for the given IDs. Unknown IDs are an error.
func (s *FilingStore) GetFilingsByIDs(_ context.Context, ids []string) ([]filing.Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]filing.Filing, 0, len(ids))
	for _, id := range ids {
		fl, ok := s.filings[id]
		if !ok {
			return nil, fmt.Errorf("filing %q not found", id)
		}
		out = append(out, fl)
	}
	return out, nil
}

// GetPendingFilings returns up to limit filings awaiting their first attempt.
func (s *FilingStore) GetPendingFilings(_ context.Context, limit int) ([]filing.Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]filing.Filing, 0, limit)
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		fl := s.filings[id]
		if fl.Status == filing.StatusPending {
			out = append(out, fl)
		}
	}
	return out, nil
}

// SetInProgress marks a filing PROCESSING.
func (s *FilingStore) SetInProgress(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fl, ok := s.filings[id]
	if !ok {
		return fmt.Errorf("filing %q not found", id)
	}
	fl.Status = filing.StatusProcessing
	s.filings[id] = fl
	return nil
}

// SetTerminalStatus records the outcome of an acquisition attempt.
func (s *FilingStore) SetTerminalStatus(_ context.Context, id, localPath, storageKey string, status filing.Status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fl, ok := s.filings[id]
	if !ok {
		return fmt.Errorf("filing %q not found", id)
	}
	fl.Status = status
	fl.LocalPath = localPath
	fl.StorageKey = storageKey
	fl.LastError = errMsg
	s.filings[id] = fl
	return nil
}

// Get returns a filing by ID for test assertions.
func (s *FilingStore) Get(id string) (filing.Filing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fl, ok := s.filings[id]
	return fl, ok
}
