package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory blob store for tests and ephemeral runs.
// It counts writes and supports failure injection so orchestration tests
// can exercise storage outages and resume-after-reclaim behavior.
type MemoryStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	putCalls int
	failPuts int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores data under key, honoring any injected failures.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putCalls++
	if s.failPuts > 0 {
		s.failPuts--
		return fmt.Errorf("%w: injected failure", ErrUnavailable)
	}

	if _, ok := s.blobs[key]; ok {
		return nil
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

// Get returns the bytes stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Has reports whether key exists.
func (s *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.blobs[key]
	return ok, nil
}

// PutCalls returns how many times Put was invoked, including no-op and
// failed calls.
func (s *MemoryStore) PutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCalls
}

// FailNextPuts makes the next n Put calls fail with ErrUnavailable.
func (s *MemoryStore) FailNextPuts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts = n
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
