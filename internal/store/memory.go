package store

import (
	"context"
	"sync"
	"time"

	"github.com/davidfries/hooky/internal/models"
)

type memoryEntry struct {
	endpoint *models.Endpoint
	requests []*models.CapturedRequest
}

// MemoryStore is the in-process fallback backend. All mutations are serialized
// under one RWMutex; individual operations are short map and slice edits, so
// per-endpoint locking is not worth the bookkeeping.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) CreateEndpoint(ctx context.Context, ep *models.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[ep.ID] = &memoryEntry{endpoint: ep}
	return nil
}

func (s *MemoryStore) GetEndpoint(ctx context.Context, id string) (*models.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, ErrEndpointNotFound
	}
	return entry.endpoint, nil
}

func (s *MemoryStore) ListEndpoints(ctx context.Context) ([]*models.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endpoints := make([]*models.Endpoint, 0, len(s.entries))
	for _, entry := range s.entries {
		endpoints = append(endpoints, entry.endpoint)
	}
	return endpoints, nil
}

func (s *MemoryStore) DeleteEndpoint(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// AppendRequest prepends the request and trims the log to MaxRequests under
// the store lock, so two simultaneous captures to the same endpoint cannot
// race past the cap. A missing endpoint is reported, not an error; the
// authoritative not-found check happens in the capture flow before this call.
func (s *MemoryStore) AppendRequest(ctx context.Context, id string, req *models.CapturedRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[id]
	if !exists {
		return false, nil
	}

	entry.requests = append([]*models.CapturedRequest{req}, entry.requests...)
	if len(entry.requests) > MaxRequests {
		entry.requests = entry.requests[:MaxRequests]
	}
	return true, nil
}

func (s *MemoryStore) ListRequests(ctx context.Context, id string) ([]*models.CapturedRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, ErrEndpointNotFound
	}

	requests := make([]*models.CapturedRequest, len(entry.requests))
	copy(requests, entry.requests)
	return requests, nil
}

func (s *MemoryStore) CountRequests(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return 0, ErrEndpointNotFound
	}
	return len(entry.requests), nil
}

// Sweep removes every endpoint whose TTL has elapsed, along with its request
// log, and returns the removed IDs.
func (s *MemoryStore) Sweep(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed []string
	for id, entry := range s.entries {
		if entry.endpoint.Expired(now) {
			delete(s.entries, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
