package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record   Record
	deadline time.Time
}

// MemoryStore is a process-local Store used by tests and single-node
// deployments. The mutex stands in for the atomicity the Redis scripts
// provide across workers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	now func() time.Time // for testing
}

// NewMemoryStore creates an in-memory idempotency store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, rec *Record, processingTTL time.Duration) (bool, *Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey(rec.Principal, rec.Key)
	if entry, ok := s.entries[k]; ok && s.now().Before(entry.deadline) {
		existing := entry.record
		return false, &existing, nil
	}

	s.entries[k] = memoryEntry{record: *rec, deadline: s.now().Add(processingTTL)}
	return true, nil, nil
}

func (s *MemoryStore) Finalize(_ context.Context, principal, key, owner string, responseStatus int, responseBody string, recordTTL time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey(principal, key)
	entry, ok := s.entries[k]
	if !ok || s.now().After(entry.deadline) {
		return false, nil
	}
	if entry.record.Owner != owner || entry.record.Status != StatusProcessing {
		return false, nil
	}

	entry.record.Status = StatusCompleted
	entry.record.Owner = ""
	entry.record.ResponseStatus = responseStatus
	entry.record.ResponseBody = responseBody
	entry.record.ExpiresAt = s.now().Add(recordTTL)
	entry.deadline = entry.record.ExpiresAt
	s.entries[k] = entry
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, principal, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey(principal, key)
	if entry, ok := s.entries[k]; ok && entry.record.Owner == owner {
		delete(s.entries, k)
	}
	return nil
}
