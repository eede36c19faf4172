package handshake

import (
	"sync"
	"time"
)

type pendingRequest struct {
	id        string
	createdAt time.Time
}

// PendingStore holds at most one pending handshake identifier per user.
// Entries expire after the configured TTL and are purged on completion, so
// an identifier never outlives one handshake attempt.
type PendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]pendingRequest
}

// NewPendingStore builds an empty store with the given entry TTL.
func NewPendingStore(ttl time.Duration) *PendingStore {
	return &PendingStore{
		ttl:     ttl,
		entries: make(map[string]pendingRequest),
	}
}

// Put records the pending identifier for a user, replacing any previous one.
func (s *PendingStore) Put(userID, requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = pendingRequest{id: requestID, createdAt: time.Now()}
}

// Get returns the user's pending identifier. Expired entries are treated as
// absent and removed.
func (s *PendingStore) Get(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return "", false
	}
	if time.Since(entry.createdAt) > s.ttl {
		delete(s.entries, userID)
		return "", false
	}
	return entry.id, true
}

// Delete purges the user's pending identifier.
func (s *PendingStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// PurgeExpired removes all expired entries and reports how many were removed.
// The background scheduler calls this periodically so abandoned handshakes
// do not accumulate.
func (s *PendingStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for userID, entry := range s.entries {
		if time.Since(entry.createdAt) > s.ttl {
			delete(s.entries, userID)
			n++
		}
	}
	return n
}
