package auth

import (
	"context"
	"sync"
	"time"
)

// SessionStore holds server-side session state keyed by session id.
// Implementations evict entries once State.ExpiresAt has passed.
type SessionStore interface {
	// Get returns the state for id; ok is false when the id is unknown or expired.
	Get(ctx context.Context, id string) (state State, ok bool, err error)
	// Put replaces the state for id.
	Put(ctx context.Context, id string, state State) error
	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// memoryEntry stores a session state with expiry.
type memoryEntry struct {
	state   State
	expires time.Time
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{items: make(map[string]memoryEntry), now: now}
}

// Get returns session state if present and not expired.
func (s *MemorySessionStore) Get(_ context.Context, id string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[id]
	if !ok {
		return State{}, false, nil
	}
	if !s.now().Before(entry.expires) {
		delete(s.items, id)
		return State{}, false, nil
	}
	return entry.state, true, nil
}

// Put stores state until its expiry. Anonymous states are removed instead of stored.
func (s *MemorySessionStore) Put(_ context.Context, id string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state.Phase == PhaseAnonymous {
		delete(s.items, id)
		return nil
	}
	s.items[id] = memoryEntry{state: state, expires: state.ExpiresAt}
	return nil
}

// Delete removes a session entry.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (s *MemorySessionStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.items {
		if !now.Before(entry.expires) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
