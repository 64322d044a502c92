package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps attempt logs in process memory. Counters reset on restart.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

// TrimWindow drops attempts older than window relative to reference.
func (s *MemoryStore) TrimWindow(_ context.Context, key string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	entries := s.attempts[key]
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].After(threshold) })
	if idx == len(entries) {
		delete(s.attempts, key)
		return nil
	}
	s.attempts[key] = append([]time.Time(nil), entries[idx:]...)
	return nil
}

// CountAttempts returns how many attempts fall inside (reference-window, reference].
func (s *MemoryStore) CountAttempts(_ context.Context, key string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[key] {
		if at.After(threshold) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

// RecordAttempt appends an attempt, keeping the entries ordered.
func (s *MemoryStore) RecordAttempt(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.attempts[key]
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].After(at) })
	entries = append(entries, time.Time{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = at
	s.attempts[key] = entries
	return nil
}

// OldestAttempt returns the oldest attempt inside the window.
func (s *MemoryStore) OldestAttempt(_ context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	for _, at := range s.attempts[key] {
		if at.After(threshold) && !at.After(reference) {
			return at, true, nil
		}
	}
	return time.Time{}, false, nil
}

// PurgeExpired drops every key whose newest attempt is at or before now-maxWindow and
// returns how many keys were removed. maxWindow must cover the longest rule window.
func (s *MemoryStore) PurgeExpired(now time.Time, maxWindow time.Duration) int {
	if maxWindow <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := now.Add(-maxWindow)
	removed := 0
	for key, entries := range s.attempts {
		if len(entries) == 0 || !entries[len(entries)-1].After(threshold) {
			delete(s.attempts, key)
			removed++
		}
	}
	return removed
}

// Keys returns the number of tracked keys.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
