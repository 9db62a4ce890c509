package visitors

import (
	"context"
	"sync"
	"time"
)

// SessionStore keeps the last-seen time of each live session.
type SessionStore interface {
	// Touch records id as seen at the given time, adding it if new.
	Touch(ctx context.Context, id string, at time.Time) error
	// Refresh updates id only if it is already known.
	Refresh(ctx context.Context, id string, at time.Time) (bool, error)
	Remove(ctx context.Context, id string) error
	// Prune drops sessions last seen strictly before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is a process-local SessionStore. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time)}
}

func (s *MemoryStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	s.sessions[id] = at
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Refresh(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	s.sessions[id] = at
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, seen := range s.sessions {
		if seen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), nil
}
