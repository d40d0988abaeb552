package learning

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps profiles in memory. Used in tests and when the service
// runs without a database path configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string][]byte)}
}

// Profiles round-trip through JSON so callers never share pointers with the
// store, matching the SQL store's behaviour.

func (s *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	raw, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrProfileNotFound
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MemoryStore) Put(_ context.Context, profile *Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[profile.UserID] = raw
	s.mu.Unlock()
	return nil
}
