package memory

import (
	"context"
	"sync"
	"time"

	"github.com/caregate/caregate/domain/profile"
	"github.com/caregate/caregate/ports"
)

// ProfileStore is an in-memory implementation of ports.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

// NewProfileStore creates an empty in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]profile.Profile)}
}

// Get retrieves the profile for an account.
func (s *ProfileStore) Get(ctx context.Context, accountID string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[accountID]
	if !ok {
		return profile.Profile{}, ports.ErrNotFound
	}
	return p, nil
}

// Put creates or replaces the profile for an account.
func (s *ProfileStore) Put(ctx context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	s.profiles[p.AccountID] = p
	return nil
}

// Ensure interface compliance.
var _ ports.ProfileStore = (*ProfileStore)(nil)
