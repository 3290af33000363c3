// Package memory provides in-memory implementations of storage ports.
// Used by tests and by `caregate serve --ephemeral`.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/caregate/caregate/ports"
)

// AccountStore is an in-memory implementation of ports.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]ports.Account
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]ports.Account)}
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (ports.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return ports.Account{}, ports.ErrNotFound
	}
	return a, nil
}

// GetByEmail retrieves an account by email.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (ports.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return ports.Account{}, ports.ErrNotFound
}

// GetByStripeID retrieves an account by payment-provider customer ID.
func (s *AccountStore) GetByStripeID(ctx context.Context, stripeID string) (ports.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.StripeID != "" && a.StripeID == stripeID {
			return a, nil
		}
	}
	return ports.Account{}, ports.ErrNotFound
}

// Create stores a new account.
func (s *AccountStore) Create(ctx context.Context, a ports.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.BillingAnchor.IsZero() {
		a.BillingAnchor = a.CreatedAt
	}

	s.accounts[a.ID] = a
	return nil
}

// Update modifies an existing account.
func (s *AccountStore) Update(ctx context.Context, a ports.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; !ok {
		return ports.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	s.accounts[a.ID] = a
	return nil
}

// List returns accounts with pagination.
func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]ports.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []ports.Account
	for _, a := range s.accounts {
		all = append(all, a)
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Count returns total account count.
func (s *AccountStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
