package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/domain/profile"
	"github.com/caregate/caregate/ports"
)

// ProfileService manages the per-account medical profile.
type ProfileService struct {
	profiles ports.ProfileStore
	clock    ports.Clock
	logger   zerolog.Logger
}

// NewProfileService creates a profile service.
func NewProfileService(profiles ports.ProfileStore, clock ports.Clock, logger zerolog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, clock: clock, logger: logger}
}

// Get retrieves the account's profile. An account that never saved a
// profile gets an empty one rather than an error.
func (s *ProfileService) Get(ctx context.Context, accountID string) (profile.Profile, error) {
	p, err := s.profiles.Get(ctx, accountID)
	if errors.Is(err, ports.ErrNotFound) {
		return profile.Profile{AccountID: accountID}, nil
	}
	return p, err
}

// Put validates and saves the account's profile, replacing any
// previous version.
func (s *ProfileService) Put(ctx context.Context, p profile.Profile) error {
	now := s.clock.Now().UTC()
	if err := profile.Validate(p, now); err != nil {
		return err
	}

	p.UpdatedAt = now
	if err := s.profiles.Put(ctx, p); err != nil {
		return err
	}

	s.logger.Debug().Str("account_id", p.AccountID).Msg("profile saved")
	return nil
}
