package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/domain/plan"
	"github.com/caregate/caregate/ports"
)

// ErrInvalidCredentials is returned when authentication fails. One
// error for both unknown-email and wrong-password so responses don't
// reveal which accounts exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering with an email that
// already has an account.
var ErrEmailTaken = errors.New("email already registered")

// AccountService manages patient account registration, authentication,
// and tier changes. A new account's billing anchor is its signup
// instant, so every account's monthly period rolls over on its own
// anniversary day.
type AccountService struct {
	accounts ports.AccountStore
	ledger   *LedgerService
	hasher   ports.Hasher
	idGen    ports.IDGenerator
	clock    ports.Clock
	logger   zerolog.Logger
}

// NewAccountService creates an account service.
func NewAccountService(
	accounts ports.AccountStore,
	ledger *LedgerService,
	hasher ports.Hasher,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		ledger:   ledger,
		hasher:   hasher,
		idGen:    idGen,
		clock:    clock,
		logger:   logger,
	}
}

// Register creates a new account on the free tier.
func (s *AccountService) Register(ctx context.Context, email, password, name string) (ports.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return ports.Account{}, errors.New("invalid email")
	}
	if len(password) < 8 {
		return ports.Account{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ports.Account{}, ErrEmailTaken
	} else if !errors.Is(err, ports.ErrNotFound) {
		return ports.Account{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return ports.Account{}, err
	}

	now := s.clock.Now().UTC()
	account := ports.Account{
		ID:            s.idGen.New(),
		Email:         email,
		PasswordHash:  hash,
		Name:          strings.TrimSpace(name),
		Tier:          string(plan.TierFree),
		BillingAnchor: now,
		Status:        "active",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return ports.Account{}, err
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("tier", account.Tier).
		Msg("account registered")

	return account, nil
}

// Authenticate verifies email and password and returns the account.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (ports.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, ports.ErrNotFound) {
		return ports.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return ports.Account{}, err
	}

	if !s.hasher.Compare(account.PasswordHash, password) {
		s.logger.Warn().Str("account_id", account.ID).Msg("password mismatch")
		return ports.Account{}, ErrInvalidCredentials
	}
	if account.Status != "active" {
		return ports.Account{}, errors.New("account is " + account.Status)
	}

	return account, nil
}

// Get retrieves an account by ID.
func (s *AccountService) Get(ctx context.Context, id string) (ports.Account, error) {
	return s.accounts.Get(ctx, id)
}

// AttachBillingID records the payment provider customer ID on the
// account, creating the link used to resolve webhook events.
func (s *AccountService) AttachBillingID(ctx context.Context, accountID, billingID string) (ports.Account, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return ports.Account{}, err
	}
	if account.StripeID == billingID {
		return account, nil
	}

	account.StripeID = billingID
	account.UpdatedAt = s.clock.Now().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return ports.Account{}, err
	}
	return account, nil
}

// ChangeTier moves the account to a new tier and resets its
// current-period consumption so the new allowance starts clean.
// An unrecognized tier is coerced to free.
func (s *AccountService) ChangeTier(ctx context.Context, accountID, tier string) (ports.Account, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return ports.Account{}, err
	}

	normalized := string(plan.Normalize(tier))
	if account.Tier == normalized {
		return account, nil
	}

	previous := account.Tier
	account.Tier = normalized
	account.UpdatedAt = s.clock.Now().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return ports.Account{}, err
	}

	if err := s.ledger.ResetConsumption(ctx, accountID); err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Msg("tier changed but consumption reset failed")
		return account, err
	}

	s.logger.Info().
		Str("account_id", accountID).
		Str("from", previous).
		Str("to", normalized).
		Msg("tier changed")

	return account, nil
}
