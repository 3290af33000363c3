// Package app contains application services orchestrating domain logic and ports.
package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/adapters/metrics"
	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/domain/plan"
	"github.com/caregate/caregate/domain/quota"
	"github.com/caregate/caregate/domain/usage"
	"github.com/caregate/caregate/ports"
)

// LedgerService meters question consumption against each account's
// monthly allowance. Periods are computed from the account's billing
// anchor at call time; counter rows are created lazily on first
// consumption and never deleted.
type LedgerService struct {
	accounts ports.AccountStore
	store    ports.UsageStore
	clock    ports.Clock
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

// NewLedgerService creates a ledger service.
func NewLedgerService(
	accounts ports.AccountStore,
	store ports.UsageStore,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		accounts: accounts,
		store:    store,
		clock:    clock,
		metrics:  m,
		logger:   logger,
	}
}

// period resolves the account and its current billing period.
func (s *LedgerService) period(ctx context.Context, accountID string) (ports.Account, billing.Period, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return ports.Account{}, billing.Period{}, err
	}
	anchor := account.BillingAnchor
	if anchor.IsZero() {
		anchor = account.CreatedAt
	}
	return account, billing.CurrentPeriod(anchor, s.clock.Now()), nil
}

// GetUsage returns the consumption count for the account's current
// billing period. An account that has not consumed anything this
// period reads as zero without creating a counter row.
func (s *LedgerService) GetUsage(ctx context.Context, accountID string) (usage.Snapshot, error) {
	_, period, err := s.period(ctx, accountID)
	if err != nil {
		return usage.Snapshot{}, err
	}

	snap := usage.Snapshot{PeriodStart: period.Start, PeriodEnd: period.End}

	rec, err := s.store.Find(ctx, accountID, period.Start)
	if errors.Is(err, ports.ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return usage.Snapshot{}, err
	}

	snap.Count = rec.QueryCount
	return snap, nil
}

// CanConsume reports whether the account may consume one more unit in
// its current period, without consuming it. The answer is advisory:
// ConsumeIfAvailable makes the authoritative check-and-take decision.
func (s *LedgerService) CanConsume(ctx context.Context, accountID string) (quota.CheckResult, error) {
	account, period, err := s.period(ctx, accountID)
	if err != nil {
		return quota.CheckResult{}, err
	}

	var current int64
	rec, err := s.store.Find(ctx, accountID, period.Start)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return quota.CheckResult{}, err
	}
	if err == nil {
		current = rec.QueryCount
	}

	tier := string(plan.Normalize(account.Tier))
	result := quota.Check(current, plan.Allowance(account.Tier), 1)

	if s.metrics != nil {
		s.metrics.QuotaChecks.WithLabelValues(tier).Inc()
		if !result.Allowed {
			s.metrics.QuotaDenials.WithLabelValues(tier).Inc()
		}
		s.metrics.QuotaRemaining.WithLabelValues(tier).Set(float64(result.Remaining))
	}

	return result, nil
}

// RecordConsumption unconditionally adds delta consumptions to the
// account's current period, creating the counter row if absent.
// It does not enforce the allowance; metered call paths should use
// ConsumeIfAvailable instead.
func (s *LedgerService) RecordConsumption(ctx context.Context, accountID string, delta int64) (usage.Record, error) {
	_, period, err := s.period(ctx, accountID)
	if err != nil {
		return usage.Record{}, err
	}

	rec, err := s.store.UpsertIncrement(ctx, accountID, period, delta)
	if err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Int64("delta", delta).
			Msg("failed to record consumption")
		return usage.Record{}, err
	}

	s.logger.Debug().
		Str("account_id", accountID).
		Int64("delta", delta).
		Int64("count", rec.QueryCount).
		Time("period_start", period.Start).
		Msg("consumption recorded")

	return rec, nil
}

// ConsumeIfAvailable checks the allowance and takes one slot in a
// single atomic store operation, so two concurrent requests can never
// both take the last slot. Returns the outcome of the check; when
// Allowed is true the slot has already been consumed.
func (s *LedgerService) ConsumeIfAvailable(ctx context.Context, accountID string) (quota.CheckResult, error) {
	account, period, err := s.period(ctx, accountID)
	if err != nil {
		return quota.CheckResult{}, err
	}

	tier := string(plan.Normalize(account.Tier))
	limit := plan.Allowance(account.Tier)

	rec, taken, err := s.store.Reserve(ctx, accountID, period, limit)
	if err != nil {
		return quota.CheckResult{}, err
	}

	result := quota.CheckResult{
		Allowed: taken,
		Current: rec.QueryCount,
		Limit:   limit,
	}
	if remaining := limit - rec.QueryCount; remaining > 0 {
		result.Remaining = remaining
	}
	if !taken {
		result.Reason = "quota_exceeded"
	}

	if s.metrics != nil {
		s.metrics.QuotaChecks.WithLabelValues(tier).Inc()
		if !taken {
			s.metrics.QuotaDenials.WithLabelValues(tier).Inc()
		}
		s.metrics.QuotaRemaining.WithLabelValues(tier).Set(float64(result.Remaining))
	}

	if !taken {
		s.logger.Info().
			Str("account_id", accountID).
			Str("tier", tier).
			Int64("count", rec.QueryCount).
			Int64("limit", limit).
			Msg("consumption denied: allowance exhausted")
	}

	return result, nil
}

// ReleaseConsumption returns one previously reserved slot, used when
// downstream work fails after the slot was taken. The counter never
// goes below zero.
func (s *LedgerService) ReleaseConsumption(ctx context.Context, accountID string) error {
	_, period, err := s.period(ctx, accountID)
	if err != nil {
		return err
	}

	if _, err := s.store.UpsertIncrement(ctx, accountID, period, -1); err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Msg("failed to release consumption")
		return err
	}

	if s.metrics != nil {
		s.metrics.QuotaReleases.Inc()
	}
	return nil
}

// ResetConsumption zeroes the account's current-period counter, used
// on tier upgrades so the new allowance starts clean. Resetting an
// account with no counter row this period is a no-op.
func (s *LedgerService) ResetConsumption(ctx context.Context, accountID string) error {
	_, period, err := s.period(ctx, accountID)
	if err != nil {
		return err
	}

	err = s.store.SetCount(ctx, accountID, period.Start, 0)
	if errors.Is(err, ports.ErrNotFound) {
		// Nothing consumed this period yet.
		return nil
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.QuotaResets.Inc()
	}

	s.logger.Info().
		Str("account_id", accountID).
		Time("period_start", period.Start).
		Msg("consumption reset")

	return nil
}

// History returns the account's past period counters, newest first.
func (s *LedgerService) History(ctx context.Context, accountID string, limit int) ([]usage.Record, error) {
	return s.store.ListByAccount(ctx, accountID, limit)
}
