package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/adapters/metrics"
	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/domain/plan"
	"github.com/caregate/caregate/ports"
)

// PaymentWebhookService applies payment provider events to accounts.
// It implements ports.PaymentWebhookHandler.
type PaymentWebhookService struct {
	accounts   ports.AccountStore
	ledger     *LedgerService
	priceTiers map[string]string // provider price ID -> tier name
	clock      ports.Clock
	metrics    *metrics.Collector
	logger     zerolog.Logger
}

// NewPaymentWebhookService creates a payment webhook service.
// priceTiers maps provider price IDs onto tier names; an event with an
// unmapped price is treated as free.
func NewPaymentWebhookService(
	accounts ports.AccountStore,
	ledger *LedgerService,
	priceTiers map[string]string,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *PaymentWebhookService {
	return &PaymentWebhookService{
		accounts:   accounts,
		ledger:     ledger,
		priceTiers: priceTiers,
		clock:      clock,
		metrics:    m,
		logger:     logger,
	}
}

func (s *PaymentWebhookService) tierForPrice(priceID string) string {
	return string(plan.Normalize(s.priceTiers[priceID]))
}

func (s *PaymentWebhookService) countEvent(event string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.WebhookEvents.WithLabelValues(event, outcome).Inc()
}

// HandleCheckoutCompleted moves the account onto the purchased tier.
// The billing anchor follows the provider's period start so our
// monthly window matches what the patient is invoiced for, and the
// current-period counter resets so the new allowance starts clean.
func (s *PaymentWebhookService) HandleCheckoutCompleted(
	ctx context.Context,
	customerID, subscriptionID, priceID string,
	periodStart time.Time,
) (err error) {
	defer func() { s.countEvent("checkout_completed", err) }()

	account, err := s.accounts.GetByStripeID(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("customer_id", customerID).
			Msg("checkout completed for unknown customer")
		return err
	}

	tier := s.tierForPrice(priceID)
	account.Tier = tier
	if !periodStart.IsZero() {
		account.BillingAnchor = periodStart.UTC()
	}
	account.UpdatedAt = s.clock.Now().UTC()

	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	if err := s.ledger.ResetConsumption(ctx, account.ID); err != nil {
		s.logger.Error().Err(err).
			Str("account_id", account.ID).
			Msg("tier applied but consumption reset failed")
		return err
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("tier", tier).
		Str("subscription_id", subscriptionID).
		Time("anchor", account.BillingAnchor).
		Msg("checkout completed, tier applied")

	return nil
}

// HandleSubscriptionUpdated applies plan changes pushed by the
// provider. Only active and trialing subscriptions keep their paid
// tier; anything else drops the account to free.
func (s *PaymentWebhookService) HandleSubscriptionUpdated(
	ctx context.Context,
	customerID, priceID string,
	status billing.SubscriptionStatus,
) (err error) {
	defer func() { s.countEvent("subscription_updated", err) }()

	account, err := s.accounts.GetByStripeID(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("customer_id", customerID).
			Msg("subscription update for unknown customer")
		return err
	}

	sub := billing.Subscription{Status: status}
	tier := string(plan.TierFree)
	if sub.IsActive() {
		tier = s.tierForPrice(priceID)
	}

	if account.Tier == tier {
		return nil
	}

	upgrade := plan.Allowance(tier) > plan.Allowance(account.Tier)
	account.Tier = tier
	account.UpdatedAt = s.clock.Now().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	// Upgrades start the larger allowance clean; downgrades keep the
	// counter so the period's consumption still counts against the
	// smaller limit.
	if upgrade {
		if err := s.ledger.ResetConsumption(ctx, account.ID); err != nil {
			return err
		}
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("tier", tier).
		Str("status", string(status)).
		Msg("subscription updated")

	return nil
}

// HandleSubscriptionCancelled drops the account back to the free
// tier. Consumption is kept: what was used this period still counts
// against the free allowance.
func (s *PaymentWebhookService) HandleSubscriptionCancelled(
	ctx context.Context,
	customerID string,
) (err error) {
	defer func() { s.countEvent("subscription_cancelled", err) }()

	account, err := s.accounts.GetByStripeID(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("customer_id", customerID).
			Msg("cancellation for unknown customer")
		return err
	}

	if account.Tier == string(plan.TierFree) {
		return nil
	}

	account.Tier = string(plan.TierFree)
	account.UpdatedAt = s.clock.Now().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Msg("subscription cancelled, account back on free tier")

	return nil
}

// Ensure interface compliance.
var _ ports.PaymentWebhookHandler = (*PaymentWebhookService)(nil)
