package billing

import "time"

// SubscriptionStatus represents subscription state.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid    SubscriptionStatus = "unpaid"
)

// Subscription represents a payment-provider subscription (value type).
// The provider owns the subscription lifecycle; we only mirror the
// fields needed to map webhook events onto accounts.
type Subscription struct {
	ID                 string
	AccountID          string
	Tier               string
	ProviderID         string // external ID at the payment provider
	Provider           string // "stripe", "noop", "dummy"
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// IsActive returns true if the subscription is in an active state.
func (s Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}
