package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/ports"
)

// DummyProvider simulates successful payments for development and
// demos when real payment credentials aren't available.
type DummyProvider struct {
	baseURL string
}

// NewDummyProvider creates a new dummy payment provider.
func NewDummyProvider(baseURL string) *DummyProvider {
	return &DummyProvider{baseURL: baseURL}
}

// Name returns the provider name.
func (p *DummyProvider) Name() string {
	return "dummy"
}

// CreateCustomer returns a fake customer ID derived from the account.
func (p *DummyProvider) CreateCustomer(ctx context.Context, email, name, accountID string) (string, error) {
	id := accountID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("cus_dummy_%s", id), nil
}

// CreateCheckoutSession skips checkout and redirects straight to the
// success URL so the full upgrade flow can be exercised without a
// real payment.
func (p *DummyProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	return successURL, nil
}

// CreatePortalSession redirects back without an external portal.
func (p *DummyProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return returnURL, nil
}

// CancelSubscription simulates successful cancellation.
func (p *DummyProvider) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) error {
	return nil
}

// GetSubscription returns a dummy active subscription.
func (p *DummyProvider) GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	now := time.Now().UTC()
	return billing.Subscription{
		ID:                 subscriptionID,
		ProviderID:         subscriptionID,
		Provider:           "dummy",
		Status:             billing.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
	}, nil
}

// ParseWebhook accepts any payload without signature verification.
func (p *DummyProvider) ParseWebhook(payload []byte, signature string) (string, map[string]any, error) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", nil, err
	}

	var data map[string]any
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return "", nil, err
		}
	}
	return envelope.Type, data, nil
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*DummyProvider)(nil)
