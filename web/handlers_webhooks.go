package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/caregate/caregate/domain/billing"
)

// maxWebhookBody bounds webhook payloads. Stripe events are small;
// anything bigger is not a webhook.
const maxWebhookBody = 1 << 20

// PaymentWebhook receives payment provider events. Signature
// verification happens inside ParseWebhook, so this endpoint skips
// JWT auth.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.payments == nil || h.webhooks == nil {
		http.Error(w, "payments disabled", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	eventType, data, err := h.payments.ParseWebhook(body, r.Header.Get(signatureHeader(h.payments.Name())))
	if err != nil {
		h.logger.Warn().Err(err).Msg("invalid webhook signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	h.logger.Info().
		Str("provider", h.payments.Name()).
		Str("event_type", eventType).
		Msg("received payment webhook")

	if err := h.dispatchWebhookEvent(ctx, eventType, data); err != nil {
		h.logger.Error().Err(err).
			Str("event_type", eventType).
			Msg("failed to handle webhook event")
		// Still return 200: providers retry on non-2xx, and
		// application-level failures will not heal on retry.
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func signatureHeader(provider string) string {
	switch provider {
	case "stripe":
		return "Stripe-Signature"
	default:
		return "X-Signature"
	}
}

func (h *Handler) dispatchWebhookEvent(ctx context.Context, eventType string, data map[string]any) error {
	switch eventType {
	case "checkout.session.completed":
		customerID, _ := data["customer"].(string)
		subscriptionID, _ := data["subscription"].(string)
		return h.webhooks.HandleCheckoutCompleted(ctx, customerID, subscriptionID,
			extractPriceID(data), extractPeriodStart(data))

	case "customer.subscription.updated":
		customerID, _ := data["customer"].(string)
		rawStatus, _ := data["status"].(string)
		return h.webhooks.HandleSubscriptionUpdated(ctx, customerID,
			extractPriceID(data), subscriptionStatus(rawStatus))

	case "customer.subscription.deleted":
		customerID, _ := data["customer"].(string)
		return h.webhooks.HandleSubscriptionCancelled(ctx, customerID)

	default:
		h.logger.Debug().
			Str("event_type", eventType).
			Msg("ignoring unhandled webhook event type")
		return nil
	}
}

// extractPriceID pulls the price ID out of a checkout session or
// subscription object. Sessions carry it in metadata; subscriptions
// carry it on the first line item.
func extractPriceID(data map[string]any) string {
	if meta, ok := data["metadata"].(map[string]any); ok {
		if id, ok := meta["price_id"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := data["price_id"].(string); ok && id != "" {
		return id
	}
	if items, ok := data["items"].(map[string]any); ok {
		if list, ok := items["data"].([]any); ok && len(list) > 0 {
			if item, ok := list[0].(map[string]any); ok {
				if price, ok := item["price"].(map[string]any); ok {
					id, _ := price["id"].(string)
					return id
				}
			}
		}
	}
	return ""
}

func extractPeriodStart(data map[string]any) time.Time {
	if ts, ok := data["current_period_start"].(float64); ok && ts > 0 {
		return time.Unix(int64(ts), 0).UTC()
	}
	return time.Time{}
}

// subscriptionStatus maps provider status strings onto the domain
// status set. Stripe spells it "canceled".
func subscriptionStatus(raw string) billing.SubscriptionStatus {
	switch raw {
	case "active":
		return billing.SubscriptionStatusActive
	case "trialing":
		return billing.SubscriptionStatusTrialing
	case "past_due":
		return billing.SubscriptionStatusPastDue
	case "canceled", "cancelled":
		return billing.SubscriptionStatusCancelled
	case "unpaid":
		return billing.SubscriptionStatusUnpaid
	case "paused":
		return billing.SubscriptionStatusPaused
	default:
		return billing.SubscriptionStatusActive
	}
}
