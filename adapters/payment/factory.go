package payment

import (
	"fmt"

	"github.com/caregate/caregate/ports"
)

// Config selects and configures a payment provider.
type Config struct {
	Provider string // "stripe", "dummy", "none"
	BaseURL  string // used by the dummy provider for redirects
	Stripe   StripeConfig
}

// NewProvider creates a payment provider from configuration.
func NewProvider(cfg Config) (ports.PaymentProvider, error) {
	switch cfg.Provider {
	case "stripe":
		if cfg.Stripe.SecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		return NewStripeProvider(cfg.Stripe), nil

	case "dummy", "test":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}
		return NewDummyProvider(baseURL), nil

	case "none", "":
		return NewNoopProvider(), nil

	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.Provider)
	}
}
