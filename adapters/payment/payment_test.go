package payment

import (
	"context"
	"errors"
	"testing"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{"empty defaults to noop", Config{}, "none", false},
		{"none", Config{Provider: "none"}, "none", false},
		{"dummy", Config{Provider: "dummy"}, "dummy", false},
		{"test alias", Config{Provider: "test"}, "dummy", false},
		{"stripe", Config{Provider: "stripe", Stripe: StripeConfig{SecretKey: "sk_test"}}, "stripe", false},
		{"stripe without key", Config{Provider: "stripe"}, "", true},
		{"unknown", Config{Provider: "paypal"}, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewProvider(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tc.wantName {
				t.Errorf("name = %q, want %q", p.Name(), tc.wantName)
			}
		})
	}
}

func TestNoopProvider_Disabled(t *testing.T) {
	p := NewNoopProvider()
	ctx := context.Background()

	if _, err := p.CreateCustomer(ctx, "pat@example.com", "Pat", "acc-1"); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("CreateCustomer err = %v", err)
	}
	if _, err := p.CreateCheckoutSession(ctx, "cus", "price", "s", "c"); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("CreateCheckoutSession err = %v", err)
	}
	if _, _, err := p.ParseWebhook(nil, ""); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("ParseWebhook err = %v", err)
	}
}

func TestDummyProvider(t *testing.T) {
	p := NewDummyProvider("http://localhost:8080")
	ctx := context.Background()

	id, err := p.CreateCustomer(ctx, "pat@example.com", "Pat", "account-12345")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if id != "cus_dummy_account-" {
		t.Errorf("customer id = %q", id)
	}

	url, err := p.CreateCheckoutSession(ctx, id, "price_pro", "http://ok", "http://no")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if url != "http://ok" {
		t.Errorf("checkout url = %q, want the success URL", url)
	}

	sub, err := p.GetSubscription(ctx, "sub_1")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if !sub.IsActive() {
		t.Error("dummy subscription should be active")
	}
}

func TestDummyProvider_ParseWebhook(t *testing.T) {
	p := NewDummyProvider("")

	event, data, err := p.ParseWebhook([]byte(`{"type":"checkout.session.completed","data":{"customer":"cus_1"}}`), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event != "checkout.session.completed" {
		t.Errorf("event = %q", event)
	}
	if data["customer"] != "cus_1" {
		t.Errorf("data = %v", data)
	}

	if _, _, err := p.ParseWebhook([]byte("not json"), ""); err == nil {
		t.Error("expected parse error")
	}
}
