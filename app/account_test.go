package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/adapters/clock"
	"github.com/caregate/caregate/adapters/hasher"
	"github.com/caregate/caregate/adapters/idgen"
	"github.com/caregate/caregate/adapters/memory"
)

type accountFixture struct {
	svc    *AccountService
	ledger *LedgerService
	store  *memory.UsageStore
	clock  *clock.Fake
}

func newAccountFixture(t *testing.T) accountFixture {
	t.Helper()

	accounts := memory.NewAccountStore()
	store := memory.NewUsageStore()
	clk := clock.NewFake(time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC))
	ledger := NewLedgerService(accounts, store, clk, nil, zerolog.Nop())

	return accountFixture{
		svc:    NewAccountService(accounts, ledger, hasher.Fake{}, idgen.NewSequential("acc"), clk, zerolog.Nop()),
		ledger: ledger,
		store:  store,
		clock:  clk,
	}
}

func TestAccount_RegisterSetsAnchorToSignupTime(t *testing.T) {
	f := newAccountFixture(t)

	account, err := f.svc.Register(context.Background(), "Pat@Example.com", "secret-pass", "Pat")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Email != "pat@example.com" {
		t.Errorf("email not normalized: %q", account.Email)
	}
	if account.Tier != "free" {
		t.Errorf("new accounts start on the free tier, got %q", account.Tier)
	}
	if !account.BillingAnchor.Equal(f.clock.Now()) {
		t.Errorf("billing anchor = %v, want signup time %v", account.BillingAnchor, f.clock.Now())
	}
}

func TestAccount_RegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "pat@example.com", "secret-pass", "Pat"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Register(ctx, "PAT@example.com", "other-pass", "Imposter"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAccount_RegisterValidation(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "not-an-email", "secret-pass", ""); err == nil {
		t.Error("expected rejection of invalid email")
	}
	if _, err := f.svc.Register(ctx, "pat@example.com", "short", ""); err == nil {
		t.Error("expected rejection of short password")
	}
}

func TestAccount_Authenticate(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	created, err := f.svc.Register(ctx, "pat@example.com", "secret-pass", "Pat")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := f.svc.Authenticate(ctx, "pat@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("authenticated wrong account: %q", got.ID)
	}

	if _, err := f.svc.Authenticate(ctx, "pat@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "nobody@example.com", "secret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccount_ChangeTierResetsConsumption(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	account, err := f.svc.Register(ctx, "pat@example.com", "secret-pass", "Pat")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.ledger.RecordConsumption(ctx, account.ID, 15); err != nil {
		t.Fatalf("record: %v", err)
	}

	upgraded, err := f.svc.ChangeTier(ctx, account.ID, "pro")
	if err != nil {
		t.Fatalf("change tier: %v", err)
	}
	if upgraded.Tier != "pro" {
		t.Errorf("tier = %q, want pro", upgraded.Tier)
	}

	snap, err := f.ledger.GetUsage(ctx, account.ID)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if snap.Count != 0 {
		t.Errorf("consumption after upgrade = %d, want 0", snap.Count)
	}
}

func TestAccount_ChangeTierCoercesUnknown(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	account, err := f.svc.Register(ctx, "pat@example.com", "secret-pass", "Pat")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Move off the free tier first so the coercion is observable.
	if _, err := f.svc.ChangeTier(ctx, account.ID, "premium"); err != nil {
		t.Fatalf("change tier: %v", err)
	}
	got, err := f.svc.ChangeTier(ctx, account.ID, "platinum")
	if err != nil {
		t.Fatalf("change tier: %v", err)
	}
	if got.Tier != "free" {
		t.Errorf("unknown tier coerced to %q, want free", got.Tier)
	}
}
