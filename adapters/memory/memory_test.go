package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/ports"
)

func testPeriod() billing.Period {
	anchor := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	return billing.CurrentPeriod(anchor, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
}

func TestUsageStore_LazyCreate(t *testing.T) {
	store := NewUsageStore()
	ctx := context.Background()
	period := testPeriod()

	if _, err := store.Find(ctx, "acc-1", period.Start); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Find must not create a record")
	}

	rec, err := store.UpsertIncrement(ctx, "acc-1", period, 1)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if rec.QueryCount != 1 {
		t.Errorf("expected count 1, got %d", rec.QueryCount)
	}
	if store.Len() != 1 {
		t.Errorf("expected exactly one record, got %d", store.Len())
	}
}

func TestUsageStore_ConcurrentReserve(t *testing.T) {
	store := NewUsageStore()
	ctx := context.Background()
	period := testPeriod()

	const limit = 10
	const workers = 50

	var taken int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.Reserve(ctx, "acc-1", period, limit)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if taken != limit {
		t.Errorf("expected exactly %d reservations to succeed, got %d", limit, taken)
	}
	rec, err := store.Find(ctx, "acc-1", period.Start)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.QueryCount != limit {
		t.Errorf("expected final count %d, got %d", limit, rec.QueryCount)
	}
	if store.Len() != 1 {
		t.Errorf("expected one record despite concurrent creates, got %d", store.Len())
	}
}

func TestUsageStore_SetCountMissing(t *testing.T) {
	store := NewUsageStore()
	if err := store.SetCount(context.Background(), "acc-1", testPeriod().Start, 0); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountStore_Lifecycle(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	acc := ports.Account{ID: "acc-1", Email: "pat@example.com", Tier: "free",
		CreatedAt: time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)}
	if err := store.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.BillingAnchor.Equal(acc.CreatedAt) {
		t.Errorf("expected billing anchor defaulted to created time, got %v", got.BillingAnchor)
	}

	got.StripeID = "cus_9"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.GetByStripeID(ctx, "cus_9"); err != nil {
		t.Errorf("get by stripe id: %v", err)
	}

	if err := store.Update(ctx, ports.Account{ID: "ghost"}); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing account, got %v", err)
	}
}
