package memory

import (
	"context"
	"sync"
	"time"

	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/domain/usage"
	"github.com/caregate/caregate/ports"
)

// UsageStore is an in-memory implementation of ports.UsageStore.
// A single mutex guards the whole map: holding it across the
// read-modify-write gives the same per-key atomicity the SQLite
// adapter gets from its conditional upsert.
type UsageStore struct {
	mu      sync.Mutex
	records map[usageKey]usage.Record
}

type usageKey struct {
	accountID   string
	periodStart int64 // unix millis, UTC
}

// NewUsageStore creates an empty in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{records: make(map[usageKey]usage.Record)}
}

func key(accountID string, periodStart time.Time) usageKey {
	return usageKey{accountID: accountID, periodStart: periodStart.UTC().UnixMilli()}
}

// Find retrieves the counter row for one account and period.
func (s *UsageStore) Find(ctx context.Context, accountID string, periodStart time.Time) (usage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key(accountID, periodStart)]
	if !ok {
		return usage.Record{}, ports.ErrNotFound
	}
	return rec, nil
}

// UpsertIncrement atomically adds delta to the counter, creating the
// row with count=delta if absent. Counts never go below zero.
func (s *UsageStore) UpsertIncrement(ctx context.Context, accountID string, period billing.Period, delta int64) (usage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(accountID, period.Start)
	rec, ok := s.records[k]
	if !ok {
		rec = usage.Record{
			AccountID:   accountID,
			PeriodStart: period.Start.UTC(),
			PeriodEnd:   period.End.UTC(),
		}
	}
	rec.QueryCount += delta
	if rec.QueryCount < 0 {
		rec.QueryCount = 0
	}
	rec.LastUpdated = time.Now().UTC()
	s.records[k] = rec
	return rec, nil
}

// Reserve atomically takes one slot if the counter is below limit.
func (s *UsageStore) Reserve(ctx context.Context, accountID string, period billing.Period, limit int64) (usage.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(accountID, period.Start)
	rec, ok := s.records[k]
	if !ok {
		rec = usage.Record{
			AccountID:   accountID,
			PeriodStart: period.Start.UTC(),
			PeriodEnd:   period.End.UTC(),
		}
	}

	if rec.QueryCount >= limit {
		return rec, false, nil
	}

	rec.QueryCount++
	rec.LastUpdated = time.Now().UTC()
	s.records[k] = rec
	return rec, true, nil
}

// SetCount overwrites the counter for an existing row.
func (s *UsageStore) SetCount(ctx context.Context, accountID string, periodStart time.Time, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(accountID, periodStart)
	rec, ok := s.records[k]
	if !ok {
		return ports.ErrNotFound
	}
	rec.QueryCount = count
	rec.LastUpdated = time.Now().UTC()
	s.records[k] = rec
	return nil
}

// ListByAccount returns all counter rows for an account, newest period
// first.
func (s *UsageStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]usage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []usage.Record
	for _, rec := range s.records {
		if rec.AccountID == accountID {
			records = append(records, rec)
		}
	}
	// Insertion sort is fine at test scale.
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].PeriodStart.After(records[j-1].PeriodStart); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Len reports how many counter rows exist (test helper).
func (s *UsageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
