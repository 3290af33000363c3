package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/domain/usage"
	"github.com/caregate/caregate/ports"
)

// UsageStore implements ports.UsageStore using SQLite.
// All increments go through single statements with ON CONFLICT
// arithmetic so concurrent requests for the same (account, period)
// serialize inside the database rather than in application code.
type UsageStore struct {
	db *DB
}

// NewUsageStore creates a new SQLite usage store.
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Find retrieves the counter row for one account and period.
// Never creates a row; a read of an untouched period is ErrNotFound.
func (s *UsageStore) Find(ctx context.Context, accountID string, periodStart time.Time) (usage.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, period_start, period_end, query_count, last_updated
		FROM usage_records
		WHERE account_id = ? AND period_start = ?
	`, accountID, periodStart.UTC())

	return scanRecord(row)
}

// UpsertIncrement atomically adds delta to the counter, creating the
// row if absent. The counter never drops below zero, on either path.
func (s *UsageStore) UpsertIncrement(ctx context.Context, accountID string, period billing.Period, delta int64) (usage.Record, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (account_id, period_start, period_end, query_count, last_updated)
		VALUES (?, ?, ?, MAX(?, 0), ?)
		ON CONFLICT(account_id, period_start) DO UPDATE SET
			query_count = MAX(query_count + excluded.query_count, 0),
			last_updated = excluded.last_updated
	`, accountID, period.Start.UTC(), period.End.UTC(), delta, now)
	if err != nil {
		return usage.Record{}, err
	}

	return s.Find(ctx, accountID, period.Start)
}

// Reserve atomically takes one slot if the counter is below limit,
// creating the row if absent. The conditional lives in the statement
// itself: a race between two requests for the last slot resolves
// inside SQLite, not in application code.
func (s *UsageStore) Reserve(ctx context.Context, accountID string, period billing.Period, limit int64) (usage.Record, bool, error) {
	if limit < 1 {
		rec, err := s.Find(ctx, accountID, period.Start)
		if errors.Is(err, ports.ErrNotFound) {
			return usage.Record{AccountID: accountID, PeriodStart: period.Start.UTC(), PeriodEnd: period.End.UTC()}, false, nil
		}
		return rec, false, err
	}

	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (account_id, period_start, period_end, query_count, last_updated)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(account_id, period_start) DO UPDATE SET
			query_count = query_count + 1,
			last_updated = excluded.last_updated
		WHERE query_count < ?
	`, accountID, period.Start.UTC(), period.End.UTC(), now, limit)
	if err != nil {
		return usage.Record{}, false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return usage.Record{}, false, err
	}

	rec, err := s.Find(ctx, accountID, period.Start)
	if err != nil {
		return usage.Record{}, false, err
	}
	return rec, affected > 0, nil
}

// SetCount overwrites the counter for an existing row.
func (s *UsageStore) SetCount(ctx context.Context, accountID string, periodStart time.Time, count int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE usage_records
		SET query_count = ?, last_updated = ?
		WHERE account_id = ? AND period_start = ?
	`, count, time.Now().UTC(), accountID, periodStart.UTC())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ListByAccount returns all counter rows for an account, newest period
// first.
func (s *UsageStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]usage.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, period_start, period_end, query_count, last_updated
		FROM usage_records
		WHERE account_id = ?
		ORDER BY period_start DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []usage.Record
	for rows.Next() {
		var r usage.Record
		if err := rows.Scan(&r.AccountID, &r.PeriodStart, &r.PeriodEnd, &r.QueryCount, &r.LastUpdated); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRecord(row *sql.Row) (usage.Record, error) {
	var r usage.Record
	err := row.Scan(&r.AccountID, &r.PeriodStart, &r.PeriodEnd, &r.QueryCount, &r.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return usage.Record{}, ports.ErrNotFound
	}
	if err != nil {
		return usage.Record{}, err
	}
	return r, nil
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
