// Package usage provides usage-record value types and pure functions.
package usage

import "time"

// Record is the persisted counter row for one (account, period) pair.
// Keyed uniquely by (AccountID, PeriodStart). Created lazily on first
// consumption in a period, incremented on each accepted consumption,
// zeroed on explicit reset, never deleted: historical periods stay
// queryable.
type Record struct {
	AccountID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	QueryCount  int64
	LastUpdated time.Time
}

// Snapshot is the read-model returned to callers: the count for the
// current period plus the period bounds it was computed against.
type Snapshot struct {
	Count       int64
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Merge sums the counts of records belonging to the same account.
// This is a PURE function.
func Merge(records []Record) int64 {
	var total int64
	for _, r := range records {
		total += r.QueryCount
	}
	return total
}
