// Package quota provides pure functions for quota enforcement.
// All functions are deterministic with no side effects.
package quota

// CheckResult represents the outcome of a quota check (value type).
// Being over quota is a normal business state carried as data, never
// an error: callers branch on Allowed.
type CheckResult struct {
	Allowed   bool
	Current   int64
	Limit     int64
	Remaining int64
	Reason    string
}

// Check decides whether increment more consumptions fit within limit
// given the current period count. This is a PURE function.
func Check(current, limit, increment int64) CheckResult {
	result := CheckResult{
		Current: current,
		Limit:   limit,
	}

	if remaining := limit - current; remaining > 0 {
		result.Remaining = remaining
	}

	result.Allowed = current+increment <= limit
	if !result.Allowed {
		result.Reason = "quota_exceeded"
	}

	return result
}
