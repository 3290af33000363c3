package quota

import "testing"

func TestCheck_UnderLimit(t *testing.T) {
	result := Check(5, 20, 1)

	if !result.Allowed {
		t.Errorf("expected Allowed=true, got false")
	}
	if result.Current != 5 {
		t.Errorf("expected Current=5, got %d", result.Current)
	}
	if result.Remaining != 15 {
		t.Errorf("expected Remaining=15, got %d", result.Remaining)
	}
	if result.Reason != "" {
		t.Errorf("expected empty reason, got %q", result.Reason)
	}
}

func TestCheck_LastSlot(t *testing.T) {
	// One slot left: the consumption is allowed and Remaining is 1.
	result := Check(19, 20, 1)

	if !result.Allowed {
		t.Errorf("expected Allowed=true with one slot left")
	}
	if result.Remaining != 1 {
		t.Errorf("expected Remaining=1, got %d", result.Remaining)
	}
}

func TestCheck_AtLimit(t *testing.T) {
	result := Check(20, 20, 1)

	if result.Allowed {
		t.Errorf("expected Allowed=false at limit")
	}
	if result.Remaining != 0 {
		t.Errorf("expected Remaining=0, got %d", result.Remaining)
	}
	if result.Reason != "quota_exceeded" {
		t.Errorf("expected reason quota_exceeded, got %q", result.Reason)
	}
}

func TestCheck_OverLimit(t *testing.T) {
	// Counters can sit above the limit after a downgrade; Remaining
	// never goes negative.
	result := Check(150, 100, 1)

	if result.Allowed {
		t.Errorf("expected Allowed=false over limit")
	}
	if result.Remaining != 0 {
		t.Errorf("expected Remaining=0, got %d", result.Remaining)
	}
}

func TestCheck_ZeroIncrement(t *testing.T) {
	// A read-only check (increment 0) at the limit is not a denial.
	result := Check(20, 20, 0)

	if !result.Allowed {
		t.Errorf("expected Allowed=true for zero increment at limit")
	}
}
