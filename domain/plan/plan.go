// Package plan provides subscription tier value types and pure functions.
// The allowance table lives here and only here: every caller that needs
// a tier's monthly query limit goes through Allowance.
package plan

// Tier identifies a subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// Monthly query allowances per tier.
const (
	FreeQueriesPerMonth    int64 = 20
	ProQueriesPerMonth     int64 = 100
	PremiumQueriesPerMonth int64 = 1000
)

// Plan represents a subscription tier (immutable value type).
type Plan struct {
	Tier            Tier
	Name            string
	QueriesPerMonth int64
	PriceMonthly    int64 // cents
	StripePriceID   string
}

// catalog is the closed set of tiers, ordered cheapest first.
var catalog = []Plan{
	{Tier: TierFree, Name: "Free", QueriesPerMonth: FreeQueriesPerMonth, PriceMonthly: 0},
	{Tier: TierPro, Name: "Pro", QueriesPerMonth: ProQueriesPerMonth, PriceMonthly: 900},
	{Tier: TierPremium, Name: "Premium", QueriesPerMonth: PremiumQueriesPerMonth, PriceMonthly: 2900},
}

// Catalog returns a copy of all plans.
// This is a PURE function.
func Catalog() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Find returns the plan for a tier name.
// This is a PURE function.
func Find(tier string) (Plan, bool) {
	for _, p := range catalog {
		if string(p.Tier) == tier {
			return p, true
		}
	}
	return Plan{}, false
}

// Allowance returns the monthly query allowance for a tier name.
// An unknown, missing, or legacy tier falls back to the free
// allowance, never to unlimited: accounts without a recognizable tier
// get the most restrictive quota rather than being locked out or
// waved through. This is a PURE function.
func Allowance(tier string) int64 {
	if p, ok := Find(tier); ok {
		return p.QueriesPerMonth
	}
	return FreeQueriesPerMonth
}

// Normalize maps a raw tier string onto the closed tier set,
// coercing anything unrecognized to free.
// This is a PURE function.
func Normalize(tier string) Tier {
	if p, ok := Find(tier); ok {
		return p.Tier
	}
	return TierFree
}
