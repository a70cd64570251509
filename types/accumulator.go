package types

import "github.com/meridianhealth/estimator/internal/money"

// AccumulatorCode names which running counter a balance tracks.
type AccumulatorCode string

const (
	AccumulatorDeductible AccumulatorCode = "Deductible"
	AccumulatorOOP        AccumulatorCode = "OOP"
)

// AccumulatorLevel names whether a balance is tracked per-member or per-family.
type AccumulatorLevel string

const (
	LevelIndividual AccumulatorLevel = "Individual"
	LevelFamily     AccumulatorLevel = "Family"
)

// AccumulatorKey is the map key used by AccumulatorResponse (e.g.
// "Deductible/Individual").
type AccumulatorKey struct {
	Code  AccumulatorCode
	Level AccumulatorLevel
}

// AccumulatorBalance carries the limit/consumed/remaining for one key.
// Invariant: Remaining == max(0, Limit - Consumed).
type AccumulatorBalance struct {
	Limit     money.Cents
	Consumed  money.Cents
	Remaining money.Cents
}

// NewAccumulatorBalance computes Remaining from Limit and Consumed,
// enforcing the invariant rather than trusting an upstream-supplied value.
func NewAccumulatorBalance(limit, consumed money.Cents) AccumulatorBalance {
	return AccumulatorBalance{
		Limit:     limit,
		Consumed:  consumed,
		Remaining: limit.Sub(consumed).ClampNonNegative(),
	}
}

// AccumulatorQuery is derived from the request's member only (accumulators are fetched once per member, not once per provider, per §2).
type AccumulatorQuery struct {
	MembershipID string
}

// AccumulatorResponse maps accumulator code+level to its balance (spec §3).
type AccumulatorResponse map[AccumulatorKey]AccumulatorBalance

// SelectedBenefit is a Benefit already matched to the member's
// provider/network/tier and paired with the accumulator balances it
// references (produced by the external matcher, consumed by the engine).
type SelectedBenefit struct {
	Benefit     Benefit
	Coverage    Coverage
	Accumulators AccumulatorResponse
}
