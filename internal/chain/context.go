// Package chain implements the ten-handler cost-calculation pipeline that
// turns one negotiated rate plus one matched benefit into a member-pays
// figure, dispatched over a validated call graph across the fixed H1-H10
// handler set.
package chain

import (
	"github.com/meridianhealth/estimator/internal/money"
	"github.com/meridianhealth/estimator/types"
)

// EstimationContext is the mutable scratchpad that flows through the
// handler chain for exactly one SelectedBenefit. Created fresh per benefit
// per provider, consumed by one chain run, then read-only.
type EstimationContext struct {
	ServiceAmount money.Cents

	IsServiceCovered bool

	HasBenefitLimit bool
	LimitRemaining  money.Cents

	Copay          money.Cents
	CoinsurancePct float64

	DeductibleIndividualRemaining money.OptionalCents
	DeductibleFamilyRemaining    money.OptionalCents
	OOPIndividualRemaining       money.OptionalCents
	OOPFamilyRemaining           money.OptionalCents

	IsDeductibleBeforeCopay         bool
	CopayCountsToDeductible         bool
	CopayContinuesWhenDeductibleMet bool
	CopayContinuesWhenOOPMet        bool

	MemberPays        money.Cents
	AmountCopay       money.Cents
	AmountCoinsurance money.Cents

	CalculationComplete bool

	// Trace records the handler visit order, most recent last. Used by the
	// runtime visit-count guard in Chain.dispatch and for debugging a single
	// run's path.
	Trace []string
}

// PopulateFromBenefit builds a fresh EstimationContext from a SelectedBenefit
// and the provider's negotiated service amount (spec §4.6). Accumulator
// lookups that find no matching key leave the corresponding field absent
// (money.OptionalCents zero value), never zero-valued — a plan that doesn't
// track a given level must never be mistaken for one that has met it.
func PopulateFromBenefit(selected types.SelectedBenefit, serviceAmount money.Cents) *EstimationContext {
	cov := selected.Coverage
	return &EstimationContext{
		ServiceAmount:                    serviceAmount,
		IsServiceCovered:                 cov.IsServiceCovered,
		HasBenefitLimit:                  cov.BenefitLimitation,
		LimitRemaining:                   cov.LimitRemaining,
		Copay:                            cov.CostShareCopay,
		CoinsurancePct:                   cov.CostShareCoinsurance,
		DeductibleIndividualRemaining:    lookupRemaining(selected.Accumulators, types.AccumulatorDeductible, types.LevelIndividual),
		DeductibleFamilyRemaining:        lookupRemaining(selected.Accumulators, types.AccumulatorDeductible, types.LevelFamily),
		OOPIndividualRemaining:           lookupRemaining(selected.Accumulators, types.AccumulatorOOP, types.LevelIndividual),
		OOPFamilyRemaining:               lookupRemaining(selected.Accumulators, types.AccumulatorOOP, types.LevelFamily),
		IsDeductibleBeforeCopay:          cov.IsDeductibleBeforeCopay,
		CopayCountsToDeductible:          cov.CopayCountToDeductibleIndicator,
		CopayContinuesWhenDeductibleMet:  cov.CopayContinueWhenDeductibleMetIndicator,
		CopayContinuesWhenOOPMet:         cov.CopayContinueWhenOutOfPocketMaxMetIndicator,
	}
}

func lookupRemaining(accs types.AccumulatorResponse, code types.AccumulatorCode, level types.AccumulatorLevel) money.OptionalCents {
	bal, ok := accs[types.AccumulatorKey{Code: code, Level: level}]
	if !ok {
		return money.None()
	}
	return money.Some(bal.Remaining)
}
