package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/meridianhealth/estimator/internal/money"
)

// Feature: cost-calculation-engine, Property: member never pays more than
// the negotiated rate it started with, generated via rapid's shrinking
// generators rather than gopter's (spec §8 property 1, same invariant as
// TestProperty_MemberPaysNeverExceedsInitialServiceAmount, exercised here
// through a second property-based library for corpus-faithful coverage).
func TestRapid_MemberPaysNeverExceedsInitialServiceAmount(t *testing.T) {
	c := NewChain()

	rapid.Check(t, func(rt *rapid.T) {
		initial := money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "serviceAmount"))
		ctx := &EstimationContext{
			ServiceAmount:                   initial,
			IsServiceCovered:                rapid.Bool().Draw(rt, "covered"),
			Copay:                           money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "copay")),
			CoinsurancePct:                  rapid.Float64Range(0, 100).Draw(rt, "coinsPct"),
			DeductibleIndividualRemaining:   money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "dedInd"))),
			DeductibleFamilyRemaining:       money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "dedFam"))),
			OOPIndividualRemaining:          money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "oopInd"))),
			OOPFamilyRemaining:              money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "oopFam"))),
			IsDeductibleBeforeCopay:         rapid.Bool().Draw(rt, "beforeCopay"),
			CopayContinuesWhenOOPMet:        rapid.Bool().Draw(rt, "continuesOOP"),
			CopayContinuesWhenDeductibleMet: rapid.Bool().Draw(rt, "continuesDed"),
		}
		c.Run(ctx)
		assert.True(rt, ctx.CalculationComplete, "chain should finish in a completed state")
		assert.LessOrEqual(rt, ctx.MemberPays, initial, "member_pays must never exceed the initial service amount")
	})
}

// Feature: cost-calculation-engine, Property: accumulator balances the
// chain writes back are never negative, across the full space of starting
// balances and coverage rules (spec §8 property 3).
func TestRapid_RemainingBalancesNeverNegative(t *testing.T) {
	c := NewChain()

	rapid.Check(t, func(rt *rapid.T) {
		ctx := &EstimationContext{
			ServiceAmount:                 money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "serviceAmount")),
			IsServiceCovered:              true,
			Copay:                         money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "copay")),
			CoinsurancePct:                rapid.Float64Range(0, 100).Draw(rt, "coinsPct"),
			DeductibleIndividualRemaining: money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "dedInd"))),
			DeductibleFamilyRemaining:     money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "dedFam"))),
			OOPIndividualRemaining:        money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "oopInd"))),
			OOPFamilyRemaining:            money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "oopFam"))),
		}
		c.Run(ctx)

		assert.GreaterOrEqual(rt, ctx.ServiceAmount, money.Cents(0))
		if ctx.DeductibleIndividualRemaining.Valid {
			assert.GreaterOrEqual(rt, ctx.DeductibleIndividualRemaining.Value, money.Cents(0))
		}
		if ctx.OOPIndividualRemaining.Valid {
			assert.GreaterOrEqual(rt, ctx.OOPIndividualRemaining.Value, money.Cents(0))
		}
	})
}

// Feature: cost-calculation-engine, Property: the chain always terminates
// without panicking, regardless of how the coverage flags are combined
// (spec §8 property 5, the cycle-guard invariant).
func TestRapid_ChainTerminatesWithoutPanicking(t *testing.T) {
	c := NewChain()

	rapid.Check(t, func(rt *rapid.T) {
		ctx := &EstimationContext{
			ServiceAmount:                    money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "serviceAmount")),
			IsServiceCovered:                 rapid.Bool().Draw(rt, "covered"),
			HasBenefitLimit:                  rapid.Bool().Draw(rt, "hasLimit"),
			LimitRemaining:                   money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "limitRemaining")),
			Copay:                            money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "copay")),
			CoinsurancePct:                   rapid.Float64Range(0, 100).Draw(rt, "coinsPct"),
			DeductibleIndividualRemaining:    money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "dedInd"))),
			DeductibleFamilyRemaining:        money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "dedFam"))),
			OOPIndividualRemaining:           money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "oopInd"))),
			OOPFamilyRemaining:               money.Some(money.Cents(rapid.Int64Range(0, 100000).Draw(rt, "oopFam"))),
			IsDeductibleBeforeCopay:          rapid.Bool().Draw(rt, "beforeCopay"),
			CopayContinuesWhenOOPMet:         rapid.Bool().Draw(rt, "continuesOOP"),
			CopayContinuesWhenDeductibleMet:  rapid.Bool().Draw(rt, "continuesDed"),
		}

		defer func() {
			if r := recover(); r != nil {
				rt.Fatalf("chain run panicked: %v", r)
			}
		}()
		c.Run(ctx)
		assert.True(rt, ctx.CalculationComplete)
	})
}
