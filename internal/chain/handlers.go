package chain

import "github.com/meridianhealth/estimator/internal/money"

// h1ServiceCoverage: an uncovered service is paid in full by the member.
func h1ServiceCoverage(c *Chain, ctx *EstimationContext) {
	if !ctx.IsServiceCovered {
		ctx.MemberPays = ctx.ServiceAmount
		ctx.CalculationComplete = true
		return
	}
	c.dispatch(H2, ctx)
}

// h2BenefitLimitation: an exhausted benefit limitation is paid in full by
// the member, same as no coverage at all.
func h2BenefitLimitation(c *Chain, ctx *EstimationContext) {
	if ctx.HasBenefitLimit && ctx.LimitRemaining <= 0 {
		ctx.MemberPays = ctx.ServiceAmount
		ctx.CalculationComplete = true
		return
	}
	c.dispatch(H3, ctx)
}

// h3OOPMax: once the OOP max is met, the member owes nothing further unless
// the plan's copay keeps applying past that point.
func h3OOPMax(c *Chain, ctx *EstimationContext) {
	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)
	if minOOP.LessEqZero() {
		if ctx.CopayContinuesWhenOOPMet {
			c.dispatch(H4, ctx)
			return
		}
		ctx.CalculationComplete = true
		return
	}
	c.dispatch(H5, ctx)
}

// h4OOPMaxCopay: OOP is met but this plan keeps charging copay anyway.
func h4OOPMaxCopay(c *Chain, ctx *EstimationContext) {
	p := ctx.Copay.Min(ctx.ServiceAmount)
	ctx.MemberPays = ctx.MemberPays.Add(p)
	ctx.AmountCopay = ctx.AmountCopay.Add(p)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(p).ClampNonNegative()
	ctx.CalculationComplete = true
}

// h5Deductible routes around the deductible entirely for flat-copay-only
// benefits (no coinsurance component) unless the coverage explicitly flags
// deductible-before-copay — a copay-only office-visit line is ordinarily not
// deductible-subject, while any coinsurance-bearing benefit always runs
// through the deductible first. See DESIGN.md for why this reading was
// chosen over a literal "any d > 0 always applies" rule.
func h5Deductible(c *Chain, ctx *EstimationContext) {
	d := money.MinOptional(ctx.DeductibleIndividualRemaining, ctx.DeductibleFamilyRemaining)
	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)

	deductibleApplies := d.GreaterZero() && (ctx.IsDeductibleBeforeCopay || ctx.CoinsurancePct > 0)
	if !deductibleApplies {
		c.dispatch(H6, ctx)
		return
	}

	// Applying the full deductible here would itself meet or exceed the OOP
	// max; H8 caps the single payment at the tighter of the two bounds.
	if d.Valid && minOOP.Valid && d.Value >= minOOP.Value {
		c.dispatch(H8, ctx)
		return
	}

	switch {
	case ctx.IsDeductibleBeforeCopay:
		c.dispatch(H9, ctx)
	case ctx.Copay > 0 && ctx.CoinsurancePct > 0:
		c.dispatch(H7, ctx)
	default:
		// Only coinsurance is in play (copay <= 0): apply the deductible
		// directly, then continue to cost-sharing if anything still applies.
		applyDeductible(ctx, d)
		coinsuranceStillDue := ctx.CoinsurancePct > 0 && ctx.ServiceAmount > 0
		if ctx.CopayContinuesWhenDeductibleMet || coinsuranceStillDue {
			c.dispatch(H6, ctx)
			return
		}
		ctx.CalculationComplete = true
	}
}

// h6CostShareCoPay applies copay once the deductible no longer gates this
// benefit (met, absent, or bypassed by h5Deductible).
func h6CostShareCoPay(c *Chain, ctx *EstimationContext) {
	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)

	if ctx.Copay > ctx.ServiceAmount {
		if minOOP.Valid && ctx.ServiceAmount < minOOP.Value {
			pay := ctx.ServiceAmount
			ctx.MemberPays = ctx.MemberPays.Add(pay)
			ctx.AmountCopay = ctx.AmountCopay.Add(pay)
			applyOOPDecrement(ctx, pay)
			ctx.ServiceAmount = 0
			ctx.CalculationComplete = true
			return
		}
		payMinOOPAndContinue(c, ctx, minOOP)
		return
	}

	// copay <= service_amount
	if ctx.OOPIndividualRemaining.Valid && ctx.OOPFamilyRemaining.Valid && ctx.Copay < minOOP.Value {
		pay := ctx.Copay
		ctx.MemberPays = ctx.MemberPays.Add(pay)
		ctx.AmountCopay = ctx.AmountCopay.Add(pay)
		applyOOPDecrement(ctx, pay)
		ctx.ServiceAmount = ctx.ServiceAmount.Sub(pay).ClampNonNegative()
		ctx.Copay = 0
		c.dispatch(H10, ctx)
		return
	}
	payMinOOPAndContinue(c, ctx, minOOP)
}

// h7DeductibleCostShareCoPay applies the deductible, then whichever of
// copay/coinsurance still applies, under the same caps as h6.
func h7DeductibleCostShareCoPay(c *Chain, ctx *EstimationContext) {
	d := money.MinOptional(ctx.DeductibleIndividualRemaining, ctx.DeductibleFamilyRemaining)
	applyDeductible(ctx, d)
	if ctx.ServiceAmount <= 0 {
		ctx.CalculationComplete = true
		return
	}

	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)
	if minOOP.LessEqZero() {
		ctx.CalculationComplete = true
		return
	}

	pay := ctx.Copay.Min(ctx.ServiceAmount)
	if minOOP.Valid {
		pay = pay.Min(minOOP.Value)
	}
	ctx.MemberPays = ctx.MemberPays.Add(pay)
	ctx.AmountCopay = ctx.AmountCopay.Add(pay)
	applyOOPDecrement(ctx, pay)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(pay).ClampNonNegative()
	ctx.Copay = 0

	if ctx.ServiceAmount > 0 && ctx.CoinsurancePct > 0 {
		c.dispatch(H10, ctx)
		return
	}
	ctx.CalculationComplete = true
}

// h8DeductibleOOPMax pays the single amount that satisfies whichever of
// deductible, OOP max, or remaining service is tightest, and completes.
func h8DeductibleOOPMax(c *Chain, ctx *EstimationContext) {
	d := money.MinOptional(ctx.DeductibleIndividualRemaining, ctx.DeductibleFamilyRemaining)
	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)

	pay := ctx.ServiceAmount
	if d.Valid {
		pay = pay.Min(d.Value)
	}
	if minOOP.Valid {
		pay = pay.Min(minOOP.Value)
	}

	ctx.MemberPays = ctx.MemberPays.Add(pay)
	ctx.DeductibleIndividualRemaining = ctx.DeductibleIndividualRemaining.Sub(pay)
	ctx.DeductibleFamilyRemaining = ctx.DeductibleFamilyRemaining.Sub(pay)
	applyOOPDecrement(ctx, pay)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(pay).ClampNonNegative()
	ctx.CalculationComplete = true
}

// h9DeductibleCoPay applies the deductible, then copay, in that order.
func h9DeductibleCoPay(c *Chain, ctx *EstimationContext) {
	d := money.MinOptional(ctx.DeductibleIndividualRemaining, ctx.DeductibleFamilyRemaining)
	applyDeductible(ctx, d)
	if ctx.ServiceAmount <= 0 {
		ctx.CalculationComplete = true
		return
	}

	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)
	if minOOP.LessEqZero() {
		ctx.CalculationComplete = true
		return
	}

	pay := ctx.Copay.Min(ctx.ServiceAmount)
	if minOOP.Valid {
		pay = pay.Min(minOOP.Value)
	}
	ctx.MemberPays = ctx.MemberPays.Add(pay)
	ctx.AmountCopay = ctx.AmountCopay.Add(pay)
	applyOOPDecrement(ctx, pay)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(pay).ClampNonNegative()
	ctx.Copay = 0

	if ctx.ServiceAmount > 0 && ctx.CoinsurancePct > 0 {
		c.dispatch(H10, ctx)
		return
	}
	ctx.CalculationComplete = true
}

// h10DeductibleCoInsurance is the terminal coinsurance handler: charges a
// percentage of whatever service amount remains, capped by the OOP max.
func h10DeductibleCoInsurance(c *Chain, ctx *EstimationContext) {
	amount := ctx.ServiceAmount.Percent(ctx.CoinsurancePct)
	amount = amount.Min(ctx.ServiceAmount)

	minOOP := money.MinOptional(ctx.OOPIndividualRemaining, ctx.OOPFamilyRemaining)
	if minOOP.Valid {
		amount = amount.Min(minOOP.Value)
	}

	ctx.MemberPays = ctx.MemberPays.Add(amount)
	ctx.AmountCoinsurance = ctx.AmountCoinsurance.Add(amount)
	applyOOPDecrement(ctx, amount)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(amount).ClampNonNegative()
	ctx.CalculationComplete = true
}

// applyDeductible applies min(service_amount, d) to member_pays and
// decrements both deductible levels and service_amount by that amount,
// returning the amount applied (spec §4.7 H5 bullet 3, shared by H7/H9).
func applyDeductible(ctx *EstimationContext, d money.OptionalCents) money.Cents {
	if !d.GreaterZero() {
		return 0
	}
	applied := ctx.ServiceAmount.Min(d.Value)
	ctx.MemberPays = ctx.MemberPays.Add(applied)
	ctx.DeductibleIndividualRemaining = ctx.DeductibleIndividualRemaining.Sub(applied)
	ctx.DeductibleFamilyRemaining = ctx.DeductibleFamilyRemaining.Sub(applied)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(applied).ClampNonNegative()
	return applied
}

// applyOOPDecrement marks progress toward both OOP levels by amt; an absent
// level is left absent (nothing to track, spec §3).
func applyOOPDecrement(ctx *EstimationContext, amt money.Cents) {
	ctx.OOPIndividualRemaining = ctx.OOPIndividualRemaining.Sub(amt)
	ctx.OOPFamilyRemaining = ctx.OOPFamilyRemaining.Sub(amt)
}

// payMinOOPAndContinue pays min(min_oop, service_amount) — or, if neither
// OOP level is tracked, min(copay, service_amount) — as copay, marks OOP
// progress, and honors copay_continues_when_oop_met.
func payMinOOPAndContinue(c *Chain, ctx *EstimationContext, minOOP money.OptionalCents) {
	var pay money.Cents
	if minOOP.Valid {
		pay = minOOP.Value.Min(ctx.ServiceAmount)
	} else {
		pay = ctx.Copay.Min(ctx.ServiceAmount)
	}
	ctx.MemberPays = ctx.MemberPays.Add(pay)
	ctx.AmountCopay = ctx.AmountCopay.Add(pay)
	applyOOPDecrement(ctx, pay)
	ctx.ServiceAmount = ctx.ServiceAmount.Sub(pay).ClampNonNegative()

	if ctx.CopayContinuesWhenOOPMet {
		c.dispatch(H4, ctx)
		return
	}
	ctx.CalculationComplete = true
}
