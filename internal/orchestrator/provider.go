package orchestrator

import (
	"context"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/chain"
	"github.com/meridianhealth/estimator/internal/money"
	"github.com/meridianhealth/estimator/types"
)

// processProvider implements spec §4.8 step 5: resolve one provider's
// fetched rate/benefits into either an error record or a success record by
// asking the matcher for the applicable benefits, running each through the
// handler chain, and keeping the worst-case (largest member_pays) result.
func (o *Orchestrator) processProvider(ctx context.Context, fr fetchResult, accs types.AccumulatorResponse, accErr *apperr.Error) types.ProviderRecord {
	if err := ctx.Err(); err != nil {
		return errorRecord(fr.provider, apperr.New(apperr.UpstreamTimeout, "request deadline exceeded before provider could be processed"))
	}

	if e := fr.err(); e != nil {
		return errorRecord(fr.provider, e)
	}
	if accErr != nil {
		return errorRecord(fr.provider, accErr)
	}

	selected, err := o.Matcher.SelectBenefits(ctx, fr.provider, fr.benefits, accs)
	if err != nil {
		return errorRecord(fr.provider, toAppErr(err, apperr.BenefitsNotFound))
	}

	if !fr.rate.Eligible() {
		return errorRecord(fr.provider, apperr.New(apperr.RateNotFound, "no eligible negotiated rate for provider"))
	}
	if len(selected) == 0 {
		return errorRecord(fr.provider, apperr.New(apperr.BenefitsNotFound, "no applicable benefit matched for provider"))
	}

	best, bestSelected := o.runChain(selected, fr.rate.Amount)
	return successRecord(fr.provider, fr.rate, bestSelected, best)
}

// runChain runs every selected benefit through the handler chain and keeps
// the one with the largest member_pays, breaking ties by matcher-list order
// (spec §4.8 step e, §5 "earliest in the matcher's list wins"). The chain
// is synchronous and CPU-bound (spec §5), so these runs execute in the
// calling goroutine rather than fanning out further.
func (o *Orchestrator) runChain(selected []types.SelectedBenefit, serviceAmount money.Cents) (*chain.EstimationContext, types.SelectedBenefit) {
	var best *chain.EstimationContext
	var bestSelected types.SelectedBenefit
	for _, sb := range selected {
		ctx := chain.PopulateFromBenefit(sb, serviceAmount)
		o.Chain.Run(ctx)
		if best == nil || ctx.MemberPays > best.MemberPays {
			best = ctx
			bestSelected = sb
		}
	}
	return best, bestSelected
}

func errorRecord(p types.Provider, e *apperr.Error) types.ProviderRecord {
	return types.ProviderRecord{
		Provider: p,
		Error: &types.ProviderError{
			Code:         string(e.Code),
			Message:      e.Message,
			QuerySummary: e.QuerySummary,
		},
	}
}

func successRecord(p types.Provider, rate types.NegotiatedRate, selected types.SelectedBenefit, ctx *chain.EstimationContext) types.ProviderRecord {
	cov := selected.Coverage
	percent := 0.0
	if rate.Amount != 0 {
		percent = (float64(ctx.MemberPays) / float64(rate.Amount)) * 100
	}
	snapshots := make([]types.AccumulatorSnapshot, 0, len(selected.Accumulators))
	for key, bal := range selected.Accumulators {
		snapshots = append(snapshots, types.AccumulatorSnapshot{Key: key, Balance: bal})
	}

	return types.ProviderRecord{
		Provider: p,
		Success: &types.ProviderResult{
			Provider: p,
			CoverageSummary: types.CoverageSummary{
				Covered:            cov.IsServiceCovered,
				Copay:              cov.CostShareCopay,
				CoinsurancePercent: cov.CostShareCoinsurance,
			},
			Cost: types.CostSummary{Rate: rate.Amount, Kind: rate.Kind},
			ClaimLine: types.ClaimLine{
				AmountCopay:           ctx.AmountCopay,
				AmountCoinsurance:     ctx.AmountCoinsurance,
				AmountResponsibility:  ctx.MemberPays,
				PercentResponsibility: percent,
				AmountPayable:         rate.Amount.Sub(ctx.MemberPays),
			},
			Accumulators: snapshots,
		},
	}
}
