// Package matcher defines the engine's contract with the accumulator-to-
// benefit matcher. Spec §1 puts the matcher's internal filtering rules
// explicitly out of scope ("external collaborators with stated contracts");
// this package only implements the wire contract — a provider's Benefits
// response and the member's Accumulators response in, a list of
// SelectedBenefit out.
package matcher

import (
	"context"

	"github.com/meridianhealth/estimator/types"
)

// Client selects which Benefit/Coverage pairs apply to a provider and pairs
// each with the accumulator balances it references.
type Client interface {
	SelectBenefits(ctx context.Context, provider types.Provider, benefits types.BenefitResponse, accumulators types.AccumulatorResponse) ([]types.SelectedBenefit, error)
}

// PassThrough is the default Client: every Coverage row across every Benefit
// becomes a SelectedBenefit paired with the full accumulator set, with no
// network/tier/specialty filtering. It exists so the orchestrator and
// handler chain can be exercised end-to-end without depending on the real
// matcher's (out-of-scope) filtering rules; production deployments supply
// their own Client.
type PassThrough struct{}

// NewPassThrough builds the default, filter-free matcher client.
func NewPassThrough() *PassThrough { return &PassThrough{} }

// SelectBenefits implements Client.
func (PassThrough) SelectBenefits(_ context.Context, _ types.Provider, benefits types.BenefitResponse, accumulators types.AccumulatorResponse) ([]types.SelectedBenefit, error) {
	selected := make([]types.SelectedBenefit, 0, len(benefits.Benefits))
	for _, benefit := range benefits.Benefits {
		for _, coverage := range benefit.Coverages {
			selected = append(selected, types.SelectedBenefit{
				Benefit:      benefit,
				Coverage:     coverage,
				Accumulators: accumulators,
			})
		}
	}
	return selected, nil
}
