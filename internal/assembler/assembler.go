// Package assembler implements the Response Assembler (spec §4.9, C9): a
// pure function from a request plus its per-provider records to the final
// EstimateResponse, preserving input order across the provider-keyed
// response.
package assembler

import "github.com/meridianhealth/estimator/types"

// Assemble composes the final response from the original request and the
// orchestrator's per-provider records. Records must already be in input
// provider order; Assemble does not reorder them (spec §5's ordering
// guarantee is the orchestrator's responsibility).
func Assemble(req types.EstimateRequest, records []types.ProviderRecord) types.EstimateResponse {
	return types.EstimateResponse{
		Service:   req.Service,
		Providers: records,
	}
}
