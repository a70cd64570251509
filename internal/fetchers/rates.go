package fetchers

import (
	"context"

	"github.com/meridianhealth/estimator/internal/ratestore"
	"github.com/meridianhealth/estimator/types"
)

// RateFetcher is the typed wrapper over the Rate Store (C5). Unlike
// Benefits/Accumulators this upstream is a local repository query, not an
// HTTP call, so there is no resilient client in the chain (spec §6: "rate
// lookup is a repository/database query").
type RateFetcher struct {
	store *ratestore.Store
}

// NewRateFetcher builds a fetcher over an already-migrated rate store.
func NewRateFetcher(store *ratestore.Store) *RateFetcher {
	return &RateFetcher{store: store}
}

// Fetch looks up the negotiated rate for one provider. A rate with
// Found=false or Kind != AMOUNT is returned without error — the orchestrator
// classifies that as RateNotFound when assembling the per-provider record,
// per spec §3/§7.
func (f *RateFetcher) Fetch(ctx context.Context, q types.RateQuery) (types.NegotiatedRate, error) {
	return f.store.Query(ctx, q)
}
