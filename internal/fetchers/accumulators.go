package fetchers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/httpclient"
	"github.com/meridianhealth/estimator/types"
)

// AccumulatorsFetcher calls the Accumulators service: HTTP GET with member
// identifier in the query string (spec §6).
type AccumulatorsFetcher struct {
	client *httpclient.Client
}

// NewAccumulatorsFetcher builds a fetcher over an already-configured resilient client.
func NewAccumulatorsFetcher(client *httpclient.Client) *AccumulatorsFetcher {
	return &AccumulatorsFetcher{client: client}
}

// Fetch retrieves the member's accumulator balances, or AccumulatorUnavailable
// on any status other than 200 (spec doesn't define granular body parsing for
// this upstream the way it does for Benefits).
func (f *AccumulatorsFetcher) Fetch(ctx context.Context, q types.AccumulatorQuery) (types.AccumulatorResponse, error) {
	path := "/accumulators?memberId=" + url.QueryEscape(q.MembershipID)

	resp, err := f.client.Call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.AccumulatorUnavailable, "accumulators service error").
			WithQuerySummary(q.MembershipID).
			WithRetryable(resp.StatusCode >= 500)
	}

	var wire accumulatorWireResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, apperr.New(apperr.AccumulatorUnavailable, "could not decode accumulator response").WithCause(err)
	}
	return wire.toDomain(), nil
}

// accumulatorWireResponse mirrors the Accumulators service's flat JSON map
// of "Code/Level" -> balance (spec §3's "mapping from accumulator code+level").
type accumulatorWireResponse map[string]accumulatorWireBalance

type accumulatorWireBalance struct {
	Limit     int64 `json:"limit"`
	Consumed  int64 `json:"consumed"`
	Remaining int64 `json:"remaining"`
}

func (w accumulatorWireResponse) toDomain() types.AccumulatorResponse {
	out := make(types.AccumulatorResponse, len(w))
	for key, bal := range w {
		code, level := splitAccumulatorKey(key)
		out[types.AccumulatorKey{Code: code, Level: level}] = types.NewAccumulatorBalance(
			moneyCents(bal.Limit), moneyCents(bal.Consumed),
		)
	}
	return out
}
