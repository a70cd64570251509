// Package orchestrator implements the request-level fan-out/fan-in pipeline
// (spec §4.8, §5, C8): build one Benefits query and one Rate query per
// provider plus one Accumulators query per member, issue the 2N+1 upstream
// calls concurrently, then process each provider concurrently against the
// handler chain: a two-level goroutine fan-out (dispatch independent work
// concurrently, wait on an errgroup before assembling the result) over the
// engine's fixed two-phase shape (I/O fan-out,
// then per-provider calculate fan-out).
package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/chain"
	"github.com/meridianhealth/estimator/internal/fetchers"
	"github.com/meridianhealth/estimator/internal/matcher"
	"github.com/meridianhealth/estimator/internal/specialtycache"
	"github.com/meridianhealth/estimator/internal/telemetry"
	"github.com/meridianhealth/estimator/types"
)

// Orchestrator wires the fetchers, matcher, handler chain, and specialty
// cache into the per-request pipeline described by spec §4.8.
type Orchestrator struct {
	Benefits     *fetchers.BenefitsFetcher
	Accumulators *fetchers.AccumulatorsFetcher
	Rates        *fetchers.RateFetcher
	Matcher      matcher.Client
	Specialty    *specialtycache.Cache
	Chain        *chain.Chain
	Metrics      *telemetry.Metrics
	Logger       *zap.Logger
}

// fetchResult carries everything fetched for one provider, index-aligned
// with the request's provider list so fan-in preserves input order (spec
// §5: "workers emit keyed results; the assembler sorts by original index").
type fetchResult struct {
	provider    types.Provider
	rate        types.NegotiatedRate
	benefits    types.BenefitResponse
	benefitsErr *apperr.Error
	rateErr     *apperr.Error
}

// err returns whichever of this provider's two independent fetches failed,
// preferring the Benefits error (spec §4.8 step 5b checks the benefit
// response first). Kept as a method rather than a field so the two fetch
// goroutines in fetchAll never write the same struct field concurrently.
func (r fetchResult) err() *apperr.Error {
	if r.benefitsErr != nil {
		return r.benefitsErr
	}
	return r.rateErr
}

// Estimate runs the full pipeline for one request and returns the per-
// provider records in input order, ready for the Response Assembler.
// Single-provider mode re-raises the sole provider's error as the request's
// error; multi-provider mode always returns a (possibly partial) list.
func (o *Orchestrator) Estimate(ctx context.Context, req types.EstimateRequest) ([]types.ProviderRecord, error) {
	requestID := uuid.NewString()
	log := o.logger().With(zap.String("request_id", requestID), zap.String("membership_id", req.MembershipID))
	log.Debug("estimate started", zap.Int("provider_count", len(req.Providers)))

	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	fetched, accs, accErr := o.fetchAll(ctx, req)

	records := make([]types.ProviderRecord, len(fetched))
	var g errgroup.Group
	for i := range fetched {
		i := i
		g.Go(func() error {
			records[i] = o.processProvider(ctx, fetched[i], accs, accErr)
			return nil
		})
	}
	_ = g.Wait() // per-provider business failures live in records[i], not the group error

	log.Debug("estimate finished")

	if req.Mode == types.ModeSingleProvider && len(records) == 1 && records[0].Error != nil {
		e := records[0].Error
		return records, apperr.New(apperr.Code(e.Code), e.Message).WithQuerySummary(e.QuerySummary)
	}
	return records, nil
}

// logger returns o.Logger, or a no-op logger when the Orchestrator was built
// without one (as in tests that only exercise processProvider/fetchResult
// directly).
func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// fetchAll performs the 2N+1 concurrent upstream fetches (spec §4.8 steps
// 1-4): N Benefits calls, N Rate calls, and one Accumulators call, all
// issued together and awaited as a unit. With no providers nothing is
// fetched, since no per-provider record would use the accumulators.
func (o *Orchestrator) fetchAll(ctx context.Context, req types.EstimateRequest) ([]fetchResult, types.AccumulatorResponse, *apperr.Error) {
	n := len(req.Providers)
	results := make([]fetchResult, n)
	if n == 0 {
		return results, nil, nil
	}
	for i, p := range req.Providers {
		results[i].provider = p
	}

	var accs types.AccumulatorResponse
	var accErr *apperr.Error

	var g errgroup.Group
	g.Go(func() error {
		a, err := o.Accumulators.Fetch(ctx, types.AccumulatorQuery{MembershipID: req.MembershipID})
		if err != nil {
			accErr = toAppErr(err, apperr.AccumulatorUnavailable)
			return nil
		}
		accs = a
		return nil
	})

	for i, p := range req.Providers {
		i, p := i, p
		g.Go(func() error {
			resp, err := o.Benefits.Fetch(ctx, o.benefitRequest(req, p))
			if err != nil {
				results[i].benefitsErr = toAppErr(err, apperr.BenefitsNotFound)
				return nil
			}
			results[i].benefits = resp
			return nil
		})
		g.Go(func() error {
			rate, err := o.Rates.Fetch(ctx, rateQuery(req, p))
			if err != nil {
				results[i].rateErr = toAppErr(err, apperr.RateNotFound)
				return nil
			}
			results[i].rate = rate
			return nil
		})
	}
	_ = g.Wait()

	return results, accs, accErr
}

func (o *Orchestrator) benefitRequest(req types.EstimateRequest, p types.Provider) types.BenefitRequest {
	providerType := []string{"SPECIALIST"}
	if o.Specialty != nil && o.Specialty.Contains(p.SpecialtyCode) {
		providerType = []string{"PCP"}
	}
	return types.BenefitRequest{
		MembershipID: req.MembershipID,
		ServiceInfo: []types.BenefitServiceReq{{
			ServiceCodeInfo: types.ServiceCodeInfo{
				Code:              req.Service.ProcedureCode,
				Type:              "CPT",
				ProviderType:      providerType,
				PlaceOfService:    []string{req.Service.PlaceOfService},
				ProviderSpecialty: []string{p.SpecialtyCode},
			},
		}},
	}
}

func rateQuery(req types.EstimateRequest, p types.Provider) types.RateQuery {
	return types.RateQuery{
		ProviderID:     p.ProviderID,
		NetworkID:      p.NetworkID,
		ProcedureCode:  req.Service.ProcedureCode,
		PlaceOfService: req.Service.PlaceOfService,
	}
}

func toAppErr(err error, fallback apperr.Code) *apperr.Error {
	if ae, ok := err.(*apperr.Error); ok {
		return ae
	}
	return apperr.New(fallback, err.Error())
}
