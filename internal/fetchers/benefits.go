// Package fetchers implements the typed wrappers over the resilient HTTP
// client for the Benefits and Accumulators upstreams (spec §4.3, C3/C4):
// build the request body, POST or GET, branch on status, decode JSON.
package fetchers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/httpclient"
	"github.com/meridianhealth/estimator/types"
)

// BenefitsFetcher calls the Benefits service (spec §4.3, §6).
type BenefitsFetcher struct {
	client             *httpclient.Client
	benefitProductType string
	planIdentifier     string
}

// NewBenefitsFetcher builds a fetcher over an already-configured resilient client.
func NewBenefitsFetcher(client *httpclient.Client, benefitProductType, planIdentifier string) *BenefitsFetcher {
	return &BenefitsFetcher{client: client, benefitProductType: benefitProductType, planIdentifier: planIdentifier}
}

// Fetch sends one BenefitRequest for the given provider and returns the
// decoded BenefitResponse, or a typed error per spec §4.3's decode rules.
func (f *BenefitsFetcher) Fetch(ctx context.Context, req types.BenefitRequest) (types.BenefitResponse, error) {
	req.BenefitProductType = f.benefitProductType
	req.PlanIdentifier = f.planIdentifier

	body, err := json.Marshal(req)
	if err != nil {
		return types.BenefitResponse{}, apperr.New(apperr.BenefitsNotFound, "could not encode benefit request").WithCause(err)
	}

	resp, err := f.client.Call(ctx, http.MethodPost, "/benefits", body)
	if err != nil {
		return types.BenefitResponse{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return types.BenefitResponse{}, classifyBenefitsStatus(resp.StatusCode, string(resp.Body))
	}

	var wire benefitsWireResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return types.BenefitResponse{}, apperr.New(apperr.BenefitsNotFound, "could not decode benefit response").WithCause(err)
	}
	return wire.toDomain(), nil
}

// benefitsWireResponse mirrors the upstream's nested shape (spec §6):
// serviceInfo[].benefit[].coverages[]. The engine only ever sends one
// serviceInfo entry per request, so toDomain flattens to a single service.
type benefitsWireResponse struct {
	ServiceInfo []benefitsWireServiceInfo `json:"serviceInfo"`
}

type benefitsWireServiceInfo struct {
	Service string          `json:"service"`
	Benefit []types.Benefit `json:"benefit"`
}

func (w benefitsWireResponse) toDomain() types.BenefitResponse {
	if len(w.ServiceInfo) == 0 {
		return types.BenefitResponse{}
	}
	si := w.ServiceInfo[0]
	return types.BenefitResponse{Service: si.Service, Benefits: si.Benefit}
}

// classifyBenefitsStatus implements spec §4.3's decode rules: 400 with
// "ACTIVE MEMBER COVERAGE NOT FOUND" (case-insensitive) -> MemberNotFound;
// 400 otherwise -> BenefitsNotFound; 500 -> BenefitsNotFound.
func classifyBenefitsStatus(status int, body string) *apperr.Error {
	switch {
	case status == http.StatusBadRequest && strings.Contains(strings.ToUpper(body), "ACTIVE MEMBER COVERAGE NOT FOUND"):
		return apperr.New(apperr.MemberNotFound, "member has no active coverage").WithQuerySummary(truncate(body, 200))
	case status == http.StatusBadRequest:
		return apperr.New(apperr.BenefitsNotFound, "benefits request rejected").WithQuerySummary(truncate(body, 200))
	case status >= 500:
		return apperr.New(apperr.BenefitsNotFound, "benefits service error").WithQuerySummary(truncate(body, 200))
	default:
		return apperr.New(apperr.BenefitsNotFound, "unexpected benefits response").WithQuerySummary(truncate(body, 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
