package fetchers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/httpclient"
	"github.com/meridianhealth/estimator/internal/resilience"
	"github.com/meridianhealth/estimator/internal/tokencache"
	"github.com/meridianhealth/estimator/types"
)

type staticIssuer struct{}

func (staticIssuer) Issue(ctx context.Context) (tokencache.Token, error) {
	return tokencache.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func newTestHTTPClient(t *testing.T, srv *httptest.Server) *httpclient.Client {
	t.Helper()
	tokens := tokencache.New(staticIssuer{}, zap.NewNop())
	return httpclient.NewClient(httpclient.Config{
		Name:    "test",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Breaker: resilience.BreakerConfig{Threshold: 10, CooldownPeriod: time.Minute, HalfOpenMaxCalls: 1},
		Retry:   resilience.RetryPolicy{MaxAttempts: 1, MinDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, tokens, zap.NewNop())
}

func TestBenefitsFetcher_Fetch_SuccessFlattensSingleService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"serviceInfo":[{"service":"office-visit","benefit":[{"networkCategory":"IN","tier":"1","code":"99213","coverages":[{"isServiceCovered":true,"costShareCopay":2500}]}]}]}`))
	}))
	defer srv.Close()

	f := NewBenefitsFetcher(newTestHTTPClient(t, srv), "MEDICAL", "DEFAULT")
	resp, err := f.Fetch(context.Background(), types.BenefitRequest{MembershipID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "office-visit", resp.Service)
	require.Len(t, resp.Benefits, 1)
	assert.Equal(t, "99213", resp.Benefits[0].Code)
}

func TestBenefitsFetcher_Fetch_MemberNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`Active Member Coverage Not Found for this request`))
	}))
	defer srv.Close()

	f := NewBenefitsFetcher(newTestHTTPClient(t, srv), "MEDICAL", "DEFAULT")
	_, err := f.Fetch(context.Background(), types.BenefitRequest{MembershipID: "m1"})
	require.Error(t, err)
	assert.Equal(t, apperr.MemberNotFound, apperr.CodeOf(err))
}

func TestBenefitsFetcher_Fetch_OtherBadRequestIsBenefitsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`malformed request`))
	}))
	defer srv.Close()

	f := NewBenefitsFetcher(newTestHTTPClient(t, srv), "MEDICAL", "DEFAULT")
	_, err := f.Fetch(context.Background(), types.BenefitRequest{MembershipID: "m1"})
	require.Error(t, err)
	assert.Equal(t, apperr.BenefitsNotFound, apperr.CodeOf(err))
}

func TestBenefitsFetcher_Fetch_SendsConfiguredProductTypeAndPlan(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"serviceInfo":[]}`))
	}))
	defer srv.Close()

	f := NewBenefitsFetcher(newTestHTTPClient(t, srv), "DENTAL", "PLAN-X")
	_, err := f.Fetch(context.Background(), types.BenefitRequest{MembershipID: "m1"})
	require.NoError(t, err)
	assert.Contains(t, string(gotBody), `"benefitProductType":"DENTAL"`)
	assert.Contains(t, string(gotBody), `"planIdentifier":"PLAN-X"`)
}

func TestAccumulatorsFetcher_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accumulators?memberId=m1", r.URL.RequestURI())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Deductible/Individual":{"limit":50000,"consumed":10000,"remaining":40000}}`))
	}))
	defer srv.Close()

	f := NewAccumulatorsFetcher(newTestHTTPClient(t, srv))
	resp, err := f.Fetch(context.Background(), types.AccumulatorQuery{MembershipID: "m1"})
	require.NoError(t, err)
	bal, ok := resp[types.AccumulatorKey{Code: types.AccumulatorDeductible, Level: types.LevelIndividual}]
	require.True(t, ok)
	assert.EqualValues(t, 40000, bal.Remaining)
}

func TestAccumulatorsFetcher_Fetch_NonOKIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewAccumulatorsFetcher(newTestHTTPClient(t, srv))
	_, err := f.Fetch(context.Background(), types.AccumulatorQuery{MembershipID: "m1"})
	require.Error(t, err)
	assert.Equal(t, apperr.AccumulatorUnavailable, apperr.CodeOf(err))
	assert.True(t, apperr.IsRetryable(err))
}
