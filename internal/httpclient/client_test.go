package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/resilience"
	"github.com/meridianhealth/estimator/internal/tokencache"
)

type fakeIssuer struct {
	calls int32
	token string
}

func (f *fakeIssuer) Issue(ctx context.Context) (tokencache.Token, error) {
	atomic.AddInt32(&f.calls, 1)
	return tokencache.Token{AccessToken: f.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func fastPolicy() resilience.RetryPolicy {
	return resilience.RetryPolicy{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: false}
}

func newTestClient(t *testing.T, srv *httptest.Server, issuer tokencache.Issuer) *Client {
	t.Helper()
	tokens := tokencache.New(issuer, zap.NewNop())
	return NewClient(Config{
		Name:    "test",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Breaker: resilience.BreakerConfig{Threshold: 5, CooldownPeriod: time.Minute, HalfOpenMaxCalls: 1},
		Retry:   fastPolicy(),
	}, tokens, zap.NewNop())
}

func TestClient_Call_SuccessReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &fakeIssuer{token: "tok-1"})
	resp, err := c.Call(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_Call_RetriesOn500ThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &fakeIssuer{token: "tok-1"})
	resp, err := c.Call(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestClient_Call_NonRetryable4xxReturnsImmediately(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &fakeIssuer{token: "tok-1"})
	resp, err := c.Call(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_Call_401TriggersExactlyOneRefreshAndRetry(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	issuer := &fakeIssuer{token: "tok-1"}
	c := newTestClient(t, srv, issuer)

	// Prime the cache with tok-1, then make the second issuer call return tok-2.
	_, err := c.tokens.GetOrRefresh(context.Background())
	require.NoError(t, err)
	issuer.token = "tok-2"

	resp, err := c.Call(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Equal(t, int32(2), atomic.LoadInt32(&issuer.calls))
}

func TestClient_Call_CircuitOpensAfterThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tokens := tokencache.New(&fakeIssuer{token: "tok-1"}, zap.NewNop())
	c := NewClient(Config{
		Name:    "test",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Breaker: resilience.BreakerConfig{Threshold: 1, CooldownPeriod: time.Minute, HalfOpenMaxCalls: 1},
		Retry:   resilience.RetryPolicy{MaxAttempts: 1, MinDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, tokens, zap.NewNop())

	_, err := c.Call(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err) // terminal 5xx after exhausting retries is returned as a response, not an error

	_, err = c.Call(context.Background(), http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamUnavailable, apperr.CodeOf(err))
	assert.Equal(t, resilience.StateOpen, c.Breaker().State())
}
