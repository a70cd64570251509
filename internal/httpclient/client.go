package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/resilience"
	"github.com/meridianhealth/estimator/internal/tlsutil"
	"github.com/meridianhealth/estimator/internal/tokencache"
)

var tracer = otel.Tracer("github.com/meridianhealth/estimator/internal/httpclient")

// Response is the result of a successful round trip (transport-level
// success; the HTTP status may still be an error status for the caller to
// classify, since error-body parsing is upstream-specific — spec §4.3).
type Response struct {
	StatusCode int
	Body       []byte
}

// Client is the resilient HTTP client from spec §4.2. One Client instance is
// shared across all calls to a given endpoint so its breaker and retry
// policy apply per-endpoint as specified; construct one Client per endpoint
// (Benefits, Accumulators) via NewClient.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	tokens  *tokencache.Cache
	breaker *resilience.Breaker
	retryer *resilience.Retryer
	logger  *zap.Logger
}

// Config configures one resilient-client instance.
type Config struct {
	Name        string
	BaseURL     string
	Timeout     time.Duration
	Breaker     resilience.BreakerConfig
	Retry       resilience.RetryPolicy
	InsecureTLS bool // spec §6: TLS verification on by default; opt out explicitly
}

// NewClient builds a resilient client for one named upstream endpoint.
func NewClient(cfg Config, tokens *tokencache.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := http.RoundTripper(tlsutil.SecureTransport())
	if cfg.InsecureTLS {
		transport = tlsutil.InsecureTransport()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout, Transport: transport}
	return &Client{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		http:    httpClient,
		tokens:  tokens,
		breaker: resilience.NewBreaker(cfg.Name, cfg.Breaker, logger),
		retryer: resilience.NewRetryer(cfg.Retry, logger),
		logger:  logger.With(zap.String("endpoint", cfg.Name)),
	}
}

// Breaker exposes the underlying breaker for telemetry wiring.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

// Call performs method to path with body, attaching the bearer token and
// id_token headers, retrying transient failures, refreshing the token
// exactly once on 401, and failing fast while the circuit breaker is open.
// Layering, outermost first (spec §4.2): breaker -> retry -> 401-refresh ->
// single HTTP call.
func (c *Client) Call(ctx context.Context, method, path string, body []byte) (Response, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("httpclient.call %s", c.name),
		trace.WithAttributes(attribute.String("endpoint", c.name), attribute.String("http.method", method)))
	defer span.End()

	var result Response
	err := c.breaker.Call(ctx, isBreakerFailure, func(ctx context.Context) error {
		return c.retryer.Do(ctx, isRetryableStatus, func(ctx context.Context) error {
			resp, err := c.callWithRefresh(ctx, method, path, body)
			if err != nil {
				return err
			}
			result = resp
			return retryableStatusError(resp.StatusCode)
		})
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if result.StatusCode != 0 {
			// A terminal non-2xx status after retries/breaker bookkeeping:
			// hand it back to the caller for upstream-specific classification.
			return result, nil
		}
		return Response{}, classifyTransportError(err)
	}
	return result, nil
}

// callWithRefresh performs exactly one HTTP round trip, and on a 401
// response clears the token cache and retries exactly once from a freshly
// obtained token (spec §4.2: "not counted against the retry budget").
func (c *Client) callWithRefresh(ctx context.Context, method, path string, body []byte) (Response, error) {
	resp, err := c.doOnce(ctx, method, path, body)
	if err != nil {
		return Response{}, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	c.logger.Debug("received 401, refreshing token")
	c.tokens.Clear()
	if _, rerr := c.tokens.Refresh(ctx); rerr != nil {
		return Response{}, apperr.New(apperr.Unauthorized, "token refresh failed").WithCause(rerr)
	}
	resp, err = c.doOnce(ctx, method, path, body)
	if err != nil {
		return Response{}, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return Response{}, apperr.New(apperr.Unauthorized, "unauthorized after token refresh")
	}
	return resp, nil
}

// doOnce performs a single HTTP round trip.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte) (Response, error) {
	token, err := c.tokens.GetOrRefresh(ctx)
	if err != nil {
		return Response{}, apperr.New(apperr.Unauthorized, "could not obtain token").WithCause(err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("id_token", token.IDToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("transport error calling %s: %w", c.name, err)
	}
	respBody := readBody(resp.Body)
	return Response{StatusCode: resp.StatusCode, Body: []byte(respBody)}, nil
}

// isRetryableStatus implements spec §4.2: retryable are transport errors,
// 5xx, and 429; not retryable is any other 4xx (401 is already absorbed by
// callWithRefresh before this predicate ever sees it).
func isRetryableStatus(err error) bool {
	if err == nil {
		return false
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Code == apperr.Unauthorized {
		return false // refresh already failed once for this call; retrying won't help
	}
	rs, ok := err.(*retryableStatus)
	if !ok {
		return true // transport-level error, not a status error: retryable
	}
	return rs.status >= 500 || rs.status == http.StatusTooManyRequests
}

// isBreakerFailure reports whether an error returned from the retry layer
// should count against the circuit breaker. Non-retryable business errors
// (plain 4xx) are the caller's problem, not the upstream's, so they don't
// trip the breaker; everything else does.
func isBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if rs, ok := err.(*retryableStatus); ok {
		return rs.status >= 500 || rs.status == http.StatusTooManyRequests
	}
	return true
}

type retryableStatus struct{ status int }

func (e *retryableStatus) Error() string { return fmt.Sprintf("http status %d", e.status) }

// retryableStatusError turns a terminal HTTP status into an error the retry
// layer can classify, or nil for 2xx (and for plain-4xx "not my problem"
// statuses the caller must classify from the body).
func retryableStatusError(status int) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return nil // terminal client error; caller classifies from body
	}
	return &retryableStatus{status: status}
}

func classifyTransportError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.New(apperr.UpstreamTimeout, "request deadline exceeded").WithCause(err)
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyHalfOpenCalls) {
		return apperr.New(apperr.UpstreamUnavailable, "circuit breaker open").WithCause(err).WithRetryable(false)
	}
	return apperr.New(apperr.UpstreamUnavailable, "upstream call failed").WithCause(err).WithRetryable(true)
}
