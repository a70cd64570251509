package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy configures exponential backoff with bounds, per spec §4.2:
// "up to 3 attempts, exponential backoff with bounds [4s, 10s]".
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultRetryPolicy matches spec §6's configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, MinDelay: 4 * time.Second, MaxDelay: 10 * time.Second, Jitter: true}
}

// Retryer runs a function under an exponential-backoff retry policy,
// consulting a caller-supplied retryable predicate (spec §4.2's retryable
// rules live with the caller, since they depend on decoded response bodies
// the retryer itself never sees).
type Retryer struct {
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetryer builds a Retryer for one policy.
func NewRetryer(policy RetryPolicy, logger *zap.Logger) *Retryer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.MinDelay <= 0 {
		policy.MinDelay = 4 * time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{policy: policy, logger: logger}
}

// Do runs fn, retrying up to policy.MaxAttempts total attempts while
// isRetryable(lastErr) holds. The first attempt never waits.
func (r *Retryer) Do(ctx context.Context, isRetryable func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.delay(attempt)
			r.logger.Debug("retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return lastErr
}

// delay computes the exponential backoff for the given 1-based attempt
// index, clamped to [MinDelay, MaxDelay] with optional +/-25% jitter.
func (r *Retryer) delay(attempt int) time.Duration {
	base := float64(r.policy.MinDelay) * math.Pow(2, float64(attempt-1))
	if base > float64(r.policy.MaxDelay) {
		base = float64(r.policy.MaxDelay)
	}
	if base < float64(r.policy.MinDelay) {
		base = float64(r.policy.MinDelay)
	}
	if r.policy.Jitter {
		jitter := base * 0.25
		base += (rand.Float64()*2 - 1) * jitter
		if base < float64(r.policy.MinDelay) {
			base = float64(r.policy.MinDelay)
		}
		if base > float64(r.policy.MaxDelay) {
			base = float64(r.policy.MaxDelay)
		}
	}
	return time.Duration(base)
}
