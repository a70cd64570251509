// Package resilience implements the per-endpoint circuit breaker and retry
// policy used by the resilient HTTP client (spec §4.2, C2). Which errors are
// retried or count against the breaker is decided by predicates the caller
// passes in; this package does not inspect apperr codes or HTTP statuses.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BreakerState is the circuit breaker's three-state machine (spec §4.2).
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a single endpoint's breaker.
type BreakerConfig struct {
	Threshold        int           // consecutive failures before opening
	CooldownPeriod   time.Duration // open -> half-open wait
	HalfOpenMaxCalls int           // probes admitted while half-open
}

// DefaultBreakerConfig returns spec-reasonable defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, CooldownPeriod: 30 * time.Second, HalfOpenMaxCalls: 1}
}

// ErrCircuitOpen is returned when the breaker fails fast.
var ErrCircuitOpen = errors.New("circuit breaker open")

// ErrTooManyHalfOpenCalls is returned when a half-open probe budget is exhausted.
var ErrTooManyHalfOpenCalls = errors.New("circuit breaker half-open probe budget exhausted")

// Breaker wraps calls to a single upstream endpoint. State transitions are
// serialized under mu; "opens after a window of failures exceeds threshold"
// is approximated by a consecutive-failure counter reset on success —
// simpler than a sliding window and sufficient for the closed/open/half-open
// contract.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *zap.Logger

	mu                sync.Mutex
	state             BreakerState
	failures          int
	lastFailureAt     time.Time
	halfOpenCallCount int

	onStateChange func(from, to BreakerState)
}

// NewBreaker creates a breaker for one named endpoint.
func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{name: name, cfg: cfg, logger: logger.With(zap.String("endpoint", name))}
}

// OnStateChange installs a callback invoked synchronously, with the
// breaker's lock held, whenever the breaker transitions. Used to feed the Prometheus
// state gauge in internal/telemetry.
func (b *Breaker) OnStateChange(fn func(from, to BreakerState)) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
	b.failures = 0
	b.halfOpenCallCount = 0
}

// beforeCall checks whether a call may proceed, transitioning open->half-open
// when the cooldown has elapsed.
func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.lastFailureAt) > b.cfg.CooldownPeriod {
			b.setState(StateHalfOpen)
			b.halfOpenCallCount = 1 // this call is the first half-open probe
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenCallCount >= b.cfg.HalfOpenMaxCalls {
			return ErrTooManyHalfOpenCalls
		}
		b.halfOpenCallCount++
		return nil
	default:
		return fmt.Errorf("breaker %s: unknown state %v", b.name, b.state)
	}
}

func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		switch b.state {
		case StateHalfOpen:
			b.logger.Info("circuit breaker recovered", zap.Int("half_open_calls", b.halfOpenCallCount))
			b.setState(StateClosed)
			b.halfOpenCallCount = 0
		}
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailureAt = time.Now()
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.Threshold {
			b.logger.Warn("circuit breaker opening", zap.Int("failures", b.failures))
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.logger.Warn("circuit breaker reopening after half-open failure")
		b.setState(StateOpen)
		b.halfOpenCallCount = 0
	}
}

func (b *Breaker) setState(to BreakerState) {
	from := b.state
	b.state = to
	if b.onStateChange != nil && from != to {
		b.onStateChange(from, to)
	}
}

// Call runs fn if the breaker admits it. countsAsFailure classifies the outcome for
// breaker bookkeeping: callers pass a function that reports whether a
// failure should count against the breaker (client errors and non-retryable
// business errors should not trip it — spec §4.2 only breaks on upstream
// failure modes).
func (b *Breaker) Call(ctx context.Context, countsAsFailure func(error) bool, fn func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := fn(ctx)
	b.afterCall(err == nil || !countsAsFailure(err))
	return err
}
