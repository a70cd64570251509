package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetryer_SucceedsWithoutRetryOnFirstSuccess(t *testing.T) {
	r := NewRetryer(RetryPolicy{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}, zap.NewNop())
	calls := 0
	err := r.Do(context.Background(), func(error) bool { return true }, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_RetriesUntilExhausted(t *testing.T) {
	r := NewRetryer(RetryPolicy{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}, zap.NewNop())
	boom := errors.New("boom")
	calls := 0
	err := r.Do(context.Background(), func(error) bool { return true }, func(context.Context) error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 3, calls)
}

func TestRetryer_StopsOnNonRetryable(t *testing.T) {
	r := NewRetryer(RetryPolicy{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}, zap.NewNop())
	boom := errors.New("client error")
	calls := 0
	err := r.Do(context.Background(), func(error) bool { return false }, func(context.Context) error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_RespectsContextCancellation(t *testing.T) {
	r := NewRetryer(RetryPolicy{MaxAttempts: 5, MinDelay: time.Hour, MaxDelay: time.Hour}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := r.Do(ctx, func(error) bool { return true }, func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryer_DelayWithinBounds(t *testing.T) {
	r := NewRetryer(RetryPolicy{MaxAttempts: 3, MinDelay: 4 * time.Second, MaxDelay: 10 * time.Second, Jitter: true}, zap.NewNop())
	for attempt := 1; attempt <= 3; attempt++ {
		d := r.delay(attempt)
		assert.GreaterOrEqual(t, d, 4*time.Second)
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}
