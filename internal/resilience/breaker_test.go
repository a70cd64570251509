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

func countsAllFailures(err error) bool { return err != nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Threshold: 2, CooldownPeriod: time.Hour, HalfOpenMaxCalls: 1}, zap.NewNop())
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		err := b.Call(context.Background(), countsAllFailures, func(context.Context) error { return boom })
		assert.Equal(t, boom, err)
	}
	assert.Equal(t, StateOpen, b.State())

	err := b.Call(context.Background(), countsAllFailures, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Threshold: 1, CooldownPeriod: time.Millisecond, HalfOpenMaxCalls: 1}, zap.NewNop())
	boom := errors.New("boom")

	_ = b.Call(context.Background(), countsAllFailures, func(context.Context) error { return boom })
	require.Equal(t, StateOpen, b.State())

	time.Sleep(5 * time.Millisecond)

	err := b.Call(context.Background(), countsAllFailures, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Threshold: 1, CooldownPeriod: time.Millisecond, HalfOpenMaxCalls: 1}, zap.NewNop())
	boom := errors.New("boom")

	_ = b.Call(context.Background(), countsAllFailures, func(context.Context) error { return boom })
	time.Sleep(5 * time.Millisecond)

	_ = b.Call(context.Background(), countsAllFailures, func(context.Context) error { return boom })
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_NonCountingFailureNeverOpens(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Threshold: 1, CooldownPeriod: time.Hour, HalfOpenMaxCalls: 1}, zap.NewNop())
	boom := errors.New("client error")
	never := func(error) bool { return false }

	for i := 0; i < 5; i++ {
		_ = b.Call(context.Background(), never, func(context.Context) error { return boom })
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OnStateChangeFires(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Threshold: 1, CooldownPeriod: time.Hour, HalfOpenMaxCalls: 1}, zap.NewNop())
	var transitions []BreakerState
	b.OnStateChange(func(_, to BreakerState) { transitions = append(transitions, to) })

	_ = b.Call(context.Background(), countsAllFailures, func(context.Context) error { return errors.New("x") })

	require.Len(t, transitions, 1)
	assert.Equal(t, StateOpen, transitions[0])
}
