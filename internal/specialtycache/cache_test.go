package specialtycache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestCache(t *testing.T, codes ...string) (*miniredis.Miniredis, *Cache) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	if len(codes) > 0 {
		mr.SAdd("pcp-specialty-codes", codes...)
	}

	c, err := New(context.Background(), Config{
		Addr:   mr.Addr(),
		SetKey: "pcp-specialty-codes",
	}, zap.NewNop())
	require.NoError(t, err)

	return mr, c
}

func TestCache_InitialLoad(t *testing.T) {
	mr, c := setupTestCache(t, "207Q00000X", "208D00000X")
	defer mr.Close()
	defer c.Stop()

	assert.True(t, c.Contains("207Q00000X"))
	assert.False(t, c.Contains("nonexistent"))
	assert.Len(t, c.Snapshot(), 2)
}

func TestCache_RefreshPicksUpChanges(t *testing.T) {
	mr, c := setupTestCache(t, "207Q00000X")
	defer mr.Close()
	defer c.Stop()

	require.True(t, c.Contains("207Q00000X"))
	require.False(t, c.Contains("208D00000X"))

	mr.SAdd("pcp-specialty-codes", "208D00000X")
	require.NoError(t, c.refresh(context.Background()))

	assert.True(t, c.Contains("208D00000X"))
}

func TestCache_EmptySetNeverCrashes(t *testing.T) {
	mr, c := setupTestCache(t)
	defer mr.Close()
	defer c.Stop()

	assert.Empty(t, c.Snapshot())
	assert.False(t, c.Contains("anything"))
}

func TestCache_BackgroundRefreshLoop(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := New(context.Background(), Config{
		Addr:            mr.Addr(),
		SetKey:          "pcp-specialty-codes",
		RefreshInterval: 20 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	c.Start()
	defer c.Stop()

	mr.SAdd("pcp-specialty-codes", "207Q00000X")

	require.Eventually(t, func() bool {
		return c.Contains("207Q00000X")
	}, time.Second, 5*time.Millisecond)
}
