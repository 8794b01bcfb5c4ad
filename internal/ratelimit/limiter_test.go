package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewLimiterName(t *testing.T) {
	limiter := New("catalogs", 200*time.Millisecond)
	require.Equal(t, "catalogs", limiter.Name())
}

func TestAllowEnforcesSpacing(t *testing.T) {
	limiter := New("test", time.Hour)

	// Burst of one: the first call passes, the immediate second does not.
	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())
}

func TestWaitSpacesCalls(t *testing.T) {
	interval := 20 * time.Millisecond
	limiter := New("test", interval)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, interval)
}

func TestWaitRespectsCancelledContext(t *testing.T) {
	limiter := New("test", time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "test")
}
