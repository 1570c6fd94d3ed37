package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsUpToMax(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.Minute)

	res, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, 20*time.Millisecond)

	res, err := l.Allow(ctx, "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "x")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(25 * time.Millisecond)

	res, err = l.Allow(ctx, "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
