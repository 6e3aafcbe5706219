package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("binance", 2, 1))
	assert.True(t, l.Allow("binance", 2, 1))
	assert.False(t, l.Allow("binance", 2, 1))
	assert.True(t, l.Allow("other", 2, 1), "keys have independent buckets")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("binance", 2, 1))
	assert.False(t, l.Allow("binance", 2, 1))
}

func TestWaitHonoursContext(t *testing.T) {
	l := New()
	require.True(t, l.Allow("k", 1, 0.001))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "k", 1, 0.001)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReturnsWhenTokenAvailable(t *testing.T) {
	l := New()
	require.NoError(t, l.Wait(context.Background(), "k", 1, 1000))
	require.NoError(t, l.Wait(context.Background(), "k", 1, 1000))
}
