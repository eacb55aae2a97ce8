package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	delays []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) limiter(perMinute, burst int) *RateLimiter {
	return NewRateLimiter(perMinute, burst,
		WithClock(func() time.Time { return c.now }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			c.delays = append(c.delays, d)
			return ctx.Err()
		}),
	)
}

func TestRateLimiter_BurstThenSpaced(t *testing.T) {
	clock := newFakeClock()
	l := clock.limiter(60, 2)

	for range 3 {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Equal(t, []time.Duration{0, 0, time.Second}, clock.delays)
}

func TestRateLimiter_Refills(t *testing.T) {
	clock := newFakeClock()
	l := clock.limiter(60, 1)

	require.NoError(t, l.Wait(context.Background()))
	clock.now = clock.now.Add(time.Second)
	require.NoError(t, l.Wait(context.Background()))

	assert.Equal(t, []time.Duration{0, 0}, clock.delays)
}

func TestRateLimiter_Unlimited(t *testing.T) {
	clock := newFakeClock()
	l := clock.limiter(0, 0)
	for range 100 {
		require.NoError(t, l.Wait(context.Background()))
	}
	for _, d := range clock.delays {
		assert.Zero(t, d)
	}
}

func TestRateLimiter_NilNeverBlocks(t *testing.T) {
	var l *RateLimiter
	assert.NoError(t, l.Wait(context.Background()))
}

func TestRateLimiter_CanceledWait(t *testing.T) {
	clock := newFakeClock()
	l := clock.limiter(1, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestRateLimiter_CanceledWaitReturnsToken(t *testing.T) {
	clock := newFakeClock()
	l := clock.limiter(60, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		require.ErrorIs(t, l.Wait(ctx), context.Canceled)
	}

	// Abandoned waits do not push the next caller further back.
	require.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, time.Second, clock.delays[len(clock.delays)-1])
}
