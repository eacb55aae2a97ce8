package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is advisory, process-wide backpressure for outbound calls.
// It refills continuously at a fixed rate, so the effective window rolls.
// The clock and the sleeper are injectable for deterministic tests.
type RateLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
	sleep   SleepFunc
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// WithSleep overrides how the limiter waits.
func WithSleep(sleep SleepFunc) RateLimiterOption {
	return func(l *RateLimiter) {
		l.sleep = sleep
	}
}

// NewRateLimiter allows perMinute calls per minute with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int, opts ...RateLimiterOption) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	l := &RateLimiter{
		limiter: rate.NewLimiter(limit, max(burst, 1)),
		now:     time.Now,
		sleep:   SleepContext,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Wait blocks until the next call is within budget or ctx is done. A wait
// abandoned by ctx hands its reserved token back. A nil limiter never blocks.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	now := l.now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return ctx.Err()
	}
	if err := l.sleep(ctx, r.DelayFrom(now)); err != nil {
		r.CancelAt(l.now())
		return err
	}
	return nil
}
