package resilience

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

// SleepFunc waits for d or until ctx is done. It is injectable so tests can
// observe backoff delays without sleeping.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy controls how an external call is attempted and retried.
type Policy struct {
	// Service and Operation label log lines and failures ("anthropic", "competitors").
	Service   string
	Operation string

	// MaxAttempts is the total number of invocations, including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay scales the wait before retry n (n starting at 1), which is
	// 2^n * BaseDelay. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Default: 30s.
	MaxDelay time.Duration

	// Sleep performs the wait. Default: a timer that honors ctx.
	Sleep SleepFunc

	// ShouldRetry decides whether a failure is worth another attempt.
	// Default: everything except a PermanentError, an open circuit or a
	// finished context.
	ShouldRetry func(err error) bool

	// Limiter, when set, is waited on before every attempt.
	Limiter *RateLimiter

	// Breaker, when set, guards every attempt.
	Breaker *CircuitBreaker

	// Logger receives one line per attempt. Default: zap.L().
	Logger *zap.Logger
}

// DefaultPolicy returns the policy used for inference and search calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// Named returns a copy of p labeled with service and operation.
func (p Policy) Named(service, operation string) Policy {
	p.Service = service
	p.Operation = operation
	return p
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Attempt invokes op until it succeeds or the policy's attempts are used up.
// Exhaustion is reported as *ExternalCallFailure wrapping the last error.
func Attempt(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := AttemptVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// AttemptVal is Attempt for operations that return a value.
func AttemptVal[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	log := p.Logger.With(zap.String("service", p.Service), zap.String("operation", p.Operation))

	var zero T
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.Limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts = attempt
		val, err := invoke(ctx, p.Breaker, op)
		if err == nil {
			log.Debug("external call succeeded", zap.Int("attempt", attempt), zap.String("outcome", "success"))
			return val, nil
		}
		lastErr = err
		log.Warn("external call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.String("outcome", "failure"),
			zap.Error(err),
		)

		if attempt == p.MaxAttempts || ctx.Err() != nil || !p.ShouldRetry(err) {
			break
		}
		if sleepErr := p.Sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			break
		}
	}

	return zero, &ExternalCallFailure{
		Service:   p.Service,
		Operation: p.Operation,
		Attempts:  attempts,
		Cause:     lastErr,
	}
}

// AttemptOr is AttemptVal that hands the failure to fallback instead of
// returning it.
func AttemptOr[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), fallback func(err error) T) T {
	val, err := AttemptVal(ctx, p, op)
	if err != nil {
		return fallback(err)
	}
	return val
}

func invoke[T any](ctx context.Context, cb *CircuitBreaker, op func(ctx context.Context) (T, error)) (T, error) {
	if cb == nil {
		return op(ctx)
	}
	return ExecuteVal(ctx, cb, op)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = retryable
	}
	if p.Logger == nil {
		p.Logger = zap.L()
	}
	return p
}

func retryable(err error) bool {
	return !IsPermanent(err) &&
		!errors.Is(err, ErrCircuitOpen) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
