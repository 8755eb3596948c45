package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// BackoffPolicy computes retry delays: multiplier * 2^(n-1), clamped to
// [Min, Max]. Attempt numbers are 1-indexed.
type BackoffPolicy struct {
	Multiplier time.Duration
	Min        time.Duration
	Max        time.Duration
}

// DefaultBackoff mirrors the production submit-retry tuning: 1s multiplier,
// clamped between 2s and 10s.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Multiplier: time.Second,
		Min:        2 * time.Second,
		Max:        10 * time.Second,
	}
}

// Delay returns the sleep before retrying after attempt n has failed.
func (p BackoffPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.Multiplier
	for i := 1; i < n; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}
	if d < p.Min {
		d = p.Min
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Retrier wraps fallible operations with transient-error retry.
//
// When Enabled is false the wrapped operation executes exactly once and any
// error propagates unmodified: the bypass skips the classify/sleep machinery
// entirely so error types surface identically to an unwrapped call.
type Retrier struct {
	Policy      BackoffPolicy
	MaxAttempts int
	Enabled     bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier(policy BackoffPolicy, maxAttempts int, enabled bool) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{
		Policy:      policy,
		MaxAttempts: maxAttempts,
		Enabled:     enabled,
		sleep:       sleepWithContext,
	}
}

// Do runs op, retrying transient failures per the policy up to MaxAttempts
// total attempts, then re-returns the last error unchanged. Non-transient
// errors propagate on first occurrence.
func (r *Retrier) Do(ctx context.Context, logger *slog.Logger, op func(ctx context.Context) error) error {
	if !r.Enabled {
		return op(ctx)
	}
	if logger == nil {
		logger = slog.Default()
	}

	sleep := r.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !common.IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == r.MaxAttempts {
			break
		}

		delay := r.Policy.Delay(attempt)
		logger.Warn("retry.transient",
			"attempt", attempt,
			"max_attempts", r.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, r *Retrier, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, logger, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
