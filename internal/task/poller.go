package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// PollFunc fetches one vendor-specific status snapshot for a job.
type PollFunc func(ctx context.Context, handle JobHandle) (RawStatus, error)

// Poller drives a job to a terminal state by calling a PollFunc at a fixed
// interval, classifying each snapshot, and stopping on the first terminal
// phase. The interval sleep is the loop's single suspension point and yields
// on context cancellation.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewPoller(interval time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Logger:      logger,
		sleep:       sleepWithContext,
		now:         time.Now,
	}
}

// Poll loops up to MaxAttempts times. It returns the first terminal
// TaskStatus, a *common.TaskTimeoutError when the attempt budget runs out
// without one, or ctx.Err() when the caller cancels. Transient errors from
// pollFn are logged and treated as still-running; only if every attempt
// errored does the last one surface, wrapped in the timeout error.
func (p *Poller) Poll(ctx context.Context, handle JobHandle, pollFn PollFunc, classifier Classifier) (TaskStatus, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	start := now()
	var lastPollErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Cancellation is observed at the iteration boundary: an in-flight
		// vendor call finishes, but no new one is issued.
		if err := ctx.Err(); err != nil {
			return TaskStatus{}, err
		}

		raw, err := pollFn(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return TaskStatus{}, ctx.Err()
			}
			lastPollErr = err
			p.Logger.Warn("poll.attempt_error",
				"job_id", handle.ID,
				"attempt", attempt,
				"max_attempts", p.MaxAttempts,
				"error", err,
			)
		} else {
			lastPollErr = nil
			status := classifier.Classify(raw)
			if status.Terminal() {
				p.Logger.Debug("poll.terminal",
					"job_id", handle.ID,
					"attempt", attempt,
					"phase", status.Phase,
				)
				return status, nil
			}
			p.Logger.Debug("poll.pending",
				"job_id", handle.ID,
				"attempt", attempt,
				"phase", status.Phase,
				"raw_state", raw.State,
			)
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return TaskStatus{}, err
		}
	}

	return TaskStatus{}, &common.TaskTimeoutError{
		JobID:    handle.ID,
		Attempts: p.MaxAttempts,
		Elapsed:  now().Sub(start),
		LastErr:  lastPollErr,
	}
}
