package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// SubmitFunc submits a generation job to a vendor and returns its handle.
// It may fail transiently (wrapped retry applies) or permanently.
type SubmitFunc func(ctx context.Context) (JobHandle, error)

// RelocateFunc moves a raw vendor result into durable storage.
type RelocateFunc func(ctx context.Context, raw *RawResult) (*RelocatedAsset, error)

// Config carries the per-call orchestration parameters. Constructed fresh
// per call and read-only during the run.
type Config struct {
	PollInterval     time.Duration
	MaxPollAttempts  int
	MaxSubmitRetries int
	Backoff          BackoffPolicy
	RetryEnabled     bool
}

// ConfigFrom derives a per-call Config from the process-wide defaults.
func ConfigFrom(oc common.OrchConfig) Config {
	return Config{
		PollInterval:     oc.PollInterval,
		MaxPollAttempts:  oc.MaxPollAttempts,
		MaxSubmitRetries: oc.MaxSubmitRetries,
		Backoff: BackoffPolicy{
			Multiplier: oc.BackoffMultiplier,
			Min:        oc.BackoffMin,
			Max:        oc.BackoffMax,
		},
		RetryEnabled: oc.RetryEnabled,
	}
}

// Orchestrator composes submit, poll, classify and relocate into one
// operation. The same composition serves every vendor; only the injected
// functions and the classifier vocabulary differ.
type Orchestrator struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger, now: time.Now}
}

// Run executes one orchestration:
//
//	submit (retry-wrapped) -> poll until terminal -> relocate on success.
//
// Terminal Failed/Expired/NotFound raises *common.TaskFailedError; poll
// exhaustion raises *common.TaskTimeoutError. Both carry the job id so the
// caller can decide whether to resubmit.
func (o *Orchestrator) Run(
	ctx context.Context,
	cfg Config,
	submit SubmitFunc,
	pollFn PollFunc,
	classifier Classifier,
	relocate RelocateFunc,
) (*RelocatedAsset, error) {
	retrier := NewRetrier(cfg.Backoff, cfg.MaxSubmitRetries, cfg.RetryEnabled)

	handle, err := DoValue(ctx, retrier, o.logger, func(ctx context.Context) (JobHandle, error) {
		return submit(ctx)
	})
	if err != nil {
		o.logger.Error("orchestrate.submit.failed", "error", err)
		return nil, err
	}
	if handle.SubmittedAt.IsZero() {
		handle.SubmittedAt = o.now()
	}
	o.logger.Info("orchestrate.submitted", "job_id", handle.ID)

	poller := NewPoller(cfg.PollInterval, cfg.MaxPollAttempts, o.logger)
	status, err := poller.Poll(ctx, handle, pollFn, classifier)
	if err != nil {
		// Either the caller cancelled or the poll budget ran out; the job may
		// still complete vendor-side in the latter case.
		return nil, err
	}

	if status.Phase.Terminal() && status.Result() == nil {
		o.logger.Warn("orchestrate.task_failed",
			"job_id", handle.ID,
			"phase", status.Phase,
			"reason", status.Reason,
		)
		return nil, &common.TaskFailedError{
			JobID:  handle.ID,
			Phase:  string(status.Phase),
			Detail: status.Reason,
		}
	}

	asset, err := relocate(ctx, status.Result())
	if err != nil {
		return nil, fmt.Errorf("relocate result of task %s: %w", handle.ID, err)
	}
	if !asset.Durable {
		o.logger.Warn("orchestrate.result_not_durable", "job_id", handle.ID, "url", asset.URL)
	}
	o.logger.Info("orchestrate.done",
		"job_id", handle.ID,
		"durable", asset.Durable,
		"size_bytes", asset.SizeBytes,
		"elapsed", o.now().Sub(handle.SubmittedAt),
	)
	return asset, nil
}
