package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/common"
)

func newTestPoller(maxAttempts int) *Poller {
	p := NewPoller(5*time.Second, maxAttempts, nil)
	p.sleep = noSleep
	return p
}

func TestPoller_TerminalStopsImmediately(t *testing.T) {
	p := newTestPoller(10)
	c := NewVocabClassifier(testVocab())
	result := &RawResult{URL: "https://vendor.example/a.png"}

	calls := 0
	status, err := p.Poll(context.Background(), JobHandle{ID: "j1"}, func(context.Context, JobHandle) (RawStatus, error) {
		calls++
		if calls < 3 {
			return RawStatus{State: "PENDING"}, nil
		}
		return RawStatus{State: "SUCCEEDED", Result: result}, nil
	}, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	if status.Phase != constants.TaskSucceeded {
		t.Fatalf("phase=%s, want %s", status.Phase, constants.TaskSucceeded)
	}
}

func TestPoller_ExhaustsExactBudget(t *testing.T) {
	p := newTestPoller(7)
	c := NewVocabClassifier(testVocab())

	calls := 0
	_, err := p.Poll(context.Background(), JobHandle{ID: "j1"}, func(context.Context, JobHandle) (RawStatus, error) {
		calls++
		return RawStatus{State: "RUNNING"}, nil
	}, c)
	if calls != 7 {
		t.Fatalf("calls=%d, want exactly 7", calls)
	}

	var timeout *common.TaskTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("err=%v, want *TaskTimeoutError", err)
	}
	if timeout.Attempts != 7 {
		t.Fatalf("Attempts=%d, want 7", timeout.Attempts)
	}
	if timeout.JobID != "j1" {
		t.Fatalf("JobID=%q, want j1", timeout.JobID)
	}
	// A timeout is not a vendor failure.
	var failed *common.TaskFailedError
	if errors.As(err, &failed) {
		t.Fatalf("timeout must not classify as a task failure")
	}
}

func TestPoller_PollErrorTreatedAsRunning(t *testing.T) {
	p := newTestPoller(5)
	c := NewVocabClassifier(testVocab())
	result := &RawResult{URL: "https://vendor.example/a.png"}

	calls := 0
	status, err := p.Poll(context.Background(), JobHandle{ID: "j1"}, func(context.Context, JobHandle) (RawStatus, error) {
		calls++
		if calls < 4 {
			return RawStatus{}, &common.TransientError{Op: "poll", StatusCode: 503}
		}
		return RawStatus{State: "SUCCEEDED", Result: result}, nil
	}, c)
	if err != nil {
		t.Fatalf("poll errors before a success must not surface: %v", err)
	}
	if status.Phase != constants.TaskSucceeded {
		t.Fatalf("phase=%s, want %s", status.Phase, constants.TaskSucceeded)
	}
}

func TestPoller_AllAttemptsErrored(t *testing.T) {
	p := newTestPoller(3)
	c := NewVocabClassifier(testVocab())

	last := errors.New("connection reset")
	_, err := p.Poll(context.Background(), JobHandle{ID: "j1"}, func(context.Context, JobHandle) (RawStatus, error) {
		return RawStatus{}, last
	}, c)

	var timeout *common.TaskTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("err=%v, want *TaskTimeoutError", err)
	}
	if !errors.Is(err, last) {
		t.Fatalf("timeout must carry the last poll error, got %v", err)
	}
}

func TestPoller_CancelledBeforeNextAttempt(t *testing.T) {
	p := NewPoller(5*time.Second, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
	c := NewVocabClassifier(testVocab())

	calls := 0
	_, err := p.Poll(ctx, JobHandle{ID: "j1"}, func(context.Context, JobHandle) (RawStatus, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return RawStatus{State: "RUNNING"}, nil
	}, c)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want no new attempt after cancellation", calls)
	}
}

func TestPoller_NoSleepAfterLastAttempt(t *testing.T) {
	p := NewPoller(5*time.Second, 3, nil)
	sleeps := 0
	p.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	c := NewVocabClassifier(testVocab())

	_, _ = p.Poll(context.Background(), JobHandle{ID: "j1"}, func(context.Context, JobHandle) (RawStatus, error) {
		return RawStatus{State: "RUNNING"}, nil
	}, c)
	if sleeps != 2 {
		t.Fatalf("sleeps=%d, want MaxAttempts-1", sleeps)
	}
}
