package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsTransient(t *testing.T) {
	te := &TransientError{Op: "submit", StatusCode: 503, Cause: errors.New("busy")}
	if !IsTransient(te) {
		t.Fatalf("bare transient error not recognized")
	}
	if !IsTransient(fmt.Errorf("submit job: %w", te)) {
		t.Fatalf("wrapped transient error not recognized")
	}
	if IsTransient(errors.New("invalid api key")) {
		t.Fatalf("plain error must not classify as transient")
	}
	if IsTransient(nil) {
		t.Fatalf("nil must not classify as transient")
	}
}

func TestTaskTimeoutError_UnwrapsLastPollError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TaskTimeoutError{JobID: "j1", Attempts: 120, Elapsed: 10 * time.Minute, LastErr: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("timeout must unwrap to the last poll error")
	}
}

func TestToStatusError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", &ValidationError{Field: "prompt", Message: "required"}, codes.InvalidArgument},
		{"timeout", &TaskTimeoutError{JobID: "j1", Attempts: 3}, codes.DeadlineExceeded},
		{"task failed", &TaskFailedError{JobID: "j1", Phase: "FAILED"}, codes.Internal},
		{"not found", fmt.Errorf("asset: %w", ErrNotFound), codes.NotFound},
		{"transient", &TransientError{Op: "poll", StatusCode: 502}, codes.Unavailable},
		{"fallback", errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := status.Code(ToStatusError(tc.err))
			if got != tc.want {
				t.Fatalf("code=%s, want %s", got, tc.want)
			}
		})
	}
	if ToStatusError(nil) != nil {
		t.Fatalf("nil must pass through")
	}
}
