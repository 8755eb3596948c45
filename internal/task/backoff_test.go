package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestBackoffPolicy_Delay(t *testing.T) {
	p := BackoffPolicy{Multiplier: time.Second, Min: 2 * time.Second, Max: 10 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},  // 1s raw, raised to min
		{2, 2 * time.Second},  // 2s raw
		{3, 4 * time.Second},  // 4s raw
		{4, 8 * time.Second},  // 8s raw
		{5, 10 * time.Second}, // 16s raw, clamped to max
		{6, 10 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d)=%v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoffPolicy_Delay_Monotonic(t *testing.T) {
	p := DefaultBackoff()
	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := p.Delay(n)
		if d < prev {
			t.Fatalf("Delay(%d)=%v decreased from %v", n, d, prev)
		}
		if d > p.Max {
			t.Fatalf("Delay(%d)=%v exceeds max %v", n, d, p.Max)
		}
		prev = d
	}
}

func TestRetrier_Disabled_CallsExactlyOnce(t *testing.T) {
	r := NewRetrier(DefaultBackoff(), 5, false)
	r.sleep = noSleep

	sentinel := &common.TransientError{Op: "submit", StatusCode: 503}
	calls := 0
	err := r.Do(context.Background(), nil, func(context.Context) error {
		calls++
		return sentinel
	})
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	// The bypass must not wrap or replace the error.
	if err != sentinel {
		t.Fatalf("err=%v, want the sentinel unmodified", err)
	}
}

func TestRetrier_TransientExhaustion(t *testing.T) {
	r := NewRetrier(DefaultBackoff(), 3, true)
	r.sleep = noSleep

	last := &common.TransientError{Op: "submit", StatusCode: 500}
	calls := 0
	err := r.Do(context.Background(), nil, func(context.Context) error {
		calls++
		return last
	})
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	if err != last {
		t.Fatalf("err=%v, want last transient error unchanged", err)
	}
}

func TestRetrier_NonTransientReturnsImmediately(t *testing.T) {
	r := NewRetrier(DefaultBackoff(), 5, true)
	r.sleep = noSleep

	boom := errors.New("invalid api key")
	calls := 0
	err := r.Do(context.Background(), nil, func(context.Context) error {
		calls++
		return boom
	})
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
}

func TestRetrier_SucceedsAfterTransients(t *testing.T) {
	r := NewRetrier(DefaultBackoff(), 5, true)
	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	calls := 0
	err := r.Do(context.Background(), nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return &common.TransientError{Op: "submit", StatusCode: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	want := []time.Duration{2 * time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays=%v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d]=%v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetrier_CancelledDuringSleep(t *testing.T) {
	r := NewRetrier(DefaultBackoff(), 5, true)
	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	err := r.Do(ctx, nil, func(context.Context) error {
		calls++
		return &common.TransientError{Op: "submit", StatusCode: 503}
	})
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestDoValue(t *testing.T) {
	r := NewRetrier(DefaultBackoff(), 3, true)
	r.sleep = noSleep

	calls := 0
	got, err := DoValue(context.Background(), r, nil, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &common.TransientError{Op: "submit", StatusCode: 502}
		}
		return "job-7", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "job-7" {
		t.Fatalf("got=%q, want job-7", got)
	}
}
