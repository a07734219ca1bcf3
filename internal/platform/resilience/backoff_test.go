package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := NewBackoff(BackoffConfig{Base: 100 * time.Millisecond, Max: time.Second, Jitter: 0.2}).
		WithRand(func() float64 { return 0.5 })

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{30, time.Second},
	}
	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: want %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	base := 200 * time.Millisecond
	low := NewBackoff(BackoffConfig{Base: base, Max: base, Jitter: 0.2}).WithRand(func() float64 { return 0 })
	high := NewBackoff(BackoffConfig{Base: base, Max: base, Jitter: 0.2}).WithRand(func() float64 { return 0.999999 })

	if got := low.Delay(1); got != 160*time.Millisecond {
		t.Fatalf("expected lower jitter bound, got %s", got)
	}
	if got := high.Delay(1); got < 239*time.Millisecond || got > 240*time.Millisecond {
		t.Fatalf("expected upper jitter bound, got %s", got)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep should not fail: %v", err)
	}
}
