package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes retry delays. Rand defaults to math/rand/v2.
type Backoff struct {
	cfg  BackoffConfig
	rand func() float64
}

func NewBackoff(cfg BackoffConfig) Backoff {
	defaults := DefaultBackoffConfig()
	if cfg.Base <= 0 {
		cfg.Base = defaults.Base
	}
	if cfg.Max < cfg.Base {
		cfg.Max = cfg.Base
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = defaults.Jitter
	}
	return Backoff{cfg: cfg, rand: rand.Float64}
}

// WithRand replaces the jitter source; fn must return values in [0,1).
func (b Backoff) WithRand(fn func() float64) Backoff {
	if fn != nil {
		b.rand = fn
	}
	return b
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.cfg.Base
	for i := 1; i < attempt && d < b.cfg.Max; i++ {
		d *= 2
	}
	if d > b.cfg.Max {
		d = b.cfg.Max
	}
	if b.cfg.Jitter == 0 || b.rand == nil {
		return d
	}
	spread := (b.rand()*2 - 1) * b.cfg.Jitter
	return time.Duration(float64(d) * (1 + spread))
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
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
