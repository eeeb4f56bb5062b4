// Package retry executes operations under a classify-and-backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/distill-ai/distill/internal/llm"
	"github.com/distill-ai/distill/internal/logger"
)

// ErrMaxAttempts indicates that all retry attempts have been exhausted.
var ErrMaxAttempts = errors.New("max retry attempts exceeded")

// Options configures retry behavior. The zero value is usable; missing
// fields are replaced with defaults.
type Options struct {
	// Rand yields values in [0,1) for jitter. Injectable so tests can
	// assert exact delay bounds. Defaults to math/rand.
	Rand         func() float64
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // ceiling on any single delay
	Multiplier   float64       // growth factor per attempt
	Jitter       float64       // random perturbation as a fraction of the delay
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	}
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	return o
}

// Delay returns the pre-jitter backoff delay after a given failed
// attempt (1-based). Pure function of attempt index and configuration.
func (o Options) Delay(attempt int) time.Duration {
	o = o.withDefaults()
	d := float64(o.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= o.Multiplier
		if d >= float64(o.MaxDelay) {
			return o.MaxDelay
		}
	}
	if d > float64(o.MaxDelay) {
		return o.MaxDelay
	}
	return time.Duration(d)
}

// jittered perturbs a delay by up to Jitter fraction of its value.
func (o Options) jittered(d time.Duration) time.Duration {
	if o.Jitter == 0 {
		return d
	}
	return d + time.Duration(o.Rand()*o.Jitter*float64(d))
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// attempt budget is exhausted, or ctx is done. It returns the number of
// attempts actually made.
//
// Only transient and rate-limited provider failures are retried;
// auth and invalid-request failures propagate immediately.
func Do(ctx context.Context, op func(context.Context) error, opts Options) (int, error) {
	opts = opts.withDefaults()

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}

		if !llm.IsRetryable(err) {
			return attempt, err
		}

		if attempt >= opts.MaxAttempts {
			return attempt, fmt.Errorf("%w (%d attempts): %v", ErrMaxAttempts, attempt, err)
		}

		delay := opts.jittered(opts.Delay(attempt))
		logger.Debug("retrying after failure",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
}
