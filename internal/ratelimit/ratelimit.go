// Package ratelimit bounds outbound request rate over a sliding time window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrWaitTimeout is returned when an Acquire wait exceeds the configured bound.
var ErrWaitTimeout = errors.New("rate limit wait timed out")

// Limiter admits at most limit requests within any trailing window.
// Unlike a fixed-bucket limiter, the window boundary is continuously
// [now-window, now], which avoids bursts at bucket edges.
type Limiter struct {
	now         func() time.Time
	timestamps  []time.Time // admission times still inside the window
	window      time.Duration
	waitTimeout time.Duration // 0 means wait indefinitely
	limit       int
	mu          sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects a clock, letting tests drive the window deterministically.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithWindow overrides the default 60s window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		l.window = d
	}
}

// WithWaitTimeout bounds how long Acquire may block before
// returning ErrWaitTimeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		l.waitTimeout = d
	}
}

// New creates a limiter admitting requestsPerMinute requests per
// trailing 60-second window.
func New(requestsPerMinute int, opts ...Option) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	l := &Limiter{
		limit:      requestsPerMinute,
		window:     time.Minute,
		now:        time.Now,
		timestamps: make([]time.Time, 0, requestsPerMinute),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryAcquire attempts to admit one request without blocking.
// On success the admission timestamp is recorded.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.trim(now)

	if len(l.timestamps) >= l.limit {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// Acquire blocks until admitting one more request would not exceed the
// limit within the trailing window, the context is done, or the
// configured wait timeout elapses.
func (l *Limiter) Acquire(ctx context.Context) error {
	var timeout <-chan time.Time
	if l.waitTimeout > 0 {
		timer := time.NewTimer(l.waitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		ok, wait := l.tryAcquireWait()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timeout:
			timer.Stop()
			return ErrWaitTimeout
		case <-timer.C:
			// Window advanced; try again.
		}
	}
}

// tryAcquireWait attempts admission; on failure it returns how long
// until the oldest in-window timestamp expires.
func (l *Limiter) tryAcquireWait() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.trim(now)

	if len(l.timestamps) < l.limit {
		l.timestamps = append(l.timestamps, now)
		return true, 0
	}

	wait := l.timestamps[0].Add(l.window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return false, wait
}

// trim drops timestamps that have fallen out of the window.
// Caller must hold the mutex.
func (l *Limiter) trim(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}

// Len returns the number of admissions currently inside the window.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trim(l.now())
	return len(l.timestamps)
}

// Limit returns the configured admissions-per-window limit.
func (l *Limiter) Limit() int {
	return l.limit
}
