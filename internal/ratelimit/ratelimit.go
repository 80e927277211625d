// Package ratelimit enforces a politeness delay between outbound
// requests to scraped sites.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Default politeness settings.
const (
	DefaultDelay  = 1 * time.Second
	DefaultJitter = 500 * time.Millisecond
)

// Limiter suspends callers for a configured delay plus uniform random
// jitter. It holds no shared state beyond its own settings.
type Limiter struct {
	mu     sync.Mutex
	delay  time.Duration
	jitter time.Duration
	rng    *rand.Rand
}

// New creates a limiter with the given base delay and jitter.
func New(delay, jitter time.Duration) *Limiter {
	if delay < 0 {
		delay = 0
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Limiter{
		delay:  delay,
		jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewDefault creates a limiter with the default politeness settings.
func NewDefault() *Limiter {
	return New(DefaultDelay, DefaultJitter)
}

// Wait suspends the caller for delay + uniform_random(0, jitter).
// It returns early with the context error if ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	d := l.nextDelay()
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

// nextDelay computes the next wait duration under the lock.
func (l *Limiter) nextDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.delay
	if l.jitter > 0 {
		d += time.Duration(l.rng.Int63n(int64(l.jitter) + 1))
	}
	return d
}

// SetDelay updates the base delay.
func (l *Limiter) SetDelay(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	l.delay = delay
}

// SetJitter updates the jitter bound.
func (l *Limiter) SetJitter(jitter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if jitter < 0 {
		jitter = 0
	}
	l.jitter = jitter
}

// Delay returns the configured base delay.
func (l *Limiter) Delay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delay
}

// Jitter returns the configured jitter bound.
func (l *Limiter) Jitter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jitter
}
