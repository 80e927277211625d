package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/ratelimit"
)

func TestWaitDurationWithinBounds(t *testing.T) {
	delay := 20 * time.Millisecond
	jitter := 30 * time.Millisecond
	l := ratelimit.New(delay, jitter)

	for i := 0; i < 5; i++ {
		start := time.Now()
		err := l.Wait(context.Background())
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, delay)
		// Generous upper bound to absorb scheduler slop.
		assert.Less(t, elapsed, delay+jitter+50*time.Millisecond)
	}
}

func TestWaitZeroDelayReturnsImmediately(t *testing.T) {
	l := ratelimit.New(0, 0)

	start := time.Now()
	err := l.Wait(context.Background())

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	l := ratelimit.New(5*time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetDelayAndJitter(t *testing.T) {
	l := ratelimit.NewDefault()

	l.SetDelay(42 * time.Millisecond)
	l.SetJitter(7 * time.Millisecond)

	assert.Equal(t, 42*time.Millisecond, l.Delay())
	assert.Equal(t, 7*time.Millisecond, l.Jitter())

	// Negative values clamp to zero.
	l.SetDelay(-1)
	l.SetJitter(-1)
	assert.Equal(t, time.Duration(0), l.Delay())
	assert.Equal(t, time.Duration(0), l.Jitter())
}
