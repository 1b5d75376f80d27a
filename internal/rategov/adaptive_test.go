package rategov

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveLimiter_ConvergesTowardTarget(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	lim := NewAdaptiveLimiter(100, time.Second, clock)

	initial := lim.Batch()
	require.Greater(t, initial, 0.0)

	// Simulate sending well below target: observed rate stays low, so the
	// convergence step should grow the batch toward the target.
	for i := 0; i < 50; i++ {
		lim.Record(1)
		clock.Advance(5 * time.Millisecond)
	}
	grown := lim.Batch()
	require.GreaterOrEqual(t, grown, initial)
}

func TestAdaptiveLimiter_ClampsToBounds(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	lim := NewAdaptiveLimiter(1_000_000, time.Second, clock)

	for i := 0; i < 10; i++ {
		clock.Advance(2 * time.Millisecond)
		b := lim.Batch()
		require.LessOrEqual(t, b, maxBatch)
		require.GreaterOrEqual(t, b, minBatch)
	}
}

func TestAdaptiveLimiter_ResetsOnWallClockGap(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	lim := NewAdaptiveLimiter(50, time.Second, clock)

	lim.Record(10)
	clock.Advance(2 * time.Second) // exceeds resetGap
	lim.tickLockedForTest()

	lim.mu.Lock()
	var total uint64
	for _, b := range lim.buckets {
		total += b
	}
	lim.mu.Unlock()
	require.Zero(t, total, "window should reset after a wall-clock discontinuity")
}

func TestAdaptiveLimiter_WaitRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	lim := NewAdaptiveLimiter(1, time.Second, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := lim.Wait(ctx)
	require.Error(t, err)
}

// tickLockedForTest exposes tickLocked to the test package without widening
// the production API surface.
func (a *AdaptiveLimiter) tickLockedForTest() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tickLocked(a.clock.Now())
}
