package rategov

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// numBuckets is the width of the circular recent-send window used to
	// estimate observed throughput (spec.md §4.4 RateState).
	numBuckets = 256

	minBatch = 1.0
	maxBatch = 10_000.0

	// resetGap is the wall-clock discontinuity (e.g. a suspended laptop,
	// a debugger pause) past which the window is discarded rather than
	// trusted to reflect real recent throughput.
	resetGap = time.Second
)

// AdaptiveLimiter throttles send rate to a target packets-per-second figure
// using a sliding window of per-bucket send counts and a batch size that
// converges toward the target via batch *= sqrt(target/observed), directly
// generalizing the teacher's probing.IntervalConfig pacing loop
// (client/doublezerod/internal/probing) from a fixed ticker interval to an
// adaptive one driven by observed throughput.
type AdaptiveLimiter struct {
	clock clockwork.Clock

	mu         sync.Mutex
	targetRate float64 // packets/sec
	window     time.Duration
	bucketDur  time.Duration
	buckets    [numBuckets]uint64
	curBucket  int
	bucketTime time.Time // start time of buckets[curBucket]
	lastTick   time.Time
	batch      float64
	sent       uint64 // total sends recorded, for tests/metrics
}

// NewAdaptiveLimiter constructs a limiter targeting rate packets/sec over a
// window (commonly 1s, giving one bucket per ~3.9ms at numBuckets=256).
func NewAdaptiveLimiter(rate float64, window time.Duration, clock clockwork.Clock) *AdaptiveLimiter {
	if rate <= 0 {
		rate = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	now := clock.Now()
	return &AdaptiveLimiter{
		clock:      clock,
		targetRate: rate,
		window:     window,
		bucketDur:  window / numBuckets,
		bucketTime: now,
		lastTick:   now,
		batch:      math.Max(minBatch, rate*window.Seconds()/numBuckets),
	}
}

// SetTargetRate updates the target packets/sec, e.g. from a timing
// template change or an orchestrator backoff decision.
func (a *AdaptiveLimiter) SetTargetRate(rate float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rate <= 0 {
		rate = 1
	}
	a.targetRate = rate
}

// TargetRate reports the current target packets/sec.
func (a *AdaptiveLimiter) TargetRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.targetRate
}

// Batch reports the current converged batch size: how many packets may be
// sent back-to-back before the caller should yield to Wait again.
func (a *AdaptiveLimiter) Batch() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tickLocked(a.clock.Now())
	return a.batch
}

// Record registers n packets sent just now, advancing the circular window.
func (a *AdaptiveLimiter) Record(n uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.clock.Now()
	a.advanceLocked(now)
	a.buckets[a.curBucket] += n
	a.sent += n
}

// Wait blocks until the governor's pacing interval for one batch has
// elapsed, or ctx is canceled. The pacing interval is batch/target_rate,
// recomputed each call so rate changes take effect immediately.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	a.mu.Lock()
	a.tickLocked(a.clock.Now())
	interval := time.Duration(a.batch / a.targetRate * float64(time.Second))
	a.mu.Unlock()

	if interval <= 0 {
		return nil
	}
	timer := a.clock.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advanceLocked rotates the circular window forward to now, zeroing any
// buckets the window has aged past, and resets the whole window on a
// wall-clock discontinuity larger than resetGap (suspend/resume).
func (a *AdaptiveLimiter) advanceLocked(now time.Time) {
	elapsed := now.Sub(a.bucketTime)
	if elapsed < 0 || elapsed > resetGap {
		a.resetLocked(now)
		return
	}
	steps := int(elapsed / a.bucketDur)
	if steps <= 0 {
		return
	}
	if steps >= numBuckets {
		a.resetLocked(now)
		return
	}
	for i := 0; i < steps; i++ {
		a.curBucket = (a.curBucket + 1) % numBuckets
		a.buckets[a.curBucket] = 0
	}
	a.bucketTime = a.bucketTime.Add(time.Duration(steps) * a.bucketDur)
}

func (a *AdaptiveLimiter) resetLocked(now time.Time) {
	for i := range a.buckets {
		a.buckets[i] = 0
	}
	a.curBucket = 0
	a.bucketTime = now
	a.lastTick = now
}

// observedLocked sums the window and divides by its elapsed span, which is
// always <= a.window.
func (a *AdaptiveLimiter) observedLocked() float64 {
	var total uint64
	for _, b := range a.buckets {
		total += b
	}
	if total == 0 {
		return 0
	}
	return float64(total) / a.window.Seconds()
}

// tickLocked applies one convergence step if at least 1ms has elapsed
// since the last tick (spec.md §4.4 "every tick (>=1ms)"):
// batch <- clamp(batch * sqrt(target_rate/max(observed,1)), 1, 10000).
func (a *AdaptiveLimiter) tickLocked(now time.Time) {
	a.advanceLocked(now)
	if now.Sub(a.lastTick) < time.Millisecond {
		return
	}
	a.lastTick = now

	observed := a.observedLocked()
	if observed <= 0 {
		observed = 1
	}
	a.batch *= math.Sqrt(a.targetRate / observed)
	a.batch = math.Max(minBatch, math.Min(maxBatch, a.batch))
}
