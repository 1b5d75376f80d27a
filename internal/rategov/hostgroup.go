// Package rategov implements the Rate Governor (spec.md §4.4): a two-tier
// concurrency/throughput control consisting of a counted semaphore bounding
// concurrent targets ("hostgroup") and an adaptive packets-per-second
// limiter with a circular recent-rate window and a converging batch size.
package rategov

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// HostGroup is a resizable counted semaphore bounding how many targets a
// multi-port strategy (Connect, SYN, concurrent) probes at once. It is
// directly adapted from the teacher's probing.SemaphoreLimiter, generalized
// from a fixed capacity to one resizable within [min, max] so the
// orchestrator can shrink it under congestion pressure (spec.md §4.4,
// §4.12 "kernel send buffer full: apply pressure to rate governor").
type HostGroup struct {
	mu       sync.Mutex
	min, max int
	cur      int // current target capacity
	toRemove int // permits to drain on next Release calls, pending a shrink
	sem      chan struct{}
}

// NewHostGroup constructs a HostGroup starting at capacity max, resizable
// down to min. Per-port strategies do not acquire hostgroup permits at all
// (spec.md §4.4) and simply never call Acquire.
//
// sem's buffer is sized max and pre-loaded with max permits; Acquire
// consumes one, Release returns it. Resize adjusts cur within [min, max] by
// pushing fresh permits in (growing) or having the next |delta| Releases
// drop their permit instead of returning it (shrinking) -- the buffer's
// fixed size never needs to change, only how many permits circulate in it.
func NewHostGroup(min, max int) (*HostGroup, error) {
	if min <= 0 || max <= 0 || min > max {
		return nil, fmt.Errorf("rategov: invalid hostgroup bounds [%d,%d]", min, max)
	}
	h := &HostGroup{min: min, max: max, cur: max, sem: make(chan struct{}, max)}
	for i := 0; i < max; i++ {
		h.sem <- struct{}{}
	}
	return h, nil
}

// String describes the hostgroup's current bounds and capacity.
func (h *HostGroup) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fmt.Sprintf("HostGroup(min=%d, max=%d, cur=%d)", h.min, h.max, h.cur)
}

// Acquire reserves one concurrency slot, blocking until available or ctx is
// canceled. The returned release function must be called exactly once.
func (h *HostGroup) Acquire(ctx context.Context) (func(), bool) {
	select {
	case <-h.sem:
		return func() { h.release() }, true
	case <-ctx.Done():
		return nil, false
	}
}

// release returns a consumed permit to circulation, unless a pending Resize
// shrink still needs permits drained -- in which case this one is dropped
// instead, counting against that shrink.
func (h *HostGroup) release() {
	h.mu.Lock()
	if h.toRemove > 0 {
		h.toRemove--
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.sem <- struct{}{}
}

// Resize adjusts the effective capacity within [min, max]. Growing pushes
// target-cur fresh permits into sem immediately (sem's buffer is sized max,
// so there is always room); shrinking drains target-cur permits from sem
// if currently available, or -- if some are checked out -- defers the
// drain to however many future Release calls it takes.
func (h *HostGroup) Resize(target int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if target < h.min {
		target = h.min
	}
	if target > h.max {
		target = h.max
	}
	delta := target - h.cur
	h.cur = target

	switch {
	case delta > 0:
		for i := 0; i < delta; i++ {
			h.sem <- struct{}{}
		}
	case delta < 0:
		n := -delta
		for n > 0 {
			select {
			case <-h.sem:
				n--
			default:
				h.toRemove += n
				n = 0
			}
		}
	}
	return h.cur
}

// Capacity reports the current target capacity.
func (h *HostGroup) Capacity() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

// ErrZeroCapacity names a request for a zero-sized group. No function in
// this package returns it; NewHostGroup reports invalid bounds with its
// own error.
var ErrZeroCapacity = errors.New("rategov: capacity must be > 0")
