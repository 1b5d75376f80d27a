// Package aggregator implements the Result Aggregator (spec.md §4.11): a
// concurrent map keyed by (address, port, protocol) that merges partial
// observations under PortState's precedence monoid and streams each
// record to its sinks as soon as it finalizes, rather than buffering the
// whole scan's output in memory.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// Sink receives finalized PortResults. Implementations (internal/sink)
// own their own retry/backoff per spec.md §4.12's "Sink write error:
// retryable with bounded backoff; final failure aborts scan".
type Sink interface {
	WritePortResult(ctx context.Context, r result.PortResult) error
}

// entry is the aggregator's mutable per-key state: the current merged
// result plus the bookkeeping needed to decide finalization (spec.md
// §4.11: "finalization occurs when (a) an Open/Closed/Unfiltered
// observation arrives, or (b) all retries for a probe are exhausted, or
// (c) scan ends").
type entry struct {
	result    result.PortResult
	finalized bool
}

// Aggregator merges PortResult observations by key and streams finalized
// records to its sinks.
type Aggregator struct {
	mu      sync.Mutex
	entries map[result.Key]*entry
	sinks   []Sink

	wg sync.WaitGroup
}

// New builds an Aggregator fanning finalized records out to sinks.
func New(sinks ...Sink) *Aggregator {
	return &Aggregator{entries: make(map[result.Key]*entry), sinks: sinks}
}

// Observe merges an incoming partial or final observation into the
// aggregator's state for its key. maxRetries is the strategy's retry
// budget; once exhausted (or the observation itself already carries a
// decisive state), the record finalizes and streams to sinks.
//
// merge never downgrades state (spec.md §3 invariant; §8 property: merge
// is a monoid with identity Unknown and is associative), so repeated
// calls for the same key are safe regardless of arrival order (spec.md
// §5: "Result Aggregator observes state transitions in the order they
// arrive at the dispatcher; merge precedence makes the final state
// insensitive to that order").
func (a *Aggregator) Observe(ctx context.Context, incoming result.PortResult, attemptsUsed, maxRetries int) error {
	key := incoming.Key()

	a.mu.Lock()
	e, ok := a.entries[key]
	if !ok {
		e = &entry{result: result.PortResult{Address: incoming.Address, Port: incoming.Port, Protocol: incoming.Protocol, State: result.Unknown}}
		a.entries[key] = e
	}
	if e.finalized {
		a.mu.Unlock()
		return nil
	}

	e.result.State = result.Merge(e.result.State, incoming.State)
	if incoming.Banner != nil {
		e.result.Banner = append(e.result.Banner, incoming.Banner...)
	}
	if incoming.Service != nil {
		e.result.Service = mergeService(e.result.Service, incoming.Service)
	}
	if incoming.ResponseTime > 0 {
		e.result.ResponseTime = incoming.ResponseTime
	}
	e.result.ObservedAt = incoming.ObservedAt

	decisive := isDecisive(e.result.State)
	exhausted := attemptsUsed >= maxRetries
	if decisive || exhausted {
		e.finalized = true
		final := e.result
		a.mu.Unlock()
		return a.flush(ctx, final)
	}
	a.mu.Unlock()
	return nil
}

// isDecisive reports whether a state already represents a terminal
// finding under merge precedence: Open, Closed, and Unfiltered all
// decide the port's classification outright, while Filtered/OpenFiltered
// remain provisional until retries are exhausted (spec.md §4.11).
func isDecisive(s result.PortState) bool {
	switch s {
	case result.Open, result.Closed, result.Unfiltered:
		return true
	default:
		return false
	}
}

func mergeService(existing, incoming *result.ServiceInfo) *result.ServiceInfo {
	if existing == nil {
		return incoming
	}
	if incoming == nil {
		return existing
	}
	out := *existing
	if out.Name == "" {
		out.Name = incoming.Name
	}
	if out.Product == "" {
		out.Product = incoming.Product
	}
	if out.Version == "" {
		out.Version = incoming.Version
	}
	if out.ExtraInfo == "" {
		out.ExtraInfo = incoming.ExtraInfo
	}
	if out.OSHint == "" {
		out.OSHint = incoming.OSHint
	}
	out.CPE = append(out.CPE, incoming.CPE...)
	if out.TLSCert == nil {
		out.TLSCert = incoming.TLSCert
	}
	return &out
}

// flush writes a finalized record to every sink concurrently, propagating
// the first error (spec.md §4.12: a sink write failure is retryable by
// the sink itself; a terminal failure here aborts the scan).
func (a *Aggregator) flush(ctx context.Context, r result.PortResult) error {
	if len(a.sinks) == 0 {
		return nil
	}
	errCh := make(chan error, len(a.sinks))
	for _, s := range a.sinks {
		s := s
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			errCh <- s.WritePortResult(ctx, r)
		}()
	}
	var firstErr error
	for range a.sinks {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("aggregator: sink write failed: %w", firstErr)
	}
	return nil
}

// Drain finalizes every still-open entry (scan-end finalization, spec.md
// §4.11(c)) and flushes it, waiting for all in-flight sink writes to
// complete. Intended for both normal scan completion and cooperative
// cancellation (spec.md §5: "a canceled scan still drains in-flight
// results and flushes sinks").
func (a *Aggregator) Drain(ctx context.Context) error {
	a.mu.Lock()
	var pending []result.PortResult
	for _, e := range a.entries {
		if !e.finalized {
			e.finalized = true
			e.result.ObservedAt = timeNow()
			pending = append(pending, e.result)
		}
	}
	a.mu.Unlock()

	var firstErr error
	for _, r := range pending {
		if err := a.flush(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.wg.Wait()
	return firstErr
}

// Get returns the current (possibly not yet finalized) merged result for
// key, for callers (service detector, OS fingerprinter) that need to read
// state without waiting for finalization.
func (a *Aggregator) Get(key result.Key) (result.PortResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	if !ok {
		return result.PortResult{}, false
	}
	return e.result, true
}

// Snapshot returns every tracked result (finalized or not), ordered by no
// particular guarantee, for end-of-scan reporting that doesn't go through
// a streaming sink.
func (a *Aggregator) Snapshot() []result.PortResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]result.PortResult, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.result)
	}
	return out
}

var timeNowFunc = time.Now

func timeNow() time.Time { return timeNowFunc() }
