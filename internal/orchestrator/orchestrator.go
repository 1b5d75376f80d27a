// Package orchestrator implements the Orchestrator (spec.md §4.12): the
// phase scheduler that drives Discovery, Enumeration, and Deep Inspection
// over a target set, owns cooperative cancellation and progress reporting,
// and applies the failure-semantics table (admin-prohibited ICMP backoff,
// rate-governor pressure, fatal vs. budgeted vs. semantic failures).
//
// The run loop's lifecycle (atomic running flag, a context-scoped
// goroutine, wg-guarded Stop) is adapted from the teacher's
// probing.probingWorker (client/doublezerod/internal/probing/worker.go),
// generalized from a single fixed-interval route-liveness loop to a
// multi-phase worker pool pulling from a target.Iterator.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/aggregator"
	"github.com/doublegate/ProRT-IP-sub009/internal/rategov"
	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/doublegate/ProRT-IP-sub009/internal/target"
)

// Phase identifies one stage of the scan (spec.md §4.12: "Discovery,
// Enumeration, Deep Inspection").
type Phase uint8

const (
	PhaseDiscovery Phase = iota
	PhaseEnumeration
	PhaseDeepInspection
)

func (p Phase) String() string {
	switch p {
	case PhaseDiscovery:
		return "discovery"
	case PhaseEnumeration:
		return "enumeration"
	case PhaseDeepInspection:
		return "deep-inspection"
	default:
		return "unknown"
	}
}

// Predicate reports whether a host qualifies to run in a phase, evaluated
// against the aggregator's current view of that host (spec.md §4.12: "Deep
// Inspection only runs on hosts with >=1 Open port").
type Predicate func(HostSummary) bool

// AnyHost admits every host unconditionally (Discovery, Enumeration).
func AnyHost(HostSummary) bool { return true }

// HasOpenPort admits only hosts with at least one Open port (Deep
// Inspection's precondition).
func HasOpenPort(h HostSummary) bool { return h.OpenPorts > 0 }

// HostSummary is the per-host view an orchestrator phase consults to
// decide whether to run.
type HostSummary struct {
	Address   addr.Address
	OpenPorts int
}

// stage pairs a Phase with the predicate that gates it and the ports it
// probes.
type stage struct {
	phase     Phase
	predicate Predicate
	ports     []uint16
}

// ProbeSender sends one probe for (target, port) under kind and reports
// its outcome as a result.PortResult. Packet construction and protocol
// mechanics belong to strategy/codec/transport/dispatch (spec.md §4.1,
// §4.2, §4.7, §4.8); the orchestrator only needs a send/observe boundary
// so it can own scheduling, concurrency, and failure handling without
// depending on wire-format detail.
type ProbeSender interface {
	SendProbe(ctx context.Context, kind strategy.Kind, target addr.Address, port uint16) (result.PortResult, error)
}

// FailureClass labels a probe-send error for the failure-semantics table
// (spec.md §4.12).
type FailureClass uint8

const (
	FailureNone FailureClass = iota
	FailureFatal
	FailureAdminProhibited
	FailureBufferPressure
	FailureBudgeted
)

// Classifier maps a ProbeSender error to the handling spec.md §4.12
// prescribes. The default classifier (DefaultClassify) recognizes
// ErrRawSocketPermission, ErrAdminProhibited, and ErrSendBufferFull;
// callers wiring a real transport supply sentinel errors matching those.
type Classifier func(error) FailureClass

var (
	// ErrRawSocketPermission marks a raw-socket privilege failure, fatal
	// for raw strategies (spec.md §4.12).
	ErrRawSocketPermission = errors.New("orchestrator: raw socket permission denied")
	// ErrAdminProhibited marks an ICMP type 3 code 13 (or v6 equivalent)
	// response, triggering per-target exponential backoff.
	ErrAdminProhibited = errors.New("orchestrator: icmp admin-prohibited")
	// ErrSendBufferFull marks a kernel send-buffer-full condition, which
	// applies pressure to the rate governor rather than spinning.
	ErrSendBufferFull = errors.New("orchestrator: kernel send buffer full")
)

// DefaultClassify implements spec.md §4.12's failure table for the three
// sentinel errors above; any other error is treated as fatal.
func DefaultClassify(err error) FailureClass {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrRawSocketPermission):
		return FailureFatal
	case errors.Is(err, ErrAdminProhibited):
		return FailureAdminProhibited
	case errors.Is(err, ErrSendBufferFull):
		return FailureBufferPressure
	default:
		return FailureFatal
	}
}

// Config bundles the timing-template-derived parameters and scan
// definition an Engine runs with (spec.md §6 timing templates T0-T5).
type Config struct {
	ScanKind                   strategy.Kind
	Ports                      []uint16
	MaxRetries                 int
	MinRTO, MaxRTO             time.Duration
	MinRate, MaxRate           float64
	MinHostgroup, MaxHostgroup int
	ProgressInterval           time.Duration
	RunDeepInspection          bool
}

// Progress is emitted periodically during Run (spec.md §4.12: "Progress
// reports (completed_probes / total_probes, pps, ETA)").
type Progress struct {
	Phase           Phase
	CompletedProbes uint64
	TotalProbes     uint64
	PPS             float64
	ETA             time.Duration
}

// Summary is Run's terminal result.
type Summary struct {
	ScanID   string
	Results  []result.PortResult
	Canceled bool
}

// Engine ties the rate governor, probe sender, aggregator, and
// admin-prohibited backoff table together to execute a multi-phase scan.
type Engine struct {
	log   *slog.Logger
	clock clockwork.Clock
	cfg   Config

	sender     ProbeSender
	classify   Classifier
	hostGroup  *rategov.HostGroup
	limiter    *rategov.AdaptiveLimiter
	aggregator *aggregator.Aggregator

	onProgress func(Progress)

	mu        sync.Mutex
	backoffs  map[string]*backoff.ExponentialBackOff
	suspended map[string]time.Time

	running atomic.Bool
}

// New constructs an Engine. onProgress may be nil to disable progress
// reporting.
func New(log *slog.Logger, clock clockwork.Clock, cfg Config, sender ProbeSender, agg *aggregator.Aggregator, onProgress func(Progress)) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	hg, err := rategov.NewHostGroup(cfg.MinHostgroup, cfg.MaxHostgroup)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	limiter := rategov.NewAdaptiveLimiter(cfg.MinRate, time.Second, clock)

	return &Engine{
		log:        log,
		clock:      clock,
		cfg:        cfg,
		sender:     sender,
		classify:   DefaultClassify,
		hostGroup:  hg,
		limiter:    limiter,
		aggregator: agg,
		onProgress: onProgress,
		backoffs:   make(map[string]*backoff.ExponentialBackOff),
		suspended:  make(map[string]time.Time),
	}, nil
}

// SetClassifier overrides the default failure classifier, e.g. to
// recognize transport-specific sentinel errors.
func (e *Engine) SetClassifier(c Classifier) {
	if c != nil {
		e.classify = c
	}
}

// Run drives the phase scheduler over it, probing cfg.Ports on every
// admitted host within each phase in turn, and returns once every phase
// has completed, ctx is canceled, or a fatal failure occurs (spec.md
// §4.12). A canceled run still drains the aggregator before returning
// (spec.md §5: "a canceled scan still drains in-flight results and
// flushes sinks").
func (e *Engine) Run(ctx context.Context, it *target.Iterator) (Summary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Summary{}, fmt.Errorf("orchestrator: engine already running")
	}
	defer e.running.Store(false)

	scanID := xid.New().String()
	e.log.Info("scan started", "scan_id", scanID, "scan_type", e.cfg.ScanKind.String())

	stages := e.stages()
	var total uint64
	for range stages {
		total += it.Remaining() * uint64(len(e.cfg.Ports))
	}

	var completed atomic.Uint64
	progressDone := make(chan struct{})
	if e.onProgress != nil && e.cfg.ProgressInterval > 0 {
		go e.reportProgress(ctx, &completed, total, progressDone)
	} else {
		close(progressDone)
	}

	var fatalErr error
	canceled := false

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			canceled = true
			break
		}
		it.Seek(0) // each phase re-walks the admitted host set in permuted order
		if err := e.runStage(ctx, it, st, &completed); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				canceled = true
				break
			}
			fatalErr = err
			break
		}
	}

	<-progressDone
	drainErr := e.aggregator.Drain(context.Background())

	summary := Summary{ScanID: scanID, Results: e.aggregator.Snapshot(), Canceled: canceled}
	if fatalErr != nil {
		return summary, fatalErr
	}
	if drainErr != nil {
		return summary, fmt.Errorf("orchestrator: drain: %w", drainErr)
	}
	return summary, nil
}

// stages builds the ordered phase list for cfg, including Deep Inspection
// only when requested (spec.md §4.12 gates it on service/OS detection
// being enabled, reflected upstream in cfg.RunDeepInspection).
func (e *Engine) stages() []stage {
	stages := []stage{
		{phase: PhaseDiscovery, predicate: AnyHost, ports: e.cfg.Ports},
		{phase: PhaseEnumeration, predicate: AnyHost, ports: e.cfg.Ports},
	}
	if e.cfg.RunDeepInspection {
		stages = append(stages, stage{phase: PhaseDeepInspection, predicate: HasOpenPort, ports: e.cfg.Ports})
	}
	return stages
}

// runStage probes every (host, port) pair admitted by st.predicate,
// respecting the hostgroup's concurrency bound and the rate governor's
// pacing, and checking ctx at every suspension point (spec.md §5).
func (e *Engine) runStage(ctx context.Context, it *target.Iterator, st stage, completed *atomic.Uint64) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	reportErr := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	for {
		a, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("orchestrator: target iteration: %w", err)
		}
		if !ok {
			break
		}
		if !st.predicate(e.hostSummary(a)) {
			continue
		}
		if e.isSuspended(a) {
			continue
		}

		release, ok := e.hostGroup.Acquire(ctx)
		if !ok {
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(target addr.Address) {
			defer wg.Done()
			defer release()
			if err := e.probeHost(ctx, target, st); err != nil {
				reportErr(err)
				return
			}
			completed.Add(uint64(len(st.ports)))
		}(a)

		select {
		case err := <-errCh:
			wg.Wait()
			return err
		default:
		}
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

// probeHost sends every configured port probe for one host, pacing each
// send through the rate governor and routing the outcome to the
// aggregator, applying the failure-semantics table to any send error.
func (e *Engine) probeHost(ctx context.Context, a addr.Address, st stage) error {
	for _, port := range st.ports {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		r, sendErr := e.sender.SendProbe(ctx, e.cfg.ScanKind, a, port)
		e.limiter.Record(1)

		if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
			return sendErr
		}

		switch e.classify(sendErr) {
		case FailureFatal:
			return fmt.Errorf("orchestrator: fatal send error for %s:%d: %w", a, port, sendErr)
		case FailureAdminProhibited:
			e.suspend(a)
			return nil
		case FailureBufferPressure:
			e.applyBackpressure()
			continue
		case FailureBudgeted:
			continue // absorbed by the stateful tracker's retry budget; not surfaced here
		}

		// SendProbe now drives its own retransmission budget internally
		// (internal/conntrack.Tracker) and returns only once a decisive
		// response arrives or that budget is exhausted, so every call here
		// is already final -- attemptsUsed == maxRetries unconditionally
		// finalizes it on the first Observe rather than waiting for more
		// calls that will never come.
		if err := e.aggregator.Observe(ctx, r, e.cfg.MaxRetries, e.cfg.MaxRetries); err != nil {
			return fmt.Errorf("orchestrator: %w", err)
		}
	}
	return nil
}

// applyBackpressure halves the rate governor's target rate (floored at
// MinRate) and the hostgroup's concurrent-target capacity (floored at its
// configured minimum) rather than spinning on a full kernel send buffer
// (spec.md §4.12: "apply pressure to rate governor; never spin").
func (e *Engine) applyBackpressure() {
	next := e.limiter.TargetRate() / 2
	if next < e.cfg.MinRate {
		next = e.cfg.MinRate
	}
	e.limiter.SetTargetRate(next)
	e.hostGroup.Resize(e.hostGroup.Capacity() / 2)
}

// suspend arms (or advances) a's admin-prohibited backoff per spec.md
// §4.12's 1,2,4,8,16s table, implemented via backoff.ExponentialBackOff
// with a 2x multiplier and no randomization, matching the table exactly.
func (e *Engine) suspend(a addr.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := a.String()
	b, ok := e.backoffs[key]
	if !ok {
		b = backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxInterval = 16 * time.Second
		b.MaxElapsedTime = 0
		b.Reset() // restart from the 1s InitialInterval set above
		e.backoffs[key] = b
	}
	delay := b.NextBackOff()
	if delay == backoff.Stop {
		delay = 16 * time.Second
	}
	e.suspended[key] = e.clock.Now().Add(delay)
}

// isSuspended reports whether a is still within its admin-prohibited
// backoff window.
func (e *Engine) isSuspended(a addr.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	until, ok := e.suspended[a.String()]
	if !ok {
		return false
	}
	if e.clock.Now().After(until) {
		delete(e.suspended, a.String())
		return false
	}
	return true
}

// hostSummary reads the aggregator's current view of a's ports to
// evaluate a phase predicate against.
func (e *Engine) hostSummary(a addr.Address) HostSummary {
	h := HostSummary{Address: a}
	for _, port := range e.cfg.Ports {
		r, ok := e.aggregator.Get(result.Key{Address: a.Unwrap(), Port: port, Protocol: protocolFor(e.cfg.ScanKind)})
		if ok && r.State == result.Open {
			h.OpenPorts++
		}
	}
	return h
}

func protocolFor(k strategy.Kind) result.Protocol {
	if k == strategy.KindUDP {
		return result.UDP
	}
	return result.TCP
}

// reportProgress emits Progress on cfg.ProgressInterval until ctx is done,
// closing done on exit.
func (e *Engine) reportProgress(ctx context.Context, completed *atomic.Uint64, total uint64, done chan<- struct{}) {
	defer close(done)
	ticker := e.clock.NewTicker(e.cfg.ProgressInterval)
	defer ticker.Stop()

	start := e.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c := completed.Load()
			elapsed := e.clock.Now().Sub(start).Seconds()
			pps := 0.0
			if elapsed > 0 {
				pps = float64(c) / elapsed
			}
			var eta time.Duration
			if pps > 0 && total > c {
				eta = time.Duration(float64(total-c)/pps) * time.Second
			}
			e.onProgress(Progress{CompletedProbes: c, TotalProbes: total, PPS: pps, ETA: eta})
			if c >= total {
				return
			}
		}
	}
}
