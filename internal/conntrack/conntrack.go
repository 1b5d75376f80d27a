// Package conntrack implements the stateful connection tracker (spec.md
// §4.6): a keyed map of in-flight probes, an RFC 6298 RTT/RTO estimator, an
// AIMD congestion controller, and a retransmission scheduler adapted from
// the teacher's probing.IntervalScheduler, generalized from a fixed-interval
// route-liveness probe loop to RTO-driven, per-connection backoff.
package conntrack

import (
	"fmt"
	"sync"
	"time"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
)

// State is a ConnectionRecord's lifecycle stage (spec.md §3).
type State uint8

const (
	Pending State = iota
	Sent
	Responded
	Closed
	Timeout
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Sent:
		return "sent"
	case Responded:
		return "responded"
	case Closed:
		return "closed"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Key identifies a ConnectionRecord. A key appears in the Tracker's map at
// most once at any time (spec.md §3 invariant).
type Key struct {
	LocalPort  uint16
	RemoteAddr addr.Address
	RemotePort uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%d->%s:%d", k.LocalPort, k.RemoteAddr, k.RemotePort)
}

// Record is one tracked connection attempt.
type Record struct {
	Key       Key
	State     State
	Seq       uint32
	SentAt    time.Time
	Attempts  int
	Deadline  time.Time
	RTT       time.Duration
	Packet    []byte // most recent response payload, if Responded
}

// Tracker is a concurrency-safe map from Key to Record, paired with a
// retransmission Scheduler. Created when a probe is emitted; a Record,
// including one in a terminal state (Closed/Timeout), stays in the map
// until Remove is called for its key.
type Tracker struct {
	mu         sync.Mutex
	records    map[Key]*Record
	sched      *Scheduler
	rto        map[Key]*RTOEstimator
	cong       map[Key]*Congestion
	maxTry     int
	minTimeout time.Duration
	maxTimeout time.Duration
}

// NewTracker constructs a Tracker whose retransmission schedule is bounded
// by maxRetries attempts per connection and clamped to [minTimeout,
// maxTimeout] by the active timing template.
func NewTracker(maxRetries int, minTimeout, maxTimeout time.Duration) *Tracker {
	return &Tracker{
		records:    make(map[Key]*Record),
		sched:      NewScheduler(minTimeout, maxTimeout),
		rto:        make(map[Key]*RTOEstimator),
		cong:       make(map[Key]*Congestion),
		maxTry:     maxRetries,
		minTimeout: minTimeout,
		maxTimeout: maxTimeout,
	}
}

// Open creates a new Pending->Sent record for key with the given initial
// sequence number, arming its first retransmission deadline at the
// estimator's current RTO.
func (t *Tracker) Open(key Key, seq uint32, now time.Time) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	est := NewRTOEstimatorBounded(t.minTimeout, t.maxTimeout)
	cong := NewCongestion()
	t.rto[key] = est
	t.cong[key] = cong

	rec := &Record{
		Key:      key,
		State:    Sent,
		Seq:      seq,
		SentAt:   now,
		Attempts: 1,
		Deadline: now.Add(est.RTO()),
	}
	t.records[key] = rec
	t.sched.Add(key, rec.Deadline)
	return rec
}

// Ack transitions key to Responded, recording rtt into its RFC 6298
// estimator and advancing its AIMD congestion window on a success signal.
func (t *Tracker) Ack(key Key, rtt time.Duration, packet []byte, now time.Time) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		return nil, false
	}
	if est, ok := t.rto[key]; ok {
		est.Update(rtt)
	}
	if cong, ok := t.cong[key]; ok {
		cong.OnAck()
	}
	rec.State = Responded
	rec.RTT = rtt
	rec.Packet = packet
	t.sched.Del(key)
	return rec, true
}

// Close marks key Closed (e.g. an explicit RST) and stops its
// retransmission schedule.
func (t *Tracker) Close(key Key) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[key]
	if !ok {
		return nil, false
	}
	rec.State = Closed
	t.sched.Del(key)
	return rec, true
}

// Get returns the current record for key, if tracked.
func (t *Tracker) Get(key Key) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Remove deletes key's bookkeeping entirely, used once a PortResult has
// been finalized for it.
func (t *Tracker) Remove(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, key)
	delete(t.rto, key)
	delete(t.cong, key)
	t.sched.Del(key)
}

// Len reports the number of connections currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// DueForRetransmit pops every key whose retransmission deadline has
// elapsed, reinserting each with an incremented attempt count and a new
// RTO-derived deadline, up to maxRetries; beyond that the record is marked
// Timeout and dropped from the schedule (spec.md §3 invariant: "reinserted
// only if attempts < max_retries and deadline <= now").
func (t *Tracker) DueForRetransmit(now time.Time) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	due := t.sched.PopDue(now)
	out := make([]Record, 0, len(due))
	for _, key := range due {
		rec, ok := t.records[key]
		if !ok || rec.State != Sent {
			continue
		}
		if rec.Attempts >= t.maxTry {
			rec.State = Timeout
			if cong, ok := t.cong[key]; ok {
				cong.OnTimeout()
			}
			continue
		}
		rec.Attempts++
		est := t.rto[key]
		rec.Deadline = now.Add(est.RTO())
		if cong, ok := t.cong[key]; ok {
			cong.OnTimeout()
		}
		t.sched.Add(key, rec.Deadline)
		out = append(out, *rec)
	}
	return out
}
