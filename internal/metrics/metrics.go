// Package metrics registers the engine's Prometheus instrumentation,
// grouped and labeled the way telemetry/global-monitor/internal/metrics
// derives labels (here: scan_type, phase, protocol) rather than per-package
// ad hoc counters. No other package in the module updates these
// collectors, and nothing serves them over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesSentTotal counts probes transmitted, labeled by scan type and
	// phase. Progress reporting counts probes separately and does not
	// read it.
	ProbesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prort_probes_sent_total",
		Help: "Total number of probes sent",
	}, []string{"scan_type", "phase"})

	// PortStatesTotal counts finalized PortResult classifications, labeled
	// by the resulting state (spec.md §3 PortState).
	PortStatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prort_port_states_total",
		Help: "Total number of finalized port results by state",
	}, []string{"state", "protocol"})

	// RetriesTotal counts retransmissions issued by the stateful
	// connection tracker (spec.md §4.6).
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prort_retries_total",
		Help: "Total number of probe retransmissions",
	})

	// AdminProhibitedTotal counts per-target ICMP admin-prohibited
	// suspensions (spec.md §4.12 failure table).
	AdminProhibitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prort_admin_prohibited_total",
		Help: "Total number of ICMP admin-prohibited backoffs applied",
	})

	// RTTSeconds observes measured round-trip times feeding the RFC 6298
	// estimator (spec.md §4.6).
	RTTSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prort_rtt_seconds",
		Help:    "Observed probe round-trip time",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
	})

	// PacketsPerSecond reports the rate governor's current converged
	// send rate (spec.md §4.4).
	PacketsPerSecond = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prort_packets_per_second",
		Help: "Current adaptive rate governor target packets/sec",
	})

	// HostgroupInUse reports the rate governor's current concurrent
	// target count.
	HostgroupInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prort_hostgroup_in_use",
		Help: "Current number of concurrently probed hosts",
	})

	// SinkWriteErrorsTotal counts sink write failures before a terminal
	// abort (spec.md §4.12 "Sink write error: retryable with bounded
	// backoff").
	SinkWriteErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prort_sink_write_errors_total",
		Help: "Total number of sink write errors, including retried ones",
	}, []string{"sink"})

	// MalformedFramesTotal counts frames the dispatcher could not
	// classify (spec.md §4.8).
	MalformedFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prort_malformed_frames_total",
		Help: "Total number of received frames that failed to classify",
	})
)
