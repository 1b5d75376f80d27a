package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// flags holds every CLI flag value (spec.md §6 CLI surface), assembled
// into orchestrator/engine configuration by buildScan. Kept as one struct
// (rather than package-level vars, as the teacher's collector main.go
// does) since cli is a library package other callers construct rather
// than a main package that owns its flags for the process lifetime.
type flags struct {
	scanType     string
	zombie       string
	ifaceName    string
	sourceAddr   string
	sourcePort   uint16
	resumeFile   string
	outputFormat string
	outputFile   string
	metricsAddr  string
	verbose      bool

	ports         string
	topPorts      int
	excludePorts  string

	timing           string
	minRTO           time.Duration
	maxRTO           time.Duration
	initialRTO       time.Duration
	maxRetries       int
	scanDelay        time.Duration
	minRate          float64
	maxRate          float64
	minParallelism   int
	maxParallelism   int
	minHostgroup     int
	maxHostgroup     int
	progressInterval time.Duration

	serviceDetection bool
	intensity        int
	osFingerprint    bool
	tls              bool

	fragment    bool
	mtu         int
	ttl         int
	decoys      string
	badChecksum bool
}

// registerFlags wires every spec.md §6 flag onto cmd, following the
// teacher's StringVar/IntVar/DurationVar/BoolVar init()-block convention
// (controlplane/internet-latency-collector/cmd/collector/main.go).
func registerFlags(cmd *cobra.Command, f *flags) {
	fl := cmd.Flags()

	fl.StringVarP(&f.scanType, "scan-type", "s", "", "Scan type: one of syn, connect, udp, fin, null, xmas, ack, idle, discovery (required)")
	fl.StringVar(&f.zombie, "zombie", "", "Zombie host address for idle scan (required when --scan-type=idle)")
	fl.StringVar(&f.ifaceName, "interface", "", "Network interface to send/receive raw frames on (auto-detected from the route table if omitted)")
	fl.StringVar(&f.sourceAddr, "source-addr", "", "Spoofed source address override (evasion)")
	fl.Uint16Var(&f.sourcePort, "source-port", 0, "Fixed source port (0 selects one automatically)")
	fl.StringVar(&f.resumeFile, "resume", "", "Resume-state JSON file to seek a stateless scan's target iterator from")
	fl.StringVar(&f.outputFormat, "output", "text", "Output format: text or json")
	fl.StringVar(&f.outputFile, "output-file", "", "Also write finalized results to this file as zstd-compressed JSONL")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus metrics server address (accepted but unused: no metrics server is started)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug-level logging")

	fl.StringVarP(&f.ports, "ports", "p", "1-1000", "Port spec: comma-separated ports/ranges, or '-' for 1-65535")
	fl.IntVar(&f.topPorts, "top-ports", 0, "Scan the first N ports from the compiled frequency table instead of --ports")
	fl.StringVar(&f.excludePorts, "exclude-ports", "", "Port spec of ports to exclude from the scan")

	fl.StringVarP(&f.timing, "timing", "T", "3", "Timing template 0 (paranoid) through 5 (insane)")
	fl.DurationVar(&f.minRTO, "min-rtt", 0, "Override the timing template's minimum RTO")
	fl.DurationVar(&f.maxRTO, "max-rtt", 0, "Override the timing template's maximum RTO")
	fl.DurationVar(&f.initialRTO, "initial-rtt", 0, "Override the timing template's initial RTO")
	fl.IntVar(&f.maxRetries, "max-retries", 0, "Override the timing template's retry budget")
	fl.DurationVar(&f.scanDelay, "scan-delay", 0, "Override the timing template's inter-probe delay")
	fl.Float64Var(&f.minRate, "min-rate", 0, "Override the timing template's minimum send rate (packets/sec)")
	fl.Float64Var(&f.maxRate, "max-rate", 0, "Override the timing template's maximum send rate (packets/sec)")
	fl.IntVar(&f.minParallelism, "min-parallelism", 0, "Minimum parallelism (accepted but unused by the scan)")
	fl.IntVar(&f.maxParallelism, "max-parallelism", 0, "Override the timing template's maximum parallelism")
	fl.IntVar(&f.minHostgroup, "min-hostgroup", 1, "Minimum concurrent target hostgroup size")
	fl.IntVar(&f.maxHostgroup, "max-hostgroup", 0, "Override the timing template's maximum hostgroup size")
	fl.DurationVar(&f.progressInterval, "progress-interval", 2*time.Second, "Interval between progress reports (0 disables)")

	fl.BoolVar(&f.serviceDetection, "service-detection", false, "Enable the Deep Inspection stage, which re-probes the configured ports on hosts with an open port (no service/version matching is run)")
	fl.IntVar(&f.intensity, "intensity", 7, "Service detection intensity 0-9 (accepted but unused by the scan)")
	fl.BoolVar(&f.osFingerprint, "os-fingerprint", false, "Enable the Deep Inspection stage, as --service-detection does (no OS fingerprint probes are sent)")
	fl.BoolVar(&f.tls, "tls", false, "TLS certificate probing during service detection (accepted but unused by the scan)")

	fl.BoolVar(&f.fragment, "fragment", false, "Fragment outgoing packets (evasion)")
	fl.IntVar(&f.mtu, "mtu", 0, "Override the outgoing fragment MTU in 8-byte multiples (implies --fragment)")
	fl.IntVar(&f.ttl, "ttl", 0, "Override the outgoing IP TTL/hop limit (0 uses the platform default)")
	fl.StringVar(&f.decoys, "decoy", "", "Comma-separated decoy source addresses to interleave with the real probe")
	fl.BoolVar(&f.badChecksum, "bad-checksum", false, "Send deliberately invalid checksums (evasion)")
}
