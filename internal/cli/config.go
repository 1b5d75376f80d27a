package cli

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/aggregator"
	"github.com/doublegate/ProRT-IP-sub009/internal/engine"
	"github.com/doublegate/ProRT-IP-sub009/internal/orchestrator"
	"github.com/doublegate/ProRT-IP-sub009/internal/sink"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/doublegate/ProRT-IP-sub009/internal/target"
	"github.com/doublegate/ProRT-IP-sub009/internal/transport"
)

// ErrInvalidUsage wraps configuration errors that should exit 2 (spec.md
// §6: "Exit codes: ... 2 invalid usage"), distinguishing them from the
// runtime/transport failures that exit 1.
type ErrInvalidUsage struct{ Err error }

func (e *ErrInvalidUsage) Error() string { return e.Err.Error() }
func (e *ErrInvalidUsage) Unwrap() error { return e.Err }

func invalidUsage(format string, args ...any) error {
	return &ErrInvalidUsage{Err: fmt.Errorf(format, args...)}
}

var scanKindByName = map[string]strategy.Kind{
	"syn":       strategy.KindSYN,
	"connect":   strategy.KindConnect,
	"udp":       strategy.KindUDP,
	"fin":       strategy.KindFIN,
	"null":      strategy.KindNULL,
	"xmas":      strategy.KindXmas,
	"ack":       strategy.KindACK,
	"idle":      strategy.KindIdle,
	"discovery": strategy.KindDiscovery,
}

// scanPlan bundles everything buildScan assembles from flags/args: the
// orchestrator ready to Run, the target iterator it walks, the sender it
// drives, and the bits output/resume need once Run returns.
type scanPlan struct {
	orc      *orchestrator.Engine
	iterator *target.Iterator
	sender   *engine.Sender

	filter       transport.Filter
	needsCapture bool

	targetSpec string
	portSpec   string
	scanType   string
	permKey    [16]byte
	resumeFile string
}

// buildScan validates flags/positional targets and assembles a runnable
// scanPlan, or returns *ErrInvalidUsage for a configuration problem
// (spec.md §7: "Configuration: invalid target/port/CIDR, conflicting
// options. Fatal, exit 2.").
func buildScan(ctx context.Context, f *flags, args []string, log *slog.Logger) (*scanPlan, error) {
	kind, ok := scanKindByName[f.scanType]
	if !ok {
		return nil, invalidUsage("unknown --scan-type %q (want one of syn, connect, udp, fin, null, xmas, ack, idle, discovery)", f.scanType)
	}
	if kind == strategy.KindIdle && f.zombie == "" {
		return nil, invalidUsage("--scan-type=idle requires --zombie")
	}
	if len(args) == 0 {
		return nil, invalidUsage("no targets given")
	}
	targetSpecText := strings.Join(args, ",")

	ps, err := resolvePorts(f)
	if err != nil {
		return nil, invalidUsage("%w", err)
	}

	spec, err := target.Parse(targetSpecText)
	if err != nil {
		return nil, invalidUsage("%w", err)
	}
	resolver := target.NewResolver(nil)
	exp, err := target.Resolve(ctx, spec, resolver)
	if err != nil {
		return nil, invalidUsage("target resolution: %w", err)
	}

	permKey, nextIndex, err := loadOrGenerateResume(f, targetSpecText, exp.Len())
	if err != nil {
		return nil, err
	}
	perm, err := target.NewPermutation(permKey, exp.Len())
	if err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}
	it := target.NewIterator(exp, perm)
	it.Seek(nextIndex)

	tp := templateFor(f)

	sender, filter, err := buildSender(ctx, f, kind, exp, tp)
	if err != nil {
		return nil, err
	}

	var sinks []aggregator.Sink
	if f.outputFile != "" {
		j, err := sink.NewJSONL(f.outputFile)
		if err != nil {
			return nil, invalidUsage("%w", err)
		}
		sinks = append(sinks, j)
	}
	agg := aggregator.New(sinks...)

	var onProgress func(orchestrator.Progress)
	if log != nil {
		onProgress = func(p orchestrator.Progress) {
			log.Info("scan progress",
				"phase", p.Phase.String(),
				"completed", p.CompletedProbes,
				"total", p.TotalProbes,
				"pps", p.PPS,
			)
		}
	}

	orcCfg := orchestrator.Config{
		ScanKind:          kind,
		Ports:             ps.Ports(),
		MaxRetries:        tp.Retries,
		MinRTO:            tp.MinRTO,
		MaxRTO:            tp.MaxRTO,
		MinRate:           tp.minRate(f),
		MaxRate:           tp.maxRate(f),
		MinHostgroup:      orDefault(f.minHostgroup, 1),
		MaxHostgroup:      orDefault(f.maxHostgroup, tp.MaxParallel),
		ProgressInterval:  f.progressInterval,
		RunDeepInspection: f.serviceDetection || f.osFingerprint,
	}

	orc, err := orchestrator.New(log, clockwork.NewRealClock(), orcCfg, sender, agg, onProgress)
	if err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}

	return &scanPlan{
		orc:          orc,
		iterator:     it,
		sender:       sender,
		filter:       filter,
		needsCapture: kind != strategy.KindConnect && kind != strategy.KindDiscovery,
		targetSpec:   targetSpecText,
		portSpec:     ps.String(),
		scanType:     f.scanType,
		permKey:      permKey,
		resumeFile:   f.resumeFile,
	}, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// resolvePorts selects the base port set from --top-ports when it is set
// (ignoring --ports), otherwise from --ports, then removes --exclude-ports
// from it (spec.md §6).
func resolvePorts(f *flags) (addr.PortSpec, error) {
	var ps addr.PortSpec
	var err error
	switch {
	case f.topPorts > 0:
		ps, err = addr.Parse(joinPorts(topPorts(f.topPorts)))
	case f.ports == "-":
		ps = addr.AllPorts()
	default:
		ps, err = addr.Parse(f.ports)
	}
	if err != nil {
		return addr.PortSpec{}, err
	}

	if f.excludePorts != "" {
		excl, err := addr.Parse(f.excludePorts)
		if err != nil {
			return addr.PortSpec{}, fmt.Errorf("--exclude-ports: %w", err)
		}
		ps = ps.Exclude(excl)
	}
	if ps.Len() == 0 {
		return addr.PortSpec{}, fmt.Errorf("port selection is empty")
	}
	return ps, nil
}

func joinPorts(ports []uint16) string {
	var b strings.Builder
	for i, p := range ports {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", p)
	}
	return b.String()
}

// templateResolved is the timing template merged with any explicit
// per-flag overrides (spec.md §6: "Timing templates T0..T5 and individual
// overrides").
type templateResolved struct {
	TemplateParams
}

func (t templateResolved) maxRate(f *flags) float64 {
	if f.maxRate > 0 {
		return f.maxRate
	}
	return float64(t.MaxParallel)
}

func (t templateResolved) minRate(f *flags) float64 {
	if f.minRate > 0 {
		return f.minRate
	}
	return 1
}

func templateFor(f *flags) templateResolved {
	tmpl, ok := ParseTemplate(f.timing)
	if !ok {
		tmpl = DefaultTemplate
	}
	p := tmpl.Params()
	if f.minRTO > 0 {
		p.MinRTO = f.minRTO
	}
	if f.maxRTO > 0 {
		p.MaxRTO = f.maxRTO
	}
	if f.initialRTO > 0 {
		p.InitialRTO = f.initialRTO
	}
	if f.maxRetries > 0 {
		p.Retries = f.maxRetries
	}
	if f.scanDelay > 0 {
		p.ScanDelay = f.scanDelay
	}
	if f.maxParallelism > 0 {
		p.MaxParallel = f.maxParallelism
	}
	return templateResolved{p}
}

// buildSender resolves the outbound interface/gateway and constructs the
// engine.Sender appropriate for kind: Connect and Discovery need no raw
// capability, every other kind needs AF_PACKET access (spec.md §4.2).
func buildSender(ctx context.Context, f *flags, kind strategy.Kind, exp target.Expansion, tp templateResolved) (*engine.Sender, transport.Filter, error) {
	if kind == strategy.KindConnect || kind == strategy.KindDiscovery {
		return engine.NewConnectOnly(nil), transport.Filter{}, nil
	}

	firstAddr, err := exp.At(0)
	if err != nil {
		return nil, transport.Filter{}, fmt.Errorf("cli: %w", err)
	}

	var gw transport.GatewayInfo
	ifaceName := f.ifaceName
	if ifaceName == "" {
		gw, err = transport.NewRouteResolver().Resolve(ctx, net.IP(firstAddr.Unwrap().AsSlice()))
		if err != nil {
			return nil, transport.Filter{}, fmt.Errorf("cli: route discovery: %w", err)
		}
		ifaceName = gw.Interface
	}

	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, transport.Filter{}, fmt.Errorf("cli: interface %q: %w", ifaceName, err)
	}

	localAddr := addr.Address{}
	if f.sourceAddr != "" {
		localAddr, err = addr.ParseAddress(f.sourceAddr)
		if err != nil {
			return nil, transport.Filter{}, invalidUsage("--source-addr: %w", err)
		}
	} else if gw.LocalIP != nil {
		localAddr, err = addr.ParseAddress(gw.LocalIP.String())
		if err != nil {
			return nil, transport.Filter{}, fmt.Errorf("cli: local address %s: %w", gw.LocalIP, err)
		}
	}

	var zombie addr.Address
	if f.zombie != "" {
		zombie, err = addr.ParseAddress(f.zombie)
		if err != nil {
			return nil, transport.Filter{}, invalidUsage("--zombie: %w", err)
		}
	}

	decoys, err := parseDecoys(f.decoys)
	if err != nil {
		return nil, transport.Filter{}, err
	}

	fragSize, err := fragmentSize8B(f)
	if err != nil {
		return nil, transport.Filter{}, err
	}

	cfg := engine.Config{
		Interface:      ifaceName,
		LocalAddr:      localAddr,
		LocalMAC:       iface.HardwareAddr,
		GatewayMAC:     gw.GatewayMAC,
		SourcePort:     f.sourcePort,
		Zombie:         zombie,
		MaxRetries:     tp.Retries,
		MinRTO:         tp.MinRTO,
		MaxRTO:         tp.MaxRTO,
		TTL:            uint8(f.ttl),
		BadChecksum:    f.badChecksum,
		FragmentSize8B: fragSize,
		Decoys:         decoys,
	}
	sender, err := engine.NewSender(nil, cfg)
	if err != nil {
		return nil, transport.Filter{}, err
	}

	filter := transport.Filter{
		LocalIP: gw.LocalIP,
		TCP:     kind != strategy.KindUDP,
		UDP:     kind == strategy.KindUDP,
		ICMP:    true,
		ICMPv6:  true,
	}
	if localAddr.IsV6() {
		filter.LocalIP = net.IP(localAddr.Bytes())
	}
	return sender, filter, nil
}

// defaultFragmentSize8B mirrors nmap -f's default tiny fragment size when
// --fragment is requested without an explicit --mtu override.
const defaultFragmentSize8B = 1

// fragmentSize8B resolves --fragment/--mtu into the codec's 8-byte-unit
// fragment size, or 0 to disable fragmentation (spec.md §4.1).
func fragmentSize8B(f *flags) (uint8, error) {
	switch {
	case f.mtu > 0:
		if f.mtu > 255 {
			return 0, invalidUsage("--mtu: fragment size %d exceeds the 8-byte-multiple field's range", f.mtu)
		}
		return uint8(f.mtu), nil
	case f.fragment:
		return defaultFragmentSize8B, nil
	default:
		return 0, nil
	}
}

// parseDecoys splits --decoy's comma-separated address list into the
// spoofed sources engine.Sender interleaves with the real probe (spec.md
// §4.7).
func parseDecoys(s string) ([]addr.Address, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]addr.Address, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		a, err := addr.ParseAddress(p)
		if err != nil {
			return nil, invalidUsage("--decoy: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// loadOrGenerateResume reads --resume's JSON file if present (validating
// it against the current target spec text and re-expanded address count)
// or mints a fresh permutation key, per target.ResumeState's documented
// schema.
func loadOrGenerateResume(f *flags, targetSpec string, expLen uint64) (key [16]byte, next uint64, err error) {
	if f.resumeFile == "" {
		_, err = rand.Read(key[:])
		return key, 0, err
	}
	data, readErr := os.ReadFile(f.resumeFile)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			if _, err := rand.Read(key[:]); err != nil {
				return key, 0, err
			}
			return key, 0, nil
		}
		return key, 0, fmt.Errorf("cli: reading resume file: %w", readErr)
	}
	var rs target.ResumeState
	if err := json.Unmarshal(data, &rs); err != nil {
		return key, 0, invalidUsage("resume file %s: %w", f.resumeFile, err)
	}
	if rs.TargetSpec != targetSpec {
		return key, 0, invalidUsage("resume file %s was captured for a different target spec", f.resumeFile)
	}
	if err := rs.Validate(expLen); err != nil {
		return key, 0, invalidUsage("resume file %s: %w", f.resumeFile, err)
	}
	return rs.PermKey, rs.NextIndex, nil
}

// saveResume persists plan's current iterator position to its resume
// file, if one was configured.
func (p *scanPlan) saveResume() error {
	if p.resumeFile == "" {
		return nil
	}
	rs := target.Snapshot(p.iterator, p.targetSpec, p.portSpec, p.scanType, p.permKey)
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.resumeFile, data, 0o644)
}
