// Package engine wires the codec, transport, dispatch, and stateless
// packages into a concrete orchestrator.ProbeSender: the glue that turns
// the scanning engine into a runnable tool (spec.md §6), owned by the CLI
// layer rather than any core component so the core stays transport-policy
// free (spec.md §9).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/codec"
	"github.com/doublegate/ProRT-IP-sub009/internal/conntrack"
	"github.com/doublegate/ProRT-IP-sub009/internal/dispatch"
	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/doublegate/ProRT-IP-sub009/internal/stateless"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/doublegate/ProRT-IP-sub009/internal/transport"
)

// ErrRawUnavailable surfaces transport.ErrInsufficientPrivilege at the
// engine boundary so callers can degrade to Connect/Discovery without
// importing internal/transport directly.
var ErrRawUnavailable = transport.ErrInsufficientPrivilege

// ErrZombieRequired is returned by SendProbe for strategy.KindIdle when
// Config.Zombie was left unset.
var ErrZombieRequired = errors.New("engine: idle scan requires a zombie host")

// Config configures a Sender's raw-socket path. Connect and Discovery
// scans need none of this; they use the OS TCP stack and pro-bing
// respectively and never touch the raw transport.
type Config struct {
	Interface  string
	LocalAddr  addr.Address
	LocalMAC   net.HardwareAddr
	GatewayMAC net.HardwareAddr
	SourcePort uint16
	Zombie     addr.Address // required for KindIdle
	ProbeWait  time.Duration

	// MaxRetries, MinRTO, and MaxRTO size the conntrack.Tracker that drives
	// rawProbe's retransmission loop (spec.md §4.6).
	MaxRetries int
	MinRTO     time.Duration
	MaxRTO     time.Duration

	// TTL, BadChecksum, FragmentSize8B, and MTU are the raw-frame evasion
	// knobs forwarded to codec.BuildOptions (spec.md §4.1).
	TTL            uint8
	BadChecksum    bool
	FragmentSize8B uint8
	MTU            int

	// Decoys, if non-empty, interleaves spoofed-source copies of every
	// probe with the real one (spec.md §4.7).
	Decoys []addr.Address
}

func (c Config) probeWait() time.Duration {
	if c.ProbeWait > 0 {
		return c.ProbeWait
	}
	return time.Second
}

func (c Config) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 1
}

func (c Config) minRTO() time.Duration {
	if c.MinRTO > 0 {
		return c.MinRTO
	}
	return 100 * time.Millisecond
}

func (c Config) maxRTO() time.Duration {
	if c.MaxRTO > 0 {
		return c.MaxRTO
	}
	return 60 * time.Second
}

func (c Config) buildOpts() codec.BuildOptions {
	return codec.BuildOptions{
		TTL:            c.TTL,
		BadChecksum:    c.BadChecksum,
		FragmentSize8B: c.FragmentSize8B,
		MTU:            c.MTU,
	}
}

type waitKey struct {
	addr addr.Address
	port uint16
}

// Sender implements orchestrator.ProbeSender by composing the codec,
// transport, dispatch, and stateless packages into the single
// send-a-probe/await-a-response call the Orchestrator drives through its
// ProbeSender boundary (spec.md §4.12).
type Sender struct {
	log *slog.Logger
	cfg Config

	tp   transport.Transport
	disp *dispatch.Dispatcher

	cookieKey stateless.Key
	nonce     uint32

	mu      sync.Mutex
	waiters map[waitKey]chan strategy.Response

	strategies map[strategy.Kind]strategy.Strategy

	tracker   *conntrack.Tracker
	decoy     *strategy.Decoy
	decoyRand *rand.Rand

	dialer net.Dialer
}

// NewSender opens a raw transport on cfg.Interface and wires a Dispatcher
// that feeds resolved responses back to waiting SendProbe calls. Returns
// ErrRawUnavailable (wrapped, via errors.Is) if raw capture can't be
// opened -- the caller decides whether to fall back to NewConnectOnly.
func NewSender(log *slog.Logger, cfg Config) (*Sender, error) {
	if log == nil {
		log = slog.Default()
	}
	tp, err := transport.NewTransport(log, cfg.Interface)
	if err != nil {
		return nil, err
	}
	key, err := stateless.NewKey()
	if err != nil {
		_ = tp.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	s := &Sender{
		log:       log,
		cfg:       cfg,
		tp:        tp,
		cookieKey: key,
		nonce:     uint32(time.Now().UnixNano()),
		waiters:   make(map[waitKey]chan strategy.Response),
		strategies: map[strategy.Kind]strategy.Strategy{
			strategy.KindSYN:  strategy.SYN{},
			strategy.KindACK:  strategy.ACK{},
			strategy.KindUDP:  strategy.UDP{},
			strategy.KindFIN:  strategy.NewFIN(),
			strategy.KindNULL: strategy.NewNULL(),
			strategy.KindXmas: strategy.NewXmas(),
		},
		tracker: conntrack.NewTracker(cfg.maxRetries(), cfg.minRTO(), cfg.maxRTO()),
	}
	s.disp = dispatch.New(key, s.nonce, dispatch.Handlers{
		OnStateless: s.onStateless,
		OnStateful:  s.onStateful,
	})

	if len(cfg.Decoys) > 0 {
		d, err := strategy.NewDecoy(cfg.LocalAddr, cfg.Decoys)
		if err != nil {
			_ = tp.Close()
			return nil, fmt.Errorf("engine: %w", err)
		}
		s.decoy = &d
		s.decoyRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return s, nil
}

// NewConnectOnly builds a Sender usable only for strategy.KindConnect and
// strategy.KindDiscovery, for unprivileged runs that never open a raw
// socket (spec.md §4.2: "callers fall back to the Connect strategy").
func NewConnectOnly(log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{log: log}
}

// Start runs the capture loop until ctx is canceled. It must be called
// once, after NewSender, before any raw-path SendProbe call; it is a
// no-op on a NewConnectOnly Sender.
func (s *Sender) Start(ctx context.Context, filter transport.Filter) error {
	if s.tp == nil {
		<-ctx.Done()
		return nil
	}
	return s.disp.Run(ctx, s.tp, filter)
}

// Close releases the raw transport, if any.
func (s *Sender) Close() error {
	if s.tp == nil {
		return nil
	}
	return s.tp.Close()
}

func (s *Sender) onStateless(ev dispatch.StatelessEvent) {
	if !ev.Valid {
		return
	}
	s.deliver(waitKey{addr: ev.Target, port: ev.Port}, ev.Response)
}

func (s *Sender) onStateful(ev dispatch.StatefulEvent) {
	s.deliver(waitKey{addr: ev.Key.RemoteAddr, port: ev.Key.RemotePort}, ev.Response)
}

func (s *Sender) deliver(key waitKey, resp strategy.Response) {
	s.mu.Lock()
	ch, ok := s.waiters[key]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

func (s *Sender) register(key waitKey) chan strategy.Response {
	ch := make(chan strategy.Response, 1)
	s.mu.Lock()
	s.waiters[key] = ch
	s.mu.Unlock()
	return ch
}

func (s *Sender) unregister(key waitKey) {
	s.mu.Lock()
	delete(s.waiters, key)
	s.mu.Unlock()
}

// SendProbe implements orchestrator.ProbeSender, dispatching on kind to
// the real-connect, raw-socket, discovery, or idle-scan path.
func (s *Sender) SendProbe(ctx context.Context, kind strategy.Kind, target addr.Address, port uint16) (result.PortResult, error) {
	switch kind {
	case strategy.KindConnect:
		return s.connectProbe(ctx, target, port)
	case strategy.KindDiscovery:
		return s.discoveryProbe(ctx, target)
	case strategy.KindIdle:
		return s.idleProbe(ctx, target, port)
	default:
		return s.rawProbe(ctx, kind, target, port)
	}
}

// rawProbe sends kind at target:port and drives the conntrack.Tracker's
// RFC 6298 retransmission loop until a correlated Response arrives, the
// retry budget is exhausted, or ctx is canceled (spec.md §4.6, and the
// failure-semantics table's "per-probe timeout within retry budget:
// retransmit with RTO; do not surface").
func (s *Sender) rawProbe(ctx context.Context, kind strategy.Kind, target addr.Address, port uint16) (result.PortResult, error) {
	if s.tp == nil {
		return result.PortResult{}, fmt.Errorf("engine: %w", ErrRawUnavailable)
	}
	strat, ok := s.strategies[kind]
	if !ok {
		return result.PortResult{}, fmt.Errorf("engine: unsupported scan kind %s", kind)
	}

	key := waitKey{addr: target, port: port}
	ch := s.register(key)
	defer s.unregister(key)

	trackKey := conntrack.Key{LocalPort: s.cfg.SourcePort, RemoteAddr: target, RemotePort: port}

	sent := time.Now()
	if err := s.transmit(kind, target, port); err != nil {
		return result.PortResult{}, fmt.Errorf("engine: send frame: %w", err)
	}

	rec := s.tracker.Open(trackKey, s.nonce, sent)
	defer s.tracker.Remove(trackKey)

	var resp strategy.Response
	attempts := rec.Attempts

retry:
	for {
		wait := time.Until(rec.Deadline)
		if wait < 0 {
			wait = 0
		}
		select {
		case resp = <-ch:
			s.tracker.Ack(trackKey, time.Since(sent), nil, time.Now())
			break retry

		case <-time.After(wait):
			retransmitted := false
			for _, due := range s.tracker.DueForRetransmit(time.Now()) {
				if due.Key != trackKey {
					continue
				}
				if err := s.transmit(kind, target, port); err != nil {
					return result.PortResult{}, fmt.Errorf("engine: retransmit: %w", err)
				}
				rec = &due
				attempts = due.Attempts
				retransmitted = true
			}
			if !retransmitted {
				resp = strategy.Response{Kind: strategy.RespNone, Attempts: attempts, MaxRetries: s.cfg.maxRetries()}
				break retry
			}

		case <-ctx.Done():
			return result.PortResult{}, ctx.Err()
		}
	}

	return result.PortResult{
		Address:      target.Unwrap(),
		Port:         port,
		Protocol:     strat.Protocol(),
		State:        strat.Classify(resp),
		ResponseTime: time.Since(sent),
		ObservedAt:   time.Now(),
	}, nil
}

// transmit sends one probe round for (kind, target, port): just the real
// frame(s), or, when Config.Decoys is set, the real frame interleaved at a
// random position among spoofed-source copies (spec.md §4.7) so the
// target's logs can't trivially pick the real scanner out by position.
func (s *Sender) transmit(kind strategy.Kind, target addr.Address, port uint16) error {
	if s.decoy == nil {
		frames, err := s.buildRawFrame(kind, target, port)
		if err != nil {
			return fmt.Errorf("engine: build probe: %w", err)
		}
		return s.sendFrames(frames)
	}

	idx := s.decoy.SourceIndex(s.decoyRand)
	for _, src := range s.decoy.Sources(idx) {
		frames, err := s.buildFramesFrom(src, kind, target, port)
		if err != nil {
			return fmt.Errorf("engine: build decoy probe: %w", err)
		}
		if err := s.sendFrames(frames); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) sendFrames(frames [][]byte) error {
	for _, f := range frames {
		if err := s.tp.SendFrame(s.cfg.Interface, f); err != nil {
			return err
		}
	}
	return nil
}

// buildRawFrame constructs the Ethernet-framed probe for kind from the
// configured local source address.
func (s *Sender) buildRawFrame(kind strategy.Kind, target addr.Address, port uint16) ([][]byte, error) {
	return s.buildFramesFrom(s.cfg.LocalAddr, kind, target, port)
}

// buildFramesFrom builds kind's L3 packet with src as its source address,
// then splits it into RFC 791 fragments (spec.md §4.1: "fragment size in
// 8-byte multiples, IPv4 only") when Config.FragmentSize8B is set and
// target is IPv4, wrapping each resulting piece in its own Ethernet frame
// (transport_linux.go's bound AF_PACKET socket exchanges full link-layer
// frames, not bare L3).
func (s *Sender) buildFramesFrom(src addr.Address, kind strategy.Kind, target addr.Address, port uint16) ([][]byte, error) {
	l3, err := s.buildL3From(src, kind, target, port)
	if err != nil {
		return nil, err
	}

	if s.cfg.FragmentSize8B == 0 || target.IsV6() {
		frame, err := wrapEthernet(l3, s.cfg.LocalMAC, s.cfg.GatewayMAC, target.IsV6())
		if err != nil {
			return nil, err
		}
		return [][]byte{frame}, nil
	}

	frags, err := codec.FragmentIPv4(l3, s.cfg.FragmentSize8B, uint16(s.nonce))
	if err != nil {
		return nil, fmt.Errorf("engine: fragment: %w", err)
	}
	frames := make([][]byte, 0, len(frags))
	for _, frag := range frags {
		frame, err := wrapEthernet(frag, s.cfg.LocalMAC, s.cfg.GatewayMAC, false)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// buildL3From builds kind's IP+L4 packet with src as its source address,
// keying stateless SYN probes' initial sequence number off the SipHash
// cookie so their eventual SYN/ACK can be validated without retained state
// (spec.md §4.5).
func (s *Sender) buildL3From(src addr.Address, kind strategy.Kind, target addr.Address, port uint16) ([]byte, error) {
	opts := s.cfg.buildOpts()

	switch kind {
	case strategy.KindSYN:
		cookie := stateless.Encode(s.cookieKey, target, port, s.nonce)
		return codec.BuildTCP(codec.TCPParams{
			Src: src.Unwrap(), Dst: target.Unwrap(),
			SrcPort: s.cfg.SourcePort, DstPort: port,
			Flags: codec.TCPFlags{SYN: true},
			Seq:   uint32(cookie), Window: 65535,
		}, opts)
	case strategy.KindACK:
		return codec.BuildTCP(codec.TCPParams{
			Src: src.Unwrap(), Dst: target.Unwrap(),
			SrcPort: s.cfg.SourcePort, DstPort: port,
			Flags: codec.TCPFlags{ACK: true}, Seq: 1, Window: 65535,
		}, opts)
	case strategy.KindFIN, strategy.KindNULL, strategy.KindXmas:
		var variant strategy.FINNULLXmas
		switch kind {
		case strategy.KindFIN:
			variant = strategy.NewFIN()
		case strategy.KindNULL:
			variant = strategy.NewNULL()
		default:
			variant = strategy.NewXmas()
		}
		flags := variant.Flags()
		return codec.BuildTCP(codec.TCPParams{
			Src: src.Unwrap(), Dst: target.Unwrap(),
			SrcPort: s.cfg.SourcePort, DstPort: port,
			Flags: codec.TCPFlags{FIN: flags.FIN, PSH: flags.PSH, URG: flags.URG},
			Seq:   1, Window: 65535,
		}, opts)
	case strategy.KindUDP:
		return codec.BuildUDP(codec.UDPParams{
			Src: src.Unwrap(), Dst: target.Unwrap(),
			SrcPort: s.cfg.SourcePort, DstPort: port,
			Payload: strategy.Payload(port),
		}, opts)
	default:
		return nil, fmt.Errorf("engine: %s has no raw frame builder", kind)
	}
}

// wrapEthernet prepends the 14-byte Ethernet header the bound AF_PACKET
// SOCK_RAW socket requires (transport_linux.go binds with ETH_P_ALL and
// exchanges full link-layer frames, not bare L3).
func wrapEthernet(l3 []byte, src, dst net.HardwareAddr, v6 bool) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       dst,
		EthernetType: layers.EthernetTypeIPv4,
	}
	if v6 {
		eth.EthernetType = layers.EthernetTypeIPv6
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(l3)); err != nil {
		return nil, fmt.Errorf("engine: wrap ethernet: %w", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// connectProbe classifies a port via a real OS-level TCP handshake,
// needing no raw-socket capability (spec.md §4.7 Connect).
func (s *Sender) connectProbe(ctx context.Context, target addr.Address, port uint16) (result.PortResult, error) {
	sent := time.Now()
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.probeWait())
	defer cancel()

	addrPort := net.JoinHostPort(target.String(), fmt.Sprintf("%d", port))
	conn, err := s.dialer.DialContext(dialCtx, "tcp", addrPort)

	resp := strategy.Response{Attempts: 1, MaxRetries: 1}
	switch {
	case err == nil:
		_ = conn.Close()
		resp.Kind = strategy.RespTCP
	case isConnRefused(err):
		resp.Kind = strategy.RespTCP
		resp.TCP = strategy.TCPFlagSet{RST: true}
	default:
		resp.Kind = strategy.RespNone
	}

	return result.PortResult{
		Address:      target.Unwrap(),
		Port:         port,
		Protocol:     result.TCP,
		State:        strategy.Connect{}.Classify(resp),
		ResponseTime: time.Since(sent),
		ObservedAt:   time.Now(),
	}, nil
}

func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// discoveryProbe uses pro-bing's unprivileged ICMP echo the way
// telemetry/global-monitor/internal/gm/probe_icmp.go pings a host,
// falling back to nothing else (spec.md §9: raw-socket NDP/TCP discovery
// fallbacks are left to a future iteration; see DESIGN.md).
func (s *Sender) discoveryProbe(ctx context.Context, target addr.Address) (result.PortResult, error) {
	sent := time.Now()
	pinger, err := probing.NewPinger(target.String())
	if err != nil {
		return result.PortResult{}, fmt.Errorf("engine: new pinger: %w", err)
	}
	defer pinger.Stop()
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = s.cfg.probeWait()

	state := result.Unknown
	if err := pinger.RunWithContext(ctx); err == nil && pinger.Statistics().PacketsRecv > 0 {
		state = result.Open
	}

	return result.PortResult{
		Address:      target.Unwrap(),
		Port:         0,
		Protocol:     result.ICMP,
		State:        state,
		ResponseTime: time.Since(sent),
		ObservedAt:   time.Now(),
	}, nil
}
