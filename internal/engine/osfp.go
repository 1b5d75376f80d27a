package engine

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/codec"
	"github.com/doublegate/ProRT-IP-sub009/internal/osfp"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
)

// RunOSFingerprint executes the osfp 16-probe sequence against target
// (spec.md §4.10) and returns the scored Result. It requires one known
// open and one known closed TCP port, matching osfp.Fingerprinter.Plan's
// precondition.
//
// Option-ordering (OPS) capture and the deep ICMP-unreachable echo
// integrity checks (osfp.Observation's Echoed* fields, used only by U1)
// are not wired in this build: Classified/Response carry TTL/DF/Window
// but not raw TCP option bytes or the embedded original datagram, so
// every Observation's Options stays empty and U1's Echoed* fields stay at
// their zero value. Response carries no TCP sequence or acknowledgement
// numbers either, so every Observation's ISN and AckNum stay zero: SEQ's
// GCD/ISR/SP values and the T-series sequence/ack attributes are computed
// from those zeros. Window, DF, TTL, IP-ID and TCP flag attributes are
// captured from each response.
func (s *Sender) RunOSFingerprint(ctx context.Context, fp *osfp.Fingerprinter, target addr.Address, openPort, closedPort uint16) (osfp.Result, error) {
	if s.tp == nil {
		return osfp.Result{}, fmt.Errorf("engine: %w", ErrRawUnavailable)
	}
	specs, err := fp.Plan(openPort, closedPort)
	if err != nil {
		return osfp.Result{}, err
	}

	obs := make(map[osfp.ProbeID]osfp.Observation, len(specs))
	for _, spec := range specs {
		if spec.Delay > 0 {
			select {
			case <-time.After(spec.Delay):
			case <-ctx.Done():
				return osfp.Result{}, ctx.Err()
			}
		}
		o, err := s.sendOSProbe(ctx, target, spec, openPort, closedPort)
		if err != nil {
			return osfp.Result{}, fmt.Errorf("engine: osfp probe %s: %w", spec.ID, err)
		}
		obs[spec.ID] = o
	}

	return fp.Fingerprint(obs), nil
}

func (s *Sender) sendOSProbe(ctx context.Context, target addr.Address, spec osfp.ProbeSpec, openPort, closedPort uint16) (osfp.Observation, error) {
	switch {
	case spec.IsTCP:
		return s.sendOSTCPProbe(ctx, target, spec, openPort, closedPort)
	case spec.IsICMP:
		return s.sendOSICMPProbe(ctx, target, spec)
	case spec.IsUDP:
		return s.sendOSUDPProbe(ctx, target, spec, closedPort)
	default:
		return osfp.Observation{ID: spec.ID}, fmt.Errorf("probe spec %s has no transport set", spec.ID)
	}
}

func (s *Sender) sendOSTCPProbe(ctx context.Context, target addr.Address, spec osfp.ProbeSpec, openPort, closedPort uint16) (osfp.Observation, error) {
	port := openPort
	if spec.Target == osfp.TargetClosedPort {
		port = closedPort
	}

	frame, err := codec.BuildTCP(codec.TCPParams{
		Src: s.cfg.LocalAddr.Unwrap(), Dst: target.Unwrap(),
		SrcPort: s.cfg.SourcePort, DstPort: port,
		Flags: codec.TCPFlags{
			SYN: spec.Flags.SYN, ACK: spec.Flags.ACK, FIN: spec.Flags.FIN,
			RST: spec.Flags.RST, PSH: spec.Flags.PSH, URG: spec.Flags.URG,
			ECE: spec.Flags.ECE, CWR: spec.Flags.CWR,
		},
		Seq: 1, Window: spec.Window,
	}, codec.BuildOptions{})
	if err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}
	wire, err := wrapEthernet(frame, s.cfg.LocalMAC, s.cfg.GatewayMAC, target.IsV6())
	if err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}

	key := waitKey{addr: target, port: port}
	ch := s.register(key)
	defer s.unregister(key)

	sentAt := time.Now()
	if err := s.tp.SendFrame(s.cfg.Interface, wire); err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}

	select {
	case resp := <-ch:
		return osfp.Observation{
			ID: spec.ID, Responded: true, SentAt: sentAt, RecvAt: time.Now(),
			TCPFlags: osfp.TCPFlags{SYN: resp.TCP.SYN, ACK: resp.TCP.ACK, FIN: resp.TCP.FIN, RST: resp.TCP.RST, PSH: resp.TCP.PSH, URG: resp.TCP.URG},
			Window:   resp.Window, DF: resp.DF, TTL: resp.TTL, IPID: resp.IPID,
		}, nil
	case <-time.After(s.cfg.probeWait()):
		return osfp.Observation{ID: spec.ID, Responded: false, SentAt: sentAt}, nil
	case <-ctx.Done():
		return osfp.Observation{}, ctx.Err()
	}
}

// sendOSICMPProbe sends IE1/IE2 via an unprivileged ICMP echo (the same
// mechanism as the Discovery strategy); reply TTL/code/DF introspection
// needs a raw ICMP decode this build doesn't wire, so only reachability
// is captured.
func (s *Sender) sendOSICMPProbe(ctx context.Context, target addr.Address, spec osfp.ProbeSpec) (osfp.Observation, error) {
	pinger, err := probing.NewPinger(target.String())
	if err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}
	defer pinger.Stop()
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = s.cfg.probeWait()

	sentAt := time.Now()
	replied := pinger.RunWithContext(ctx) == nil && pinger.Statistics().PacketsRecv > 0
	return osfp.Observation{
		ID: spec.ID, SentAt: sentAt, RecvAt: time.Now(),
		ICMPReplied: replied, ICMPCode: spec.ICMPCode,
	}, nil
}

func (s *Sender) sendOSUDPProbe(ctx context.Context, target addr.Address, spec osfp.ProbeSpec, closedPort uint16) (osfp.Observation, error) {
	port := closedPort

	frame, err := codec.BuildUDP(codec.UDPParams{
		Src: s.cfg.LocalAddr.Unwrap(), Dst: target.Unwrap(),
		SrcPort: s.cfg.SourcePort, DstPort: port,
		Payload: strategy.Payload(port),
	}, codec.BuildOptions{})
	if err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}
	wire, err := wrapEthernet(frame, s.cfg.LocalMAC, s.cfg.GatewayMAC, target.IsV6())
	if err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}

	key := waitKey{addr: target, port: port}
	ch := s.register(key)
	defer s.unregister(key)

	sentAt := time.Now()
	if err := s.tp.SendFrame(s.cfg.Interface, wire); err != nil {
		return osfp.Observation{ID: spec.ID}, err
	}

	select {
	case resp := <-ch:
		return osfp.Observation{
			ID: spec.ID, Responded: true, SentAt: sentAt, RecvAt: time.Now(),
			ICMPUnreachable: resp.Kind == strategy.RespICMPUnreachablePortClosed,
			TTL:             resp.TTL, IPID: resp.IPID,
		}, nil
	case <-time.After(s.cfg.probeWait()):
		return osfp.Observation{ID: spec.ID, Responded: false, SentAt: sentAt}, nil
	case <-ctx.Done():
		return osfp.Observation{}, ctx.Err()
	}
}
