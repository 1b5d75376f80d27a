package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/codec"
	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
)

// zombieProbePort is the fixed, likely-closed TCP port probed on the
// zombie host to read its current IP ID off the RST it answers with
// (spec.md §4.7 Idle: "a zombie IP ID baseline id0 is sampled").
const zombieProbePort = 1

// idleProbe implements the idle (zombie) scan: sample the zombie's IP ID,
// send a spoofed SYN from the zombie's address to target, re-sample, and
// classify the delta (spec.md §4.7). The zombie's own reply to the
// baseline probes -- not the spoofed segment -- is what's awaited; the
// scanner never hears back from target directly, which is the point.
func (s *Sender) idleProbe(ctx context.Context, target addr.Address, port uint16) (result.PortResult, error) {
	if s.tp == nil {
		return result.PortResult{}, fmt.Errorf("engine: %w", ErrRawUnavailable)
	}
	if !s.cfg.Zombie.IsValid() {
		return result.PortResult{}, ErrZombieRequired
	}

	id0, err := s.sampleZombieIPID(ctx)
	if err != nil {
		return result.PortResult{}, fmt.Errorf("engine: baseline zombie sample: %w", err)
	}

	if err := s.sendSpoofedSYN(target, port); err != nil {
		return result.PortResult{}, fmt.Errorf("engine: spoofed probe: %w", err)
	}

	select {
	case <-time.After(s.cfg.probeWait() / 4):
	case <-ctx.Done():
		return result.PortResult{}, ctx.Err()
	}

	id1, err := s.sampleZombieIPID(ctx)
	if err != nil {
		return result.PortResult{}, fmt.Errorf("engine: post-probe zombie sample: %w", err)
	}

	delta := id1 - id0
	outcome := strategy.ClassifyDelta(delta)

	return result.PortResult{
		Address:    target.Unwrap(),
		Port:       port,
		Protocol:   result.TCP,
		State:      strategy.Idle{}.Classify(outcome),
		ObservedAt: time.Now(),
	}, nil
}

// sampleZombieIPID elicits an RST from the zombie (an unsolicited ACK to
// a closed port) and reads the IP ID off the reply.
func (s *Sender) sampleZombieIPID(ctx context.Context) (uint16, error) {
	frame, err := codec.BuildTCP(codec.TCPParams{
		Src: s.cfg.LocalAddr.Unwrap(), Dst: s.cfg.Zombie.Unwrap(),
		SrcPort: s.cfg.SourcePort, DstPort: zombieProbePort,
		Flags: codec.TCPFlags{ACK: true}, Seq: 1, Window: 65535,
	}, codec.BuildOptions{})
	if err != nil {
		return 0, err
	}
	wire, err := wrapEthernet(frame, s.cfg.LocalMAC, s.cfg.GatewayMAC, s.cfg.Zombie.IsV6())
	if err != nil {
		return 0, err
	}

	key := waitKey{addr: s.cfg.Zombie, port: zombieProbePort}
	ch := s.register(key)
	defer s.unregister(key)

	if err := s.tp.SendFrame(s.cfg.Interface, wire); err != nil {
		return 0, err
	}

	select {
	case resp := <-ch:
		return resp.IPID, nil
	case <-time.After(s.cfg.probeWait()):
		return 0, fmt.Errorf("engine: zombie %s did not respond", s.cfg.Zombie)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// sendSpoofedSYN sends a SYN to target with the zombie's address as
// source, so any reply target sends lands on the zombie rather than the
// scanner (spec.md §4.7).
func (s *Sender) sendSpoofedSYN(target addr.Address, port uint16) error {
	frame, err := codec.BuildTCP(codec.TCPParams{
		Src: s.cfg.Zombie.Unwrap(), Dst: target.Unwrap(),
		SrcPort: s.cfg.SourcePort, DstPort: port,
		Flags: codec.TCPFlags{SYN: true}, Seq: 1, Window: 65535,
	}, codec.BuildOptions{})
	if err != nil {
		return err
	}
	wire, err := wrapEthernet(frame, s.cfg.LocalMAC, s.cfg.GatewayMAC, target.IsV6())
	if err != nil {
		return err
	}
	return s.tp.SendFrame(s.cfg.Interface, wire)
}
