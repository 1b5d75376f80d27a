package codec

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// UDPParams parametrizes a single UDP datagram build (spec.md §4.1
// build_udp), over IPv4 or IPv6.
type UDPParams struct {
	Src, Dst netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Payload  []byte
}

// BuildUDP serializes a UDP datagram into a freshly-allocated byte slice.
func BuildUDP(p UDPParams, opt BuildOptions) ([]byte, error) {
	buf, err := buildUDPInto(nil, p, opt)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// BuildUDPInto is the zero-copy build path.
func BuildUDPInto(into gopacket.SerializeBuffer, p UDPParams, opt BuildOptions) ([]byte, error) {
	buf, err := buildUDPInto(into, p, opt)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildUDPInto(into gopacket.SerializeBuffer, p UDPParams, opt BuildOptions) (gopacket.SerializeBuffer, error) {
	buf := newBuffer(into)
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(p.SrcPort),
		DstPort: layers.UDPPort(p.DstPort),
	}

	switch {
	case p.Src.Is4():
		ip4 := &layers.IPv4{
			Version:  4,
			TTL:      opt.ttl(),
			Protocol: layers.IPProtocolUDP,
			SrcIP:    p.Src.AsSlice(),
			DstIP:    p.Dst.AsSlice(),
		}
		if err := udp.SetNetworkLayerForChecksum(ip4); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip4, udp, gopacket.Payload(p.Payload)); err != nil {
			return nil, fmt.Errorf("codec: serialize udp/ipv4: %w", err)
		}
	case p.Src.Is6():
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   opt.ttl(),
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      p.Src.AsSlice(),
			DstIP:      p.Dst.AsSlice(),
		}
		if err := udp.SetNetworkLayerForChecksum(ip6); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip6, udp, gopacket.Payload(p.Payload)); err != nil {
			return nil, fmt.Errorf("codec: serialize udp/ipv6: %w", err)
		}
	default:
		return nil, fmt.Errorf("codec: invalid source address family")
	}

	if err := checkMTU(len(buf.Bytes()), opt); err != nil {
		return nil, err
	}
	return buf, nil
}
