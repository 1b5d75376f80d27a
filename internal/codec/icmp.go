package codec

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ICMPv4EchoParams builds an ICMPv4 echo request/reply (spec.md §4.1
// build_icmp*, and the Discovery strategy's ICMP echo).
type ICMPv4EchoParams struct {
	Src, Dst netip.Addr
	ID, Seq  uint16
	IsReply  bool
	TOS      uint8 // evasion/discrimination knob: non-default TOS for OS fingerprinting probes
	Payload  []byte
}

// BuildICMPv4Echo serializes an ICMPv4 echo message.
func BuildICMPv4Echo(p ICMPv4EchoParams, opt BuildOptions) ([]byte, error) {
	typ := layers.ICMPv4TypeEchoRequest
	if p.IsReply {
		typ = layers.ICMPv4TypeEchoReply
	}
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(typ, 0),
		Id:       p.ID,
		Seq:      p.Seq,
	}
	ip4 := &layers.IPv4{
		Version:  4,
		TTL:      opt.ttl(),
		TOS:      p.TOS,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    p.Src.AsSlice(),
		DstIP:    p.Dst.AsSlice(),
	}
	buf := newBuffer(nil)
	if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip4, icmp, gopacket.Payload(p.Payload)); err != nil {
		return nil, fmt.Errorf("codec: serialize icmpv4 echo: %w", err)
	}
	if err := checkMTU(len(buf.Bytes()), opt); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// ICMPv6EchoParams builds an ICMPv6 echo request/reply. ICMPv6 carries the
// 40-byte IPv6 pseudo-header in its checksum (spec.md §4.1).
type ICMPv6EchoParams struct {
	Src, Dst netip.Addr
	ID, Seq  uint16
	IsReply  bool
	Payload  []byte
}

// BuildICMPv6Echo serializes an ICMPv6 echo message over an IPv6 header.
func BuildICMPv6Echo(p ICMPv6EchoParams, opt BuildOptions) ([]byte, error) {
	typ := layers.ICMPv6TypeEchoRequest
	if p.IsReply {
		typ = layers.ICMPv6TypeEchoReply
	}
	icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(typ, 0)}
	echo := &layers.ICMPv6Echo{Identifier: p.ID, SeqNumber: p.Seq}

	ip6 := &layers.IPv6{
		Version:    6,
		HopLimit:   opt.ttl(),
		NextHeader: layers.IPProtocolICMPv6,
		SrcIP:      p.Src.AsSlice(),
		DstIP:      p.Dst.AsSlice(),
	}
	if err := icmp.SetNetworkLayerForChecksum(ip6); err != nil {
		return nil, err
	}

	buf := newBuffer(nil)
	if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip6, icmp, echo, gopacket.Payload(p.Payload)); err != nil {
		return nil, fmt.Errorf("codec: serialize icmpv6 echo: %w", err)
	}
	if err := checkMTU(len(buf.Bytes()), opt); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// ParsedUnreachable is the result of parsing an ICMP(v6) destination
// unreachable message, used by the Response Dispatcher to infer Filtered
// state across scan modes (spec.md §4.8).
type ParsedUnreachable struct {
	V6           bool
	Type, Code   uint8
	OrigProto    layers.IPProtocol
	OrigSrcIP    netip.Addr
	OrigDstIP    netip.Addr
	OrigSrcPort  uint16
	OrigDstPort  uint16
}

// ParseUnreachable decodes an ICMPv4 or ICMPv6 "unreachable"-class message
// and recovers the original packet's addressing so it can be correlated
// back to the probe that triggered it.
func ParseUnreachable(frame []byte, v6 bool) (ParsedUnreachable, error) {
	var lt gopacket.LayerType
	if v6 {
		lt = layers.LayerTypeIPv6
	} else {
		lt = layers.LayerTypeIPv4
	}
	pkt := gopacket.NewPacket(frame, lt, gopacket.NoCopy)

	var out ParsedUnreachable
	out.V6 = v6

	if !v6 {
		l := pkt.Layer(layers.LayerTypeICMPv4)
		if l == nil {
			return out, fmt.Errorf("codec: not an icmpv4 packet")
		}
		icmp := l.(*layers.ICMPv4)
		out.Type = uint8(icmp.TypeCode.Type())
		out.Code = uint8(icmp.TypeCode.Code())
		return parseEmbeddedIPv4(out, icmp.LayerPayload())
	}

	l := pkt.Layer(layers.LayerTypeICMPv6)
	if l == nil {
		return out, fmt.Errorf("codec: not an icmpv6 packet")
	}
	icmp := l.(*layers.ICMPv6)
	out.Type = uint8(icmp.TypeCode.Type())
	out.Code = uint8(icmp.TypeCode.Code())
	return parseEmbeddedIPv6(out, icmp.LayerPayload())
}

func parseEmbeddedIPv4(out ParsedUnreachable, embedded []byte) (ParsedUnreachable, error) {
	pkt := gopacket.NewPacket(embedded, layers.LayerTypeIPv4, gopacket.NoCopy)
	ipL := pkt.Layer(layers.LayerTypeIPv4)
	if ipL == nil {
		return out, fmt.Errorf("codec: no embedded ipv4 header in unreachable message")
	}
	ip := ipL.(*layers.IPv4)
	out.OrigProto = ip.Protocol
	out.OrigSrcIP, _ = netip.AddrFromSlice(ip.SrcIP)
	out.OrigDstIP, _ = netip.AddrFromSlice(ip.DstIP)
	if tcpL := pkt.Layer(layers.LayerTypeTCP); tcpL != nil {
		t := tcpL.(*layers.TCP)
		out.OrigSrcPort, out.OrigDstPort = uint16(t.SrcPort), uint16(t.DstPort)
	} else if udpL := pkt.Layer(layers.LayerTypeUDP); udpL != nil {
		u := udpL.(*layers.UDP)
		out.OrigSrcPort, out.OrigDstPort = uint16(u.SrcPort), uint16(u.DstPort)
	}
	return out, nil
}

func parseEmbeddedIPv6(out ParsedUnreachable, embedded []byte) (ParsedUnreachable, error) {
	pkt := gopacket.NewPacket(embedded, layers.LayerTypeIPv6, gopacket.NoCopy)
	ipL := pkt.Layer(layers.LayerTypeIPv6)
	if ipL == nil {
		return out, fmt.Errorf("codec: no embedded ipv6 header in unreachable message")
	}
	ip := ipL.(*layers.IPv6)
	out.OrigProto = ip.NextHeader
	out.OrigSrcIP, _ = netip.AddrFromSlice(ip.SrcIP)
	out.OrigDstIP, _ = netip.AddrFromSlice(ip.DstIP)
	if tcpL := pkt.Layer(layers.LayerTypeTCP); tcpL != nil {
		t := tcpL.(*layers.TCP)
		out.OrigSrcPort, out.OrigDstPort = uint16(t.SrcPort), uint16(t.DstPort)
	} else if udpL := pkt.Layer(layers.LayerTypeUDP); udpL != nil {
		u := udpL.(*layers.UDP)
		out.OrigSrcPort, out.OrigDstPort = uint16(u.SrcPort), uint16(u.DstPort)
	}
	return out, nil
}

// AdminProhibitedV4 and AdminProhibitedV6 identify the "administratively
// prohibited" ICMP class that triggers per-target backoff (spec.md §4.12).
func AdminProhibitedV4(u ParsedUnreachable) bool { return u.Type == 3 && u.Code == 13 }
func AdminProhibitedV6(u ParsedUnreachable) bool { return u.Type == 1 && u.Code == 1 }

// FilteredCodesV4 are the ICMPv4 destination-unreachable codes the SYN
// strategy maps to Filtered (spec.md §4.7): 1 host, 2 protocol, 3 port,
// 9 admin net, 10 admin host, 13 admin prohibited.
var FilteredCodesV4 = map[uint8]bool{1: true, 2: true, 3: true, 9: true, 10: true, 13: true}
