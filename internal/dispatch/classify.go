// Package dispatch implements the response dispatcher (spec.md §4.8): a
// single capture loop that parses received frames, classifies them by
// protocol and flags, and routes stateless responses to the cookie
// validator and stateful responses to the connection tracker, with ICMP
// unreachables fed to both so filtered state can be inferred in either
// mode.
package dispatch

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/doublegate/ProRT-IP-sub009/internal/codec"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
)

// Classified is the protocol-agnostic view of one parsed response frame,
// a zero-copy projection over the gopacket decode (spec.md §4.8 "zero-copy
// view over the received buffer").
type Classified struct {
	SrcIP, DstIP netip.Addr
	SrcPort      uint16
	DstPort      uint16
	Protocol     strategyProtocol
	TCP          strategy.TCPFlagSet
	Seq, Ack     uint32
	IPID         uint16 // IPv4 identification field, for idle-scan baselines
	TTL          uint8  // IPv4 TTL / IPv6 hop limit, for OS fingerprinting
	DF           bool   // IPv4 don't-fragment bit (always true on IPv6)
	Window       uint16 // TCP window size, for OS fingerprinting
	Unreachable  *codec.ParsedUnreachable
	Payload      []byte
}

// strategyProtocol is a package-local protocol tag, kept separate from
// result.Protocol so this package doesn't need to import result just to
// name TCP/UDP/ICMP.
type strategyProtocol = uint8

const (
	protoUnknown strategyProtocol = iota
	protoTCP
	protoUDP
	protoICMP
)

// ErrMalformed marks a frame that failed to parse as any recognized
// protocol; the caller counts and drops these (spec.md §4.8).
type ErrMalformed struct{ Reason string }

func (e *ErrMalformed) Error() string { return "dispatch: malformed frame: " + e.Reason }

// Classify decodes one received frame (link layer through transport) into
// a Classified view, or returns *ErrMalformed if nothing recognizable
// could be extracted.
func Classify(data []byte) (Classified, error) {
	// The raw transport hands back full link-layer frames (AF_PACKET/
	// SOCK_RAW captures Ethernet and up), so decoding starts at Ethernet
	// and gopacket follows the EtherType chain into IPv4/IPv6 and the
	// transport layer beneath it.
	if v4, ok := tryIPv4(data); ok {
		return v4, nil
	}
	if v6, ok := tryIPv6(data); ok {
		return v6, nil
	}
	return Classified{}, &ErrMalformed{Reason: "no IPv4/IPv6 layer"}
}

func tryIPv4(data []byte) (Classified, bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return Classified{}, false
	}
	ip4 := ipLayer.(*layers.IPv4)

	out := Classified{
		SrcIP: mustAddrFromSlice(ip4.SrcIP),
		DstIP: mustAddrFromSlice(ip4.DstIP),
		IPID:  ip4.Id,
		TTL:   ip4.TTL,
		DF:    ip4.Flags&layers.IPv4DontFragment != 0,
	}
	fillTransport(pkt, &out, false)
	return out, true
}

func tryIPv6(data []byte) (Classified, bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ipLayer := pkt.Layer(layers.LayerTypeIPv6)
	if ipLayer == nil {
		return Classified{}, false
	}
	ip6 := ipLayer.(*layers.IPv6)

	out := Classified{
		SrcIP: mustAddrFromSlice(ip6.SrcIP),
		DstIP: mustAddrFromSlice(ip6.DstIP),
		TTL:   ip6.HopLimit,
		DF:    true, // IPv6 has no fragment bit on the base header; treated as always-set
	}
	fillTransport(pkt, &out, true)
	return out, true
}

func fillTransport(pkt gopacket.Packet, out *Classified, v6 bool) {
	if tcpLayer := pkt.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		out.Protocol = protoTCP
		out.SrcPort = uint16(tcp.SrcPort)
		out.DstPort = uint16(tcp.DstPort)
		out.Seq = tcp.Seq
		out.Ack = tcp.Ack
		out.TCP = strategy.TCPFlagSet{SYN: tcp.SYN, ACK: tcp.ACK, RST: tcp.RST, FIN: tcp.FIN, PSH: tcp.PSH, URG: tcp.URG}
		out.Window = tcp.Window
		out.Payload = tcp.Payload
		return
	}
	if udpLayer := pkt.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		out.Protocol = protoUDP
		out.SrcPort = uint16(udp.SrcPort)
		out.DstPort = uint16(udp.DstPort)
		out.Payload = udp.Payload
		return
	}

	// ParseUnreachable decodes from the IP header, so strip the link layer.
	data := pkt.Data()
	if ll := pkt.LinkLayer(); ll != nil {
		data = data[len(ll.LayerContents()):]
	}
	if !v6 {
		if icmpLayer := pkt.Layer(layers.LayerTypeICMPv4); icmpLayer != nil {
			out.Protocol = protoICMP
			if u, err := codec.ParseUnreachable(data, false); err == nil {
				out.Unreachable = &u
			}
		}
		return
	}
	if icmpLayer := pkt.Layer(layers.LayerTypeICMPv6); icmpLayer != nil {
		out.Protocol = protoICMP
		if u, err := codec.ParseUnreachable(data, true); err == nil {
			out.Unreachable = &u
		}
	}
}

// unreachableKind maps a parsed ICMP(v6) unreachable message to the
// dispatcher's response vocabulary. UDP's own closed-port signal (v4 type
// 3 code 3, v6 type 1 code 4) is distinguished from every other
// unreachable code, which the SYN/FIN/NULL/Xmas/ACK strategies instead
// treat uniformly as Filtered (spec.md §4.7).
func unreachableKind(u codec.ParsedUnreachable) strategy.ResponseKind {
	isUDP := u.OrigProto == layers.IPProtocolUDP

	if !u.V6 {
		if u.Code == 3 && isUDP {
			return strategy.RespICMPUnreachablePortClosed
		}
		if codec.FilteredCodesV4[u.Code] {
			return strategy.RespICMPUnreachableFiltered
		}
		return strategy.RespICMPUnreachableOther
	}
	if u.Code == 4 {
		if isUDP {
			return strategy.RespICMPUnreachablePortClosed
		}
		return strategy.RespICMPUnreachableFiltered
	}
	if u.Code <= 3 {
		return strategy.RespICMPUnreachableFiltered
	}
	return strategy.RespICMPUnreachableOther
}

func mustAddrFromSlice(b []byte) netip.Addr {
	a, ok := netip.AddrFromSlice(b)
	if !ok {
		return netip.Addr{}
	}
	return a
}
