package codec

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// TCPFlags selects which control bits are set on a built TCP segment.
type TCPFlags struct {
	SYN, ACK, FIN, RST, PSH, URG, ECE, CWR, NS bool
}

// TCPOptionKind enumerates the option kinds spec.md §4.1 requires support
// for. Order of TCPOptions in a TCPParams is preserved in the wire frame --
// option ordering is itself a fingerprintable attribute (OS Fingerprinter
// OPS attribute), so callers must control it explicitly.
type TCPOptionKind uint8

const (
	TCPOptEOL           TCPOptionKind = 0 // kind 0, len 1 (marks end of options)
	TCPOptNOP           TCPOptionKind = 1 // kind 1, len 1 (no-op padding)
	TCPOptMSS           TCPOptionKind = 2 // kind 2, len 4
	TCPOptWindowScale   TCPOptionKind = 3 // kind 3, len 3
	TCPOptSACKPermitted TCPOptionKind = 4 // kind 4, len 2
	TCPOptTimestamps    TCPOptionKind = 8 // kind 8, len 10
)

// TCPOption is one entry in a TCP options list, in wire order.
type TCPOption struct {
	Kind  TCPOptionKind
	MSS   uint16 // TCPOptMSS
	Shift uint8  // TCPOptWindowScale
	TSVal uint32 // TCPOptTimestamps
	TSEcr uint32 // TCPOptTimestamps
}

func (o TCPOption) toLayer() layers.TCPOption {
	switch o.Kind {
	case TCPOptEOL:
		return layers.TCPOption{OptionType: layers.TCPOptionKindEndList}
	case TCPOptNOP:
		return layers.TCPOption{OptionType: layers.TCPOptionKindNop}
	case TCPOptMSS:
		return layers.TCPOption{
			OptionType:   layers.TCPOptionKindMSS,
			OptionLength: 4,
			OptionData:   []byte{byte(o.MSS >> 8), byte(o.MSS)},
		}
	case TCPOptWindowScale:
		return layers.TCPOption{
			OptionType:   layers.TCPOptionKindWindowScale,
			OptionLength: 3,
			OptionData:   []byte{o.Shift},
		}
	case TCPOptSACKPermitted:
		return layers.TCPOption{
			OptionType:   layers.TCPOptionKindSACKPermitted,
			OptionLength: 2,
		}
	case TCPOptTimestamps:
		data := make([]byte, 8)
		data[0] = byte(o.TSVal >> 24)
		data[1] = byte(o.TSVal >> 16)
		data[2] = byte(o.TSVal >> 8)
		data[3] = byte(o.TSVal)
		data[4] = byte(o.TSEcr >> 24)
		data[5] = byte(o.TSEcr >> 16)
		data[6] = byte(o.TSEcr >> 8)
		data[7] = byte(o.TSEcr)
		return layers.TCPOption{
			OptionType:   layers.TCPOptionKindTimestamps,
			OptionLength: 10,
			OptionData:   data,
		}
	default:
		return layers.TCPOption{OptionType: layers.TCPOptionKindNop}
	}
}

// TCPParams is the full set of parameters needed to build a TCP segment
// over either IPv4 or IPv6, per spec.md §4.1's build_tcp operation.
type TCPParams struct {
	Src, Dst netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Flags    TCPFlags
	Seq      uint32
	Ack      uint32
	Window   uint16
	Options  []TCPOption
	Payload  []byte
}

func (p TCPParams) tcpLayer() *layers.TCP {
	t := &layers.TCP{
		SrcPort: layers.TCPPort(p.SrcPort),
		DstPort: layers.TCPPort(p.DstPort),
		Seq:     p.Seq,
		Ack:     p.Ack,
		SYN:     p.Flags.SYN,
		ACK:     p.Flags.ACK,
		FIN:     p.Flags.FIN,
		RST:     p.Flags.RST,
		PSH:     p.Flags.PSH,
		URG:     p.Flags.URG,
		ECE:     p.Flags.ECE,
		CWR:     p.Flags.CWR,
		NS:      p.Flags.NS,
		Window:  p.Window,
	}
	for _, o := range p.Options {
		t.Options = append(t.Options, o.toLayer())
	}
	return t
}

// BuildTCP serializes a TCP segment over an IPv4 or IPv6 header (dispatched
// on the Src/Dst address family) into a freshly-allocated byte slice.
func BuildTCP(p TCPParams, opt BuildOptions) ([]byte, error) {
	buf, err := buildTCPInto(nil, p, opt)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// BuildTCPInto is the zero-copy build path: it serializes into the supplied
// gopacket.SerializeBuffer (reused across calls) and returns the backing
// bytes, valid until the buffer is next reused.
func BuildTCPInto(into gopacket.SerializeBuffer, p TCPParams, opt BuildOptions) ([]byte, error) {
	buf, err := buildTCPInto(into, p, opt)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildTCPInto(into gopacket.SerializeBuffer, p TCPParams, opt BuildOptions) (gopacket.SerializeBuffer, error) {
	buf := newBuffer(into)
	tcp := p.tcpLayer()

	switch {
	case p.Src.Is4():
		ip4 := &layers.IPv4{
			Version:  4,
			TTL:      opt.ttl(),
			Protocol: layers.IPProtocolTCP,
			SrcIP:    p.Src.AsSlice(),
			DstIP:    p.Dst.AsSlice(),
		}
		if err := tcp.SetNetworkLayerForChecksum(ip4); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip4, tcp, gopacket.Payload(p.Payload)); err != nil {
			return nil, fmt.Errorf("codec: serialize tcp/ipv4: %w", err)
		}
	case p.Src.Is6():
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   opt.ttl(),
			NextHeader: layers.IPProtocolTCP,
			SrcIP:      p.Src.AsSlice(),
			DstIP:      p.Dst.AsSlice(),
		}
		if err := tcp.SetNetworkLayerForChecksum(ip6); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip6, tcp, gopacket.Payload(p.Payload)); err != nil {
			return nil, fmt.Errorf("codec: serialize tcp/ipv6: %w", err)
		}
	default:
		return nil, fmt.Errorf("codec: invalid source address family")
	}

	if err := checkMTU(len(buf.Bytes()), opt); err != nil {
		return nil, err
	}
	return buf, nil
}
