package codec

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FragmentIPv4 splits an already-built IPv4 packet (header + L4 payload,
// as returned by BuildTCP/BuildUDP/etc. when opt.FragmentSize8B was set)
// into RFC 791 fragments of fragSize8B*8 bytes each, every fragment but
// the last carrying the More Fragments flag and a FragOffset advancing in
// 8-byte units (spec.md §4.1: "fragment size in 8-byte multiples, IPv4
// only"). id is the shared IPv4 identification field every fragment of
// one packet must carry so the receiver can reassemble them.
//
// The split is taken over the whole IPv4 payload, including the L4
// header -- deliberately fragmenting mid-TCP-header is the evasion this
// option exists for, the same way nmap's -f splits beneath naive
// packet-filtering firewalls.
func FragmentIPv4(full []byte, fragSize8B uint8, id uint16) ([][]byte, error) {
	if fragSize8B == 0 {
		return nil, fmt.Errorf("codec: fragment: fragment size must be non-zero")
	}
	pkt := gopacket.NewPacket(full, layers.LayerTypeIPv4, gopacket.NoCopy)
	ip4Layer := pkt.Layer(layers.LayerTypeIPv4)
	if ip4Layer == nil {
		return nil, fmt.Errorf("codec: fragment: not an ipv4 packet")
	}
	ip4, ok := ip4Layer.(*layers.IPv4)
	if !ok {
		return nil, fmt.Errorf("codec: fragment: unexpected ipv4 layer type")
	}
	payload := ip4.LayerPayload()
	if len(payload) == 0 {
		return nil, fmt.Errorf("codec: fragment: empty payload")
	}

	chunk := int(fragSize8B) * 8
	var frags [][]byte
	for off := 0; off < len(payload); off += chunk {
		end := off + chunk
		more := true
		if end >= len(payload) {
			end = len(payload)
			more = false
		}

		hdr := &layers.IPv4{
			Version:    4,
			TTL:        ip4.TTL,
			Id:         id,
			Protocol:   ip4.Protocol,
			SrcIP:      ip4.SrcIP,
			DstIP:      ip4.DstIP,
			FragOffset: uint16(off / 8),
		}
		if more {
			hdr.Flags = layers.IPv4MoreFragments
		}

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		if err := gopacket.SerializeLayers(buf, opts, hdr, gopacket.Payload(payload[off:end])); err != nil {
			return nil, fmt.Errorf("codec: serialize fragment: %w", err)
		}
		frags = append(frags, append([]byte(nil), buf.Bytes()...))
	}
	return frags, nil
}
