package codec

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// NeighborSolicitationParams builds an IPv6 Neighbor Solicitation sent to
// the solicited-node multicast address derived from Target (spec.md §4.7
// Discovery strategy, RFC 4861).
type NeighborSolicitationParams struct {
	Src       netip.Addr // sender's own address
	Dst       netip.Addr // ff02::1:ffXX:XXXX, see addr.Address.SolicitedNodeMulticast
	Target    netip.Addr // address being resolved
	SrcLLAddr [6]byte    // source link-layer (MAC) address option
}

// BuildNeighborSolicitation serializes an NDP Neighbor Solicitation message
// with a source link-layer address option.
func BuildNeighborSolicitation(p NeighborSolicitationParams, opt BuildOptions) ([]byte, error) {
	icmp := &layers.ICMPv6{
		TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeNeighborSolicitation, 0),
	}
	ns := &layers.ICMPv6NeighborSolicitation{
		TargetAddress: p.Target.AsSlice(),
		Options: layers.ICMPv6Options{
			{
				Type: layers.ICMPv6OptSourceAddress,
				Data: p.SrcLLAddr[:],
			},
		},
	}

	ip6 := &layers.IPv6{
		Version:    6,
		HopLimit:   255, // NDP requires hop limit 255 so receivers can detect off-link spoofing
		NextHeader: layers.IPProtocolICMPv6,
		SrcIP:      p.Src.AsSlice(),
		DstIP:      p.Dst.AsSlice(),
	}
	if err := icmp.SetNetworkLayerForChecksum(ip6); err != nil {
		return nil, err
	}

	buf := newBuffer(nil)
	if err := gopacket.SerializeLayers(buf, serializeOpts(opt), ip6, icmp, ns); err != nil {
		return nil, fmt.Errorf("codec: serialize neighbor solicitation: %w", err)
	}
	if err := checkMTU(len(buf.Bytes()), opt); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}
