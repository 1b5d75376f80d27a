package dispatch

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/codec"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/stretchr/testify/require"
)

var (
	testSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	testDstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// buildIPv4TCP constructs a raw Ethernet/IPv4/TCP frame as it would be
// received by the capture loop: from responder (src) to the scanner (dst).
func buildIPv4TCP(t *testing.T, src addr.Address, srcPort uint16, dst addr.Address, dstPort uint16, flags strategy.TCPFlagSet, ack uint32) []byte {
	t.Helper()

	data, err := codec.BuildTCP(codec.TCPParams{
		Src:     toNetip(src),
		Dst:     toNetip(dst),
		SrcPort: srcPort,
		DstPort: dstPort,
		Flags: codec.TCPFlags{
			SYN: flags.SYN, ACK: flags.ACK, RST: flags.RST, FIN: flags.FIN, PSH: flags.PSH, URG: flags.URG,
		},
		Ack:    ack,
		Window: 1024,
	}, codec.BuildOptions{})
	require.NoError(t, err)
	return wrapEthernetFrame(t, data)
}

// wrapEthernetFrame prepends the Ethernet header the capture loop always
// sees on an AF_PACKET/SOCK_RAW socket, mirroring internal/engine.wrapEthernet.
func wrapEthernetFrame(t *testing.T, l3 []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC, EthernetType: layers.EthernetTypeIPv4}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(l3)))
	return append([]byte(nil), buf.Bytes()...)
}

func toNetip(a addr.Address) netip.Addr { return a.Unwrap() }
