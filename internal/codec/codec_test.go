package codec

import (
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

func TestBuildTCP_IPv4_SYN(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("192.0.2.1")
	dst := netip.MustParseAddr("192.0.2.2")
	frame, err := BuildTCP(TCPParams{
		Src: src, Dst: dst,
		SrcPort: 40000, DstPort: 80,
		Flags:  TCPFlags{SYN: true},
		Seq:    0x12345678,
		Window: 1024,
		Options: []TCPOption{
			{Kind: TCPOptMSS, MSS: 1460},
			{Kind: TCPOptNOP},
			{Kind: TCPOptWindowScale, Shift: 7},
			{Kind: TCPOptSACKPermitted},
			{Kind: TCPOptTimestamps, TSVal: 111, TSEcr: 0},
		},
	}, BuildOptions{})
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv4, gopacket.Default)
	ipL := pkt.Layer(layers.LayerTypeIPv4)
	require.NotNil(t, ipL)
	ip := ipL.(*layers.IPv4)
	require.Equal(t, src.String(), ip.SrcIP.String())
	require.Equal(t, dst.String(), ip.DstIP.String())
	require.Equal(t, uint8(DefaultTTL), ip.TTL)

	tcpL := pkt.Layer(layers.LayerTypeTCP)
	require.NotNil(t, tcpL)
	tcp := tcpL.(*layers.TCP)
	require.True(t, tcp.SYN)
	require.False(t, tcp.ACK)
	require.EqualValues(t, 40000, tcp.SrcPort)
	require.EqualValues(t, 80, tcp.DstPort)
	require.Equal(t, uint32(0x12345678), tcp.Seq)
	require.Len(t, tcp.Options, 5)
	require.Equal(t, layers.TCPOptionKindMSS, tcp.Options[0].OptionType)
}

func TestBuildTCP_OversizeWithoutFragmentation(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("192.0.2.1")
	dst := netip.MustParseAddr("192.0.2.2")
	_, err := BuildTCP(TCPParams{
		Src: src, Dst: dst, SrcPort: 1, DstPort: 1,
		Payload: make([]byte, 2000),
	}, BuildOptions{MTU: 1500})
	require.ErrorIs(t, err, ErrOversize)
}

func TestFragmentIPv4(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("192.0.2.1")
	dst := netip.MustParseAddr("192.0.2.2")
	frame, err := BuildTCP(TCPParams{
		Src: src, Dst: dst, SrcPort: 40000, DstPort: 80,
		Flags: TCPFlags{SYN: true}, Seq: 1, Window: 1024,
		Payload: make([]byte, 40),
	}, BuildOptions{})
	require.NoError(t, err)

	frags, err := FragmentIPv4(frame, 1, 0xBEEF) // 8 bytes per fragment
	require.NoError(t, err)
	require.Greater(t, len(frags), 1)

	for i, f := range frags {
		pkt := gopacket.NewPacket(f, layers.LayerTypeIPv4, gopacket.Default)
		ipL := pkt.Layer(layers.LayerTypeIPv4)
		require.NotNil(t, ipL)
		ip := ipL.(*layers.IPv4)
		require.Equal(t, uint16(0xBEEF), ip.Id)
		require.EqualValues(t, i*1, ip.FragOffset)
		if i == len(frags)-1 {
			require.Equal(t, layers.IPv4Flag(0), ip.Flags&layers.IPv4MoreFragments)
		} else {
			require.NotEqual(t, layers.IPv4Flag(0), ip.Flags&layers.IPv4MoreFragments)
		}
	}
}

func TestFragmentIPv4_ZeroSize(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("192.0.2.1")
	dst := netip.MustParseAddr("192.0.2.2")
	frame, err := BuildUDP(UDPParams{Src: src, Dst: dst, SrcPort: 1, DstPort: 1, Payload: []byte("x")}, BuildOptions{})
	require.NoError(t, err)

	_, err = FragmentIPv4(frame, 0, 1)
	require.Error(t, err)
}

func TestBuildUDP_IPv6(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("2001:db8::1")
	dst := netip.MustParseAddr("2001:db8::2")
	frame, err := BuildUDP(UDPParams{
		Src: src, Dst: dst, SrcPort: 5000, DstPort: 53, Payload: []byte("hi"),
	}, BuildOptions{})
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv6, gopacket.Default)
	ip6L := pkt.Layer(layers.LayerTypeIPv6)
	require.NotNil(t, ip6L)
	ip6 := ip6L.(*layers.IPv6)
	require.Equal(t, layers.IPProtocolUDP, ip6.NextHeader)

	udpL := pkt.Layer(layers.LayerTypeUDP)
	require.NotNil(t, udpL)
	udp := udpL.(*layers.UDP)
	require.EqualValues(t, 53, udp.DstPort)
}

func TestBuildICMPv4Echo(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("192.0.2.1")
	dst := netip.MustParseAddr("192.0.2.2")
	frame, err := BuildICMPv4Echo(ICMPv4EchoParams{
		Src: src, Dst: dst, ID: 42, Seq: 1, Payload: []byte("abcd"),
	}, BuildOptions{})
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv4, gopacket.Default)
	icmpL := pkt.Layer(layers.LayerTypeICMPv4)
	require.NotNil(t, icmpL)
	icmp := icmpL.(*layers.ICMPv4)
	require.Equal(t, layers.ICMPv4TypeEchoRequest, icmp.TypeCode.Type())
	require.EqualValues(t, 42, icmp.Id)
}

func TestBuildICMPv6Echo(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("2001:db8::1")
	dst := netip.MustParseAddr("2001:db8::2")
	frame, err := BuildICMPv6Echo(ICMPv6EchoParams{
		Src: src, Dst: dst, ID: 7, Seq: 3,
	}, BuildOptions{})
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv6, gopacket.Default)
	icmpL := pkt.Layer(layers.LayerTypeICMPv6)
	require.NotNil(t, icmpL)
	icmp := icmpL.(*layers.ICMPv6)
	require.Equal(t, layers.ICMPv6TypeEchoRequest, icmp.TypeCode.Type())
}

func TestBuildNeighborSolicitation(t *testing.T) {
	t.Parallel()

	src := netip.MustParseAddr("2001:db8::1")
	target := netip.MustParseAddr("2001:db8::dead:beef")
	dst := netip.MustParseAddr("ff02::1:ffad:beef")
	frame, err := BuildNeighborSolicitation(NeighborSolicitationParams{
		Src: src, Dst: dst, Target: target, SrcLLAddr: [6]byte{0, 1, 2, 3, 4, 5},
	}, BuildOptions{})
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv6, gopacket.Default)
	icmpL := pkt.Layer(layers.LayerTypeICMPv6)
	require.NotNil(t, icmpL)
	require.Equal(t, layers.ICMPv6TypeNeighborSolicitation, icmpL.(*layers.ICMPv6).TypeCode.Type())
}
