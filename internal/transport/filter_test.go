package transport

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssemble_TCPUDPICMP(t *testing.T) {
	t.Parallel()

	raw, err := Assemble(Filter{
		LocalIP: net.ParseIP("192.0.2.10"),
		TCP:     true,
		UDP:     true,
		ICMP:    true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestAssemble_NoProtocolsRejectsEverything(t *testing.T) {
	t.Parallel()

	raw, err := Assemble(Filter{LocalIP: net.ParseIP("192.0.2.10")})
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestAssemble_IPv6Only(t *testing.T) {
	t.Parallel()

	raw, err := Assemble(Filter{ICMPv6: true, TCP: true})
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestStaticResolver(t *testing.T) {
	t.Parallel()

	info := GatewayInfo{Interface: "eth0", LocalIP: net.ParseIP("192.0.2.1")}
	r := NewStaticResolver(info)
	got, err := r.Resolve(context.Background(), net.ParseIP("192.0.2.2"))
	require.NoError(t, err)
	require.Equal(t, info, got)
}
