package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscovery_Alive(t *testing.T) {
	t.Parallel()

	require.True(t, Alive(DiscoveryICMPEchoReply))
	require.True(t, Alive(DiscoveryNeighborAdvertisement))
	require.True(t, Alive(DiscoveryTCPReply))
	require.False(t, Alive(DiscoveryNoReply))
	require.False(t, Alive(DiscoveryICMPUnreachable))
}

func TestDiscovery_DefaultPortsNonEmpty(t *testing.T) {
	t.Parallel()
	require.NotEmpty(t, DefaultDiscoveryPorts)
}
