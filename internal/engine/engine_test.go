package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/doublegate/ProRT-IP-sub009/internal/transport"
)

func TestSender_ConnectProbe_OpenPort(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	s := NewConnectOnly(nil)
	s.cfg.ProbeWait = 2 * time.Second

	target, err := addr.ParseAddress("127.0.0.1")
	require.NoError(t, err)

	r, err := s.SendProbe(context.Background(), strategy.KindConnect, target, port)
	require.NoError(t, err)
	require.Equal(t, result.Open, r.State)
	require.Equal(t, result.TCP, r.Protocol)
}

func TestSender_ConnectProbe_ClosedPort(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedPort := uint16(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	s := NewConnectOnly(nil)
	s.cfg.ProbeWait = 2 * time.Second

	target, err := addr.ParseAddress("127.0.0.1")
	require.NoError(t, err)

	r, err := s.SendProbe(context.Background(), strategy.KindConnect, target, closedPort)
	require.NoError(t, err)
	require.Equal(t, result.Closed, r.State)
}

func TestWrapEthernet_RoundTrips(t *testing.T) {
	t.Parallel()

	src := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dst := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	wire, err := wrapEthernet(payload, src, dst, false)
	require.NoError(t, err)
	require.Greater(t, len(wire), len(payload))

	pkt := gopacket.NewPacket(wire, layers.LayerTypeEthernet, gopacket.Default)
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	require.True(t, ok)
	require.Equal(t, src, eth.SrcMAC)
	require.Equal(t, dst, eth.DstMAC)
	require.Equal(t, layers.EthernetTypeIPv4, eth.EthernetType)
}

func TestSender_RawProbe_WithoutTransportReturnsErrRawUnavailable(t *testing.T) {
	t.Parallel()

	s := NewConnectOnly(nil)
	target, err := addr.ParseAddress("198.51.100.1")
	require.NoError(t, err)

	_, err = s.SendProbe(context.Background(), strategy.KindSYN, target, 80)
	require.ErrorIs(t, err, ErrRawUnavailable)
}

func TestSender_IdleProbe_RequiresZombie(t *testing.T) {
	t.Parallel()

	s := &Sender{tp: fakeTransport{}}
	target, err := addr.ParseAddress("198.51.100.1")
	require.NoError(t, err)

	_, err = s.SendProbe(context.Background(), strategy.KindIdle, target, 80)
	require.ErrorIs(t, err, ErrZombieRequired)
}

type fakeTransport struct{}

func (fakeTransport) SendFrame(iface string, frame []byte) error { return nil }
func (fakeTransport) RecvLoop(ctx context.Context, _ transport.Filter) (<-chan transport.Frame, <-chan error) {
	return nil, nil
}
func (fakeTransport) Close() error { return nil }
