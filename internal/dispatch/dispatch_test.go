package dispatch

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/stateless"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RouteMalformedFrameIsCounted(t *testing.T) {
	t.Parallel()

	d := New(stateless.Key{}, 0, Handlers{})
	d.Route([]byte{0xff, 0xff, 0xff})
	require.Equal(t, uint64(1), d.Malformed())
}

func TestDispatcher_RouteStatelessSYNACKValidatesCookie(t *testing.T) {
	t.Parallel()

	var keyBytes [16]byte
	for i := range keyBytes {
		keyBytes[i] = byte(i + 1)
	}
	key := stateless.KeyFromBytes(keyBytes)
	target := addr.New4([4]byte{192, 0, 2, 10})
	cookie := stateless.Encode(key, target, 443, 7)

	var got StatelessEvent
	var called bool
	d := New(key, 7, Handlers{
		OnStateless: func(e StatelessEvent) { got = e; called = true },
	})

	frame := buildIPv4TCP(t, target, 443, addr.New4([4]byte{192, 0, 2, 1}), 54321,
		strategy.TCPFlagSet{SYN: true, ACK: true}, uint32(cookie)+1)

	d.Route(frame)
	require.True(t, called)
	require.True(t, got.Valid)
	require.Equal(t, uint16(443), got.Port)
}
