package strategy

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/stretchr/testify/require"
)

func TestUDP_Classify(t *testing.T) {
	t.Parallel()

	u := UDP{}
	require.Equal(t, result.Open, u.Classify(Response{Kind: RespUDP}))
	require.Equal(t, result.Closed, u.Classify(Response{Kind: RespICMPUnreachablePortClosed}))
	require.Equal(t, result.Filtered, u.Classify(Response{Kind: RespICMPUnreachableFiltered}))
	require.Equal(t, result.OpenFiltered, u.Classify(Response{Kind: RespNone}))
}

func TestUDP_PayloadKnownPorts(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Payload(53))
	require.NotNil(t, Payload(123))
	require.NotNil(t, Payload(161))
	require.Nil(t, Payload(54321))
}
