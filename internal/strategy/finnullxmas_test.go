package strategy

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/stretchr/testify/require"
)

func TestFINNULLXmas_Flags(t *testing.T) {
	t.Parallel()

	require.Equal(t, TCPFlagSet{FIN: true}, NewFIN().Flags())
	require.Equal(t, TCPFlagSet{}, NewNULL().Flags())
	require.Equal(t, TCPFlagSet{FIN: true, PSH: true, URG: true}, NewXmas().Flags())
}

func TestFINNULLXmas_Classify(t *testing.T) {
	t.Parallel()

	v := NewFIN()
	require.Equal(t, result.Closed, v.Classify(Response{Kind: RespTCP, TCP: TCPFlagSet{RST: true}}))
	require.Equal(t, result.Filtered, v.Classify(Response{Kind: RespICMPUnreachableFiltered}))
	require.Equal(t, result.OpenFiltered, v.Classify(Response{Kind: RespNone, Attempts: 3, MaxRetries: 3}))
}

func TestFINNULLXmas_KindPerVariant(t *testing.T) {
	t.Parallel()

	require.Equal(t, KindFIN, NewFIN().Kind())
	require.Equal(t, KindNULL, NewNULL().Kind())
	require.Equal(t, KindXmas, NewXmas().Kind())
}
