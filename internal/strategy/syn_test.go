package strategy

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/stretchr/testify/require"
)

func TestSYN_Classify(t *testing.T) {
	t.Parallel()

	s := SYN{}
	require.Equal(t, result.Open, s.Classify(Response{Kind: RespTCP, TCP: TCPFlagSet{SYN: true, ACK: true}}))
	require.Equal(t, result.Closed, s.Classify(Response{Kind: RespTCP, TCP: TCPFlagSet{RST: true}}))
	require.Equal(t, result.Filtered, s.Classify(Response{Kind: RespICMPUnreachableFiltered}))
	require.Equal(t, result.Filtered, s.Classify(Response{Kind: RespNone, Attempts: 3, MaxRetries: 3}))
	require.Equal(t, result.Unknown, s.Classify(Response{Kind: RespNone, Attempts: 1, MaxRetries: 3}))
}

func TestConnect_TranslateDialResult(t *testing.T) {
	t.Parallel()

	c := Connect{}
	require.Equal(t, result.Open, c.Classify(TranslateDialResult(DialSucceeded, 0, 3)))
	require.Equal(t, result.Closed, c.Classify(TranslateDialResult(DialRefused, 0, 3)))
	require.Equal(t, result.Filtered, c.Classify(TranslateDialResult(DialTimedOut, 3, 3)))
}
