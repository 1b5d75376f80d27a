package strategy

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
	"github.com/stretchr/testify/require"
)

func TestACK_Classify(t *testing.T) {
	t.Parallel()

	a := ACK{}
	require.Equal(t, result.Unfiltered, a.Classify(Response{Kind: RespTCP, TCP: TCPFlagSet{RST: true}}))
	require.Equal(t, result.Filtered, a.Classify(Response{Kind: RespICMPUnreachableFiltered}))
	require.Equal(t, result.Filtered, a.Classify(Response{Kind: RespNone, Attempts: 2, MaxRetries: 2}))
}

func TestClassifyZombiePolicy(t *testing.T) {
	t.Parallel()

	require.Equal(t, PolicyZero, ClassifyZombiePolicy([]uint16{0, 0, 0}))
	require.Equal(t, PolicySequential, ClassifyZombiePolicy([]uint16{100, 101, 102, 103}))
	require.Equal(t, PolicyGlobal, ClassifyZombiePolicy([]uint16{100, 150, 210}))
	require.Equal(t, PolicyRandom, ClassifyZombiePolicy([]uint16{5000, 12, 40000}))
	require.Equal(t, PolicyUnknown, ClassifyZombiePolicy([]uint16{1}))
}

func TestZombiePolicy_Suitable(t *testing.T) {
	t.Parallel()

	require.True(t, PolicySequential.Suitable())
	require.True(t, PolicyGlobal.Suitable())
	require.False(t, PolicyRandom.Suitable())
	require.False(t, PolicyPerDestination.Suitable())
	require.False(t, PolicyZero.Suitable())
}

func TestClassifyDelta(t *testing.T) {
	t.Parallel()

	idle := Idle{}
	require.Equal(t, result.Open, idle.Classify(ClassifyDelta(2)))
	require.Equal(t, result.Closed, idle.Classify(ClassifyDelta(1)))
	require.Equal(t, result.Filtered, idle.Classify(ClassifyDelta(0)))
	require.Equal(t, result.Unknown, idle.Classify(ClassifyDelta(9)))
}
