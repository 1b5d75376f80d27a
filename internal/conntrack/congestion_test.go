package conntrack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCongestion_SlowStartGrowsByOne(t *testing.T) {
	t.Parallel()

	c := NewCongestion()
	require.True(t, c.SlowStart())
	c.OnAck()
	require.Equal(t, 2, c.Window())
	c.OnAck()
	require.Equal(t, 3, c.Window())
}

func TestCongestion_TimeoutHalvesWindow(t *testing.T) {
	t.Parallel()

	c := NewCongestion()
	for i := 0; i < 10; i++ {
		c.OnAck()
	}
	before := c.Window()
	c.OnTimeout()
	require.Less(t, c.Window(), before)
	require.False(t, c.SlowStart() == true && c.Window() > before)
}

func TestCongestion_AvoidanceGrowsSlowerThanSlowStart(t *testing.T) {
	t.Parallel()

	c := NewCongestion()
	c.ssthresh = 4
	for i := 0; i < 3; i++ {
		c.OnAck() // slow start until cwnd hits ssthresh
	}
	require.False(t, c.SlowStart())
	w := c.Window()
	c.OnAck()
	require.LessOrEqual(t, c.Window()-w, 1)
}
