package dispatch

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/stretchr/testify/require"
)

func TestClassify_TCPRST(t *testing.T) {
	t.Parallel()

	src := addr.New4([4]byte{192, 0, 2, 10})
	dst := addr.New4([4]byte{192, 0, 2, 1})
	frame := buildIPv4TCP(t, src, 80, dst, 55000, strategy.TCPFlagSet{RST: true}, 1)

	c, err := Classify(frame)
	require.NoError(t, err)
	require.True(t, c.TCP.RST)
	require.Equal(t, uint16(80), c.SrcPort)
	require.Equal(t, uint16(55000), c.DstPort)
}

func TestClassify_MalformedFrame(t *testing.T) {
	t.Parallel()

	_, err := Classify([]byte{0x01, 0x02})
	require.Error(t, err)
}
