package addr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortSpec_Parse_Basic(t *testing.T) {
	t.Parallel()

	ps, err := Parse("22,80-82,443")
	require.NoError(t, err)
	require.Equal(t, []uint16{22, 80, 81, 82, 443}, ps.Ports())
}

func TestPortSpec_Parse_RejectsEmptyAndZero(t *testing.T) {
	t.Parallel()

	_, err := Parse("")
	require.Error(t, err)

	_, err = Parse("0")
	require.Error(t, err)

	_, err = Parse("22,,80")
	require.Error(t, err)
}

func TestPortSpec_Parse_RejectsReversedRange(t *testing.T) {
	t.Parallel()

	_, err := Parse("100-80")
	require.Error(t, err)
}

func TestPortSpec_Parse_TrimsWhitespace(t *testing.T) {
	t.Parallel()

	ps, err := Parse(" 22 , 80 - 82 ")
	require.NoError(t, err)
	require.Equal(t, []uint16{22, 80, 81, 82}, ps.Ports())
}

func TestPortSpec_Parse_Dedupes(t *testing.T) {
	t.Parallel()

	ps, err := Parse("22,22,20-24")
	require.NoError(t, err)
	require.Equal(t, []uint16{20, 21, 22, 23, 24}, ps.Ports())
}

func TestPortSpec_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []string{"22", "22,80-82,443", "1-65535", "1,3,5,7-10"}
	for _, c := range cases {
		ps1, err := Parse(c)
		require.NoError(t, err)
		ps2, err := Parse(ps1.String())
		require.NoError(t, err)
		require.Equal(t, ps1.Ports(), ps2.Ports(), "round trip for %q", c)
	}
}

func TestPortSpec_Exclude(t *testing.T) {
	t.Parallel()

	ps, err := Parse("1-10")
	require.NoError(t, err)
	excl, err := Parse("3,5,7")
	require.NoError(t, err)
	got := ps.Exclude(excl)
	require.Equal(t, []uint16{1, 2, 4, 6, 8, 9, 10}, got.Ports())
}

func TestAllPorts(t *testing.T) {
	t.Parallel()
	require.Equal(t, 65535, AllPorts().Len())
}
