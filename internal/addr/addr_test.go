package addr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddress_FamilyDispatch(t *testing.T) {
	t.Parallel()

	v4, err := ParseAddress("192.0.2.1")
	require.NoError(t, err)
	require.True(t, v4.IsV4())
	require.False(t, v4.IsV6())
	require.Equal(t, FamilyV4, v4.Family())
	require.Len(t, v4.Bytes(), 4)

	v6, err := ParseAddress("2001:db8::1")
	require.NoError(t, err)
	require.True(t, v6.IsV6())
	require.Equal(t, FamilyV6, v6.Family())
	require.Len(t, v6.Bytes(), 16)
}

func TestAddress_SolicitedNodeMulticast(t *testing.T) {
	t.Parallel()

	v6, err := ParseAddress("2001:db8::1:2:ff00:42ab")
	require.NoError(t, err)
	sn := v6.SolicitedNodeMulticast()
	require.Equal(t, "ff02::1:ff00:42ab", sn.String())
}

func TestAddress_Next(t *testing.T) {
	t.Parallel()

	a, err := ParseAddress("10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.2", a.Next().String())
}

func TestAddress_AddOffset(t *testing.T) {
	t.Parallel()

	v4, err := ParseAddress("192.0.2.0")
	require.NoError(t, err)
	require.Equal(t, "192.0.2.5", v4.AddOffset(5).String())

	v6, err := ParseAddress("2001:db8::")
	require.NoError(t, err)
	require.Equal(t, "2001:db8::5", v6.AddOffset(5).String())

	wrapped, err := ParseAddress("255.255.255.255")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", wrapped.AddOffset(1).String())
}
