package stateless

import (
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) Key {
	t.Helper()
	var raw [16]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return KeyFromBytes(raw)
}

func TestEncodeValidate_RoundTrip(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	target := addr.New4([4]byte{192, 0, 2, 10})

	cookie := Encode(key, target, 443, 7)
	require.True(t, Validate(key, target, 443, 7, cookie))
}

func TestValidate_RejectsTamperedFields(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	target := addr.New4([4]byte{192, 0, 2, 10})
	cookie := Encode(key, target, 443, 7)

	require.False(t, Validate(key, target, 8443, 7, cookie), "wrong port must fail")
	require.False(t, Validate(key, target, 443, 8, cookie), "wrong nonce must fail")

	other := addr.New4([4]byte{192, 0, 2, 11})
	require.False(t, Validate(key, other, 443, 7, cookie), "wrong address must fail")
}

func TestEncode_DifferentKeysDiffer(t *testing.T) {
	t.Parallel()

	target := addr.New4([4]byte{198, 51, 100, 5})
	var raw1, raw2 [16]byte
	for i := range raw1 {
		raw1[i] = byte(i)
		raw2[i] = byte(i + 100)
	}
	k1 := KeyFromBytes(raw1)
	k2 := KeyFromBytes(raw2)

	require.NotEqual(t, Encode(k1, target, 80, 1), Encode(k2, target, 80, 1))
}

func TestEncode_IPv6(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	target := addr.New6([16]byte{0x20, 0x01, 0x0d, 0xb8})

	cookie := Encode(key, target, 22, 42)
	require.True(t, Validate(key, target, 22, 42, cookie))
}
