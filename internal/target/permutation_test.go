package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermutation_Bijection(t *testing.T) {
	t.Parallel()

	var key [16]byte
	copy(key[:], []byte("0123456789abcdef"))
	const n = 251 // prime, not a power of two, exercises cycle-walking
	p, err := NewPermutation(key, n)
	require.NoError(t, err)

	seen := make(map[uint64]bool, n)
	for i := uint64(0); i < n; i++ {
		out := p.At(i)
		require.Less(t, out, uint64(n))
		require.False(t, seen[out], "permutation collided at input %d -> %d", i, out)
		seen[out] = true
	}
	require.Len(t, seen, n)
}

func TestPermutation_DeterministicAcrossInstances(t *testing.T) {
	t.Parallel()

	var key [16]byte
	copy(key[:], []byte("fixedkeyfixedkey"))
	p1, err := NewPermutation(key, 1000)
	require.NoError(t, err)
	p2, err := NewPermutation(key, 1000)
	require.NoError(t, err)

	for i := uint64(0); i < 1000; i++ {
		require.Equal(t, p1.At(i), p2.At(i))
	}
}

func TestPermutation_DifferentKeysDiffer(t *testing.T) {
	t.Parallel()

	var k1, k2 [16]byte
	copy(k1[:], []byte("keyonekeyonekey1"))
	copy(k2[:], []byte("keytwokeytwokey2"))
	p1, err := NewPermutation(k1, 500)
	require.NoError(t, err)
	p2, err := NewPermutation(k2, 500)
	require.NoError(t, err)

	diff := 0
	for i := uint64(0); i < 500; i++ {
		if p1.At(i) != p2.At(i) {
			diff++
		}
	}
	require.Greater(t, diff, 400) // overwhelmingly likely to differ almost everywhere
}

func TestPermutation_RejectsZeroDomain(t *testing.T) {
	t.Parallel()
	var key [16]byte
	_, err := NewPermutation(key, 0)
	require.Error(t, err)
}
