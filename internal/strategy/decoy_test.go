package strategy

import (
	"math/rand"
	"testing"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/stretchr/testify/require"
)

func TestDecoy_SourcesInterleavesReal(t *testing.T) {
	t.Parallel()

	real := addr.New4([4]byte{192, 0, 2, 1})
	decoys := []addr.Address{
		addr.New4([4]byte{203, 0, 113, 1}),
		addr.New4([4]byte{203, 0, 113, 2}),
	}
	d, err := NewDecoy(real, decoys)
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())

	sources := d.Sources(1)
	require.Len(t, sources, 3)
	require.Equal(t, real, sources[1])
}

func TestDecoy_RejectsEmptySet(t *testing.T) {
	t.Parallel()

	_, err := NewDecoy(addr.New4([4]byte{192, 0, 2, 1}), nil)
	require.Error(t, err)
}

func TestDecoy_SourceIndexInRange(t *testing.T) {
	t.Parallel()

	d, err := NewDecoy(addr.New4([4]byte{192, 0, 2, 1}), []addr.Address{
		addr.New4([4]byte{203, 0, 113, 1}),
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		idx := d.SourceIndex(rng)
		require.GreaterOrEqual(t, idx, 0)
		require.LessOrEqual(t, idx, d.Len()-1)
	}
}
