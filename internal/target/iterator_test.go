package target

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustExpand(t *testing.T, spec string) Expansion {
	t.Helper()
	s, err := Parse(spec)
	require.NoError(t, err)
	exp, err := Resolve(context.Background(), s, nil)
	require.NoError(t, err)
	return exp
}

func TestIterator_RestartAtIndexMatchesFullRun(t *testing.T) {
	t.Parallel()

	exp := mustExpand(t, "192.0.2.0/26")
	var key [16]byte
	copy(key[:], []byte("resumekeyresumek"))
	perm, err := NewPermutation(key, exp.Len())
	require.NoError(t, err)

	full := NewIterator(exp, perm)
	var want []string
	for {
		a, ok, err := full.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		want = append(want, a.String())
	}

	const resumeAt = 10
	resumed := NewIterator(exp, perm)
	resumed.Seek(resumeAt)
	require.Equal(t, uint64(resumeAt), resumed.Index())

	var got []string
	for {
		a, ok, err := resumed.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, a.String())
	}
	require.Equal(t, want[resumeAt:], got)
}

func TestShard_CoversWholeRangeDisjointly(t *testing.T) {
	t.Parallel()

	exp := mustExpand(t, "192.0.2.0/25")
	var key [16]byte
	copy(key[:], []byte("shardkeyshardkey"))
	perm, err := NewPermutation(key, exp.Len())
	require.NoError(t, err)

	shards, err := Shard(exp, perm, 4)
	require.NoError(t, err)
	require.Len(t, shards, 4)

	seen := make(map[string]bool)
	var total int
	for _, it := range shards {
		for {
			a, ok, err := it.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			require.False(t, seen[a.String()], "address %s emitted by more than one shard", a.String())
			seen[a.String()] = true
			total++
		}
	}
	require.Equal(t, int(exp.Len()), total)
}

func TestResumeState_ValidateDetectsMismatch(t *testing.T) {
	t.Parallel()

	exp := mustExpand(t, "192.0.2.0/30")
	var key [16]byte
	perm, err := NewPermutation(key, exp.Len())
	require.NoError(t, err)
	it := NewIterator(exp, perm)
	it.Seek(2)

	rs := Snapshot(it, "192.0.2.0/30", "80", "syn", key)
	require.NoError(t, rs.Validate(exp.Len()))
	require.Error(t, rs.Validate(exp.Len()+1))

	bad := rs
	bad.NextIndex = rs.Total + 1
	require.Error(t, bad.Validate(exp.Len()))
}
