package conntrack

import (
	"testing"
	"time"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/stretchr/testify/require"
)

func testKey(port uint16) Key {
	return Key{LocalPort: port, RemoteAddr: addr.New4([4]byte{10, 0, 0, 1}), RemotePort: 80}
}

func TestScheduler_AddPopDue(t *testing.T) {
	t.Parallel()

	s := NewScheduler(0, 0)
	now := time.Now()
	k := testKey(1111)
	s.Add(k, now.Add(-time.Second)) // already due

	due := s.PopDue(now)
	require.Equal(t, []Key{k}, due)
	require.Equal(t, 0, s.Len())
}

func TestScheduler_PeekReturnsEarliest(t *testing.T) {
	t.Parallel()

	s := NewScheduler(0, 0)
	now := time.Now()
	s.Add(testKey(1), now.Add(2*time.Second))
	s.Add(testKey(2), now.Add(1*time.Second))

	earliest, ok := s.Peek()
	require.True(t, ok)
	require.Equal(t, now.Add(1*time.Second), earliest)
}

func TestScheduler_Del(t *testing.T) {
	t.Parallel()

	s := NewScheduler(0, 0)
	k := testKey(1)
	s.Add(k, time.Now())
	require.True(t, s.Del(k))
	require.False(t, s.Del(k))
}
