package conntrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTracker_OpenAckRemovesFromSchedule(t *testing.T) {
	t.Parallel()

	tr := NewTracker(3, 50*time.Millisecond, 2*time.Second)
	now := time.Now()
	key := testKey(5000)

	rec := tr.Open(key, 12345, now)
	require.Equal(t, Sent, rec.State)
	require.Equal(t, 1, tr.Len())

	got, ok := tr.Ack(key, 20*time.Millisecond, nil, now.Add(20*time.Millisecond))
	require.True(t, ok)
	require.Equal(t, Responded, got.State)

	require.Empty(t, tr.DueForRetransmit(now.Add(time.Hour)))
}

func TestTracker_RetransmitsUntilMaxRetries(t *testing.T) {
	t.Parallel()

	tr := NewTracker(2, 10*time.Millisecond, time.Second)
	now := time.Now()
	key := testKey(5001)
	tr.Open(key, 1, now)

	due1 := tr.DueForRetransmit(now.Add(time.Second))
	require.Len(t, due1, 1)
	require.Equal(t, 2, due1[0].Attempts)

	due2 := tr.DueForRetransmit(now.Add(2 * time.Second))
	require.Empty(t, due2, "third attempt should exceed maxRetries=2 and mark Timeout instead")

	rec, ok := tr.Get(key)
	require.True(t, ok)
	require.Equal(t, Timeout, rec.State)
}

func TestTracker_CloseStopsRetransmission(t *testing.T) {
	t.Parallel()

	tr := NewTracker(5, 10*time.Millisecond, time.Second)
	now := time.Now()
	key := testKey(5002)
	tr.Open(key, 1, now)

	rec, ok := tr.Close(key)
	require.True(t, ok)
	require.Equal(t, Closed, rec.State)

	require.Empty(t, tr.DueForRetransmit(now.Add(time.Hour)))
}

func TestTracker_RemoveDeletesBookkeeping(t *testing.T) {
	t.Parallel()

	tr := NewTracker(5, 10*time.Millisecond, time.Second)
	now := time.Now()
	key := testKey(5003)
	tr.Open(key, 1, now)
	require.Equal(t, 1, tr.Len())

	tr.Remove(key)
	require.Equal(t, 0, tr.Len())
	_, ok := tr.Get(key)
	require.False(t, ok)
}
