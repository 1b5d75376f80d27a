package aggregator

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

type memSink struct {
	mu      sync.Mutex
	written []result.PortResult
}

func (s *memSink) WritePortResult(_ context.Context, r result.PortResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, r)
	return nil
}

func (s *memSink) snapshot() []result.PortResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]result.PortResult, len(s.written))
	copy(out, s.written)
	return out
}

func testKey() (netip.Addr, uint16, result.Protocol) {
	return netip.MustParseAddr("198.51.100.7"), 443, result.TCP
}

func TestAggregator_DecisiveStateFinalizesImmediately(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	a := New(sink)
	address, port, proto := testKey()

	err := a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Open, ObservedAt: time.Unix(1, 0),
	}, 1, 3)
	require.NoError(t, err)

	written := sink.snapshot()
	require.Len(t, written, 1)
	require.Equal(t, result.Open, written[0].State)
}

func TestAggregator_MergeNeverDowngrades(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	a := New(sink)
	address, port, proto := testKey()

	err := a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Filtered,
	}, 1, 3)
	require.NoError(t, err)
	require.Empty(t, sink.snapshot(), "a provisional state with retries remaining must not finalize")

	err = a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Open,
	}, 2, 3)
	require.NoError(t, err)

	got, ok := a.Get(result.Key{Address: address, Port: port, Protocol: proto})
	require.True(t, ok)
	require.Equal(t, result.Open, got.State)

	written := sink.snapshot()
	require.Len(t, written, 1)
	require.Equal(t, result.Open, written[0].State)
}

func TestAggregator_FinalizesOnRetryExhaustionWithoutDecisiveState(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	a := New(sink)
	address, port, proto := testKey()

	err := a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Filtered,
	}, 3, 3)
	require.NoError(t, err)

	written := sink.snapshot()
	require.Len(t, written, 1)
	require.Equal(t, result.Filtered, written[0].State)

	// Further observations for the same key are ignored once finalized.
	err = a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Open,
	}, 1, 3)
	require.NoError(t, err)
	require.Len(t, sink.snapshot(), 1)
}

func TestAggregator_DrainFlushesUnfinalizedEntries(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	a := New(sink)
	address, port, proto := testKey()

	err := a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.OpenFiltered,
	}, 1, 3)
	require.NoError(t, err)
	require.Empty(t, sink.snapshot())

	require.NoError(t, a.Drain(context.Background()))

	written := sink.snapshot()
	require.Len(t, written, 1)
	require.Equal(t, result.OpenFiltered, written[0].State)
}

func TestAggregator_ServiceInfoMergeFillsMissingFields(t *testing.T) {
	t.Parallel()
	a := New()
	address, port, proto := testKey()

	err := a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Filtered,
		Service: &result.ServiceInfo{Name: "https"},
	}, 1, 3)
	require.NoError(t, err)

	err = a.Observe(context.Background(), result.PortResult{
		Address: address, Port: port, Protocol: proto, State: result.Open,
		Service: &result.ServiceInfo{Name: "https", Product: "nginx", Version: "1.25"},
	}, 2, 3)
	require.NoError(t, err)

	got, ok := a.Get(result.Key{Address: address, Port: port, Protocol: proto})
	require.True(t, ok)
	require.Equal(t, "https", got.Service.Name)
	require.Equal(t, "nginx", got.Service.Product)
	require.Equal(t, "1.25", got.Service.Version)
}

func TestAggregator_ConcurrentObserveIsRace_Free(t *testing.T) {
	t.Parallel()
	a := New()
	address, port, proto := testKey()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			state := result.Filtered
			if n%7 == 0 {
				state = result.Open
			}
			_ = a.Observe(context.Background(), result.PortResult{
				Address: address, Port: port, Protocol: proto, State: state,
			}, 1, 50)
		}(i)
	}
	wg.Wait()

	got, ok := a.Get(result.Key{Address: address, Port: port, Protocol: proto})
	require.True(t, ok)
	require.Equal(t, result.Open, got.State)
}

func TestAggregator_SnapshotReturnsAllTrackedKeys(t *testing.T) {
	t.Parallel()
	a := New()
	addr1 := netip.MustParseAddr("198.51.100.7")
	addr2 := netip.MustParseAddr("198.51.100.8")

	require.NoError(t, a.Observe(context.Background(), result.PortResult{
		Address: addr1, Port: 80, Protocol: result.TCP, State: result.Open,
	}, 1, 3))
	require.NoError(t, a.Observe(context.Background(), result.PortResult{
		Address: addr2, Port: 22, Protocol: result.TCP, State: result.Filtered,
	}, 1, 3))

	snap := a.Snapshot()
	require.Len(t, snap, 2)
}
