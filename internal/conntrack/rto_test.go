package conntrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRTOEstimator_FirstSampleSeedsVariance(t *testing.T) {
	t.Parallel()

	e := NewRTOEstimatorBounded(0, 0)
	e.Update(200 * time.Millisecond)
	require.Equal(t, 200*time.Millisecond, e.SRTT())
	require.Equal(t, 100*time.Millisecond, e.RTTVAR())
	require.Greater(t, e.RTO(), e.SRTT())
}

func TestRTOEstimator_ConvergesWithStableSamples(t *testing.T) {
	t.Parallel()

	e := NewRTOEstimatorBounded(0, 0)
	for i := 0; i < 50; i++ {
		e.Update(100 * time.Millisecond)
	}
	require.InDelta(t, 100*time.Millisecond, e.SRTT(), float64(2*time.Millisecond))
	require.InDelta(t, 0, e.RTTVAR(), float64(2*time.Millisecond))
}

func TestRTOEstimator_ClampsToBounds(t *testing.T) {
	t.Parallel()

	e := NewRTOEstimatorBounded(50*time.Millisecond, 500*time.Millisecond)
	e.Update(10 * time.Millisecond)
	require.GreaterOrEqual(t, e.RTO(), 50*time.Millisecond)

	e2 := NewRTOEstimatorBounded(50*time.Millisecond, 500*time.Millisecond)
	e2.Update(10 * time.Second)
	require.LessOrEqual(t, e2.RTO(), 500*time.Millisecond)
}
