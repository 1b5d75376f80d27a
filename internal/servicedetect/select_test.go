package servicedetect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectProbes_NullFirstThenRarityAscending(t *testing.T) {
	t.Parallel()

	probes := []Probe{
		{Name: "NULL", Proto: ProtoTCP, Universal: true, Rarity: 1},
		{Name: "High", Proto: ProtoTCP, Rarity: 8, Ports: map[uint16]bool{80: true}},
		{Name: "Low", Proto: ProtoTCP, Rarity: 2, Ports: map[uint16]bool{80: true}},
		{Name: "WrongPort", Proto: ProtoTCP, Rarity: 1, Ports: map[uint16]bool{22: true}},
	}

	selected := SelectProbes(probes, 80, 9, ProtoTCP)
	require.Len(t, selected, 3)
	require.Equal(t, "NULL", selected[0].Name)
	require.Equal(t, "Low", selected[1].Name)
	require.Equal(t, "High", selected[2].Name)
}

func TestSelectProbes_RarityAboveIntensityExcluded(t *testing.T) {
	t.Parallel()

	probes := []Probe{
		{Name: "Rare", Proto: ProtoTCP, Rarity: 9, Universal: true},
	}
	selected := SelectProbes(probes, 80, 3, ProtoTCP)
	require.Empty(t, selected)
}

func TestTimeout_Table(t *testing.T) {
	t.Parallel()

	require.Equal(t, 500*time.Millisecond, Timeout(443))
	require.Equal(t, time.Second, Timeout(22))
	require.Equal(t, 5*time.Second, Timeout(12345))
}
