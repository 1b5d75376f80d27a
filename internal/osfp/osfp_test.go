package osfp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSequence_HasSixteenProbes(t *testing.T) {
	t.Parallel()
	specs := Sequence(80, 81)
	require.Len(t, specs, int(probeCount))
}

func TestSequence_SEQProbesSpaced100ms(t *testing.T) {
	t.Parallel()
	specs := Sequence(80, 81)
	for i := 0; i < 6; i++ {
		require.Equal(t, time.Duration(i)*SeqProbeSpacing, specs[i].Delay)
	}
}

func TestFingerprinter_RequiresBothPorts(t *testing.T) {
	t.Parallel()
	fp := NewFingerprinter(nil)
	_, err := fp.Plan(0, 81)
	require.ErrorIs(t, err, ErrMissingPorts)
	_, err = fp.Plan(80, 0)
	require.ErrorIs(t, err, ErrMissingPorts)

	specs, err := fp.Plan(80, 81)
	require.NoError(t, err)
	require.NotEmpty(t, specs)
}

func syntheticLinuxObservations() map[ProbeID]Observation {
	base := time.Unix(1000, 0)
	obs := make(map[ProbeID]Observation)
	isn := uint32(1_000_000)
	ipid := uint16(100)
	opts := []TCPOption{{Kind: 2, MSS: 1460}, {Kind: 3, Wscale: 7}, {Kind: 4}, {Kind: 8}}
	for i := 0; i < 6; i++ {
		id := ProbeID(i)
		isn += 1_000_000
		ipid++
		obs[id] = Observation{
			ID: id, Responded: true,
			SentAt: base.Add(time.Duration(i) * SeqProbeSpacing),
			RecvAt: base.Add(time.Duration(i)*SeqProbeSpacing + 10*time.Millisecond),
			ISN:    isn, IPID: ipid, Window: 29200, DF: true, TTL: 64, Options: opts,
		}
	}
	obs[ProbeIE1] = Observation{Responded: true, ICMPReplied: true, ICMPTTL: 64, IPID: ipid + 1}
	obs[ProbeIE2] = Observation{Responded: true, ICMPReplied: true, ICMPTTL: 64, ICMPCode: 0, IPID: ipid + 2}
	obs[ProbeECN] = Observation{Responded: true, TCPFlags: TCPFlags{SYN: true, ACK: true, ECE: true}, Window: 5792, DF: true, TTL: 64}
	for _, id := range []ProbeID{ProbeT2, ProbeT3, ProbeT4} {
		obs[id] = Observation{Responded: true, TCPFlags: TCPFlags{RST: true, ACK: true}, DF: true, TTL: 64}
	}
	ipid += 3
	for _, id := range []ProbeID{ProbeT5, ProbeT6, ProbeT7} {
		ipid++
		obs[id] = Observation{Responded: true, TCPFlags: TCPFlags{RST: true}, DF: true, TTL: 64, IPID: ipid}
	}
	obs[ProbeU1] = Observation{ICMPUnreachable: true, EchoedIPTotalLenOK: true, EchoedIPIDEcho: true, EchoedUDPChecksumOK: true, EchoedUDPLenOK: true}
	return obs
}

func TestExtract_ProducesMonotonicISNSeries(t *testing.T) {
	t.Parallel()
	bundle := Extract(syntheticLinuxObservations())
	require.Equal(t, uint32(1_000_000), bundle.SEQ.GCD)
	require.Equal(t, IDIncremental, bundle.SEQ.TI)
	require.Equal(t, IDIncremental, bundle.SEQ.CI)
	require.Equal(t, IDIncremental, bundle.SEQ.II)
	require.True(t, bundle.SEQ.TSGen)
	require.Len(t, bundle.T, 6)
}

func TestMatch_ConfidentOnCloseSignature(t *testing.T) {
	t.Parallel()
	bundle := Extract(syntheticLinuxObservations())
	result := Match(bundle, DefaultCorpus)
	require.NotEmpty(t, result.Candidates)
	require.Equal(t, "Linux 5.x", result.Candidates[0].Signature.Name)
}

func TestMatch_EmptyCorpusYieldsNoCandidates(t *testing.T) {
	t.Parallel()
	bundle := Extract(syntheticLinuxObservations())
	result := Match(bundle, nil)
	require.Empty(t, result.Candidates)
	require.False(t, result.Confident)
}

func TestClassifyIPIDSeries(t *testing.T) {
	t.Parallel()
	require.Equal(t, IDZero, classifyIPIDSeries([]uint16{0, 0, 0}))
	require.Equal(t, IDIncremental, classifyIPIDSeries([]uint16{100, 101, 102}))
	require.Equal(t, IDUnknown, classifyIPIDSeries([]uint16{5}))
}

func TestEncodeOptions(t *testing.T) {
	t.Parallel()
	got := encodeOptions([]TCPOption{{Kind: 2, MSS: 1460}, {Kind: 4}, {Kind: 1}, {Kind: 3, Wscale: 7}, {Kind: 1}, {Kind: 8}})
	require.Equal(t, "M1460SNW7NT", got)
}
