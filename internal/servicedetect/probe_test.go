package servicedetect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDB = `
# comment line
Exclude 9100-9107
Probe TCP NULL q||
rarity 1
match ftp m/^220.*FTP server ready/i p/FooFTPD/ v/$1/
Probe TCP GenericLines q|\r\n\r\n|
rarity 3
ports 80,443,8000-8010
softmatch http m/^HTTP\/1\./i
match http m/^HTTP\/1\.1 (\d+) OK/i p/ExampleHTTPD/ v/$1/
Probe UDP DNSVersionBindReq q|\0\0\x10\0|
rarity 5
ports 53
match dns m/version\.bind/i
`

func TestParseProbes_ParsesDirectives(t *testing.T) {
	t.Parallel()

	probes, err := ParseProbes(sampleDB)
	require.NoError(t, err)
	require.Len(t, probes, 3)

	null := probes[0]
	require.Equal(t, "NULL", null.Name)
	require.True(t, null.Universal)
	require.Equal(t, 1, null.Rarity)
	require.Len(t, null.MatchRules, 1)
	require.Equal(t, "ftp", null.MatchRules[0].ServiceName)

	generic := probes[1]
	require.Equal(t, []byte("\r\n\r\n"), generic.Payload)
	require.True(t, generic.Ports[80])
	require.True(t, generic.Ports[8005])
	require.Len(t, generic.MatchRules, 2)
	require.True(t, generic.MatchRules[0].Soft)
	require.False(t, generic.MatchRules[1].Soft)

	dns := probes[2]
	require.Equal(t, ProtoUDP, dns.Proto)
	require.Equal(t, []byte{0, 0, 0x10, 0}, dns.Payload)
}

func TestDecodeProbeString_Escapes(t *testing.T) {
	t.Parallel()

	out, err := decodeProbeString(`q|\r\n\t\0\x41|`)
	require.NoError(t, err)
	require.Equal(t, []byte{'\r', '\n', '\t', 0, 'A'}, out)
}

func TestParseProbes_RejectsMatchBeforeProbe(t *testing.T) {
	t.Parallel()

	_, err := ParseProbes("match ftp m/x/\n")
	require.Error(t, err)
}
