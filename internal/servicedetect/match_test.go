package servicedetect

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch_HardMatchExtractsVersion(t *testing.T) {
	t.Parallel()

	probes := []Probe{{
		Name: "NULL",
		MatchRules: []MatchRule{
			{
				ServiceName: "ftp",
				Pattern:     regexp.MustCompile(`^220 FooFTPD (\d+\.\d+) ready`),
				Extract:     Extractors{Product: "FooFTPD", Version: "$1"},
			},
		},
	}}

	info, soft := Match(probes, []byte("220 FooFTPD 3.2 ready\r\n"))
	require.Empty(t, soft)
	require.NotNil(t, info)
	require.Equal(t, "ftp", info.Name)
	require.Equal(t, "FooFTPD", info.Product)
	require.Equal(t, "3.2", info.Version)
}

func TestMatch_SoftMatchDoesNotStopScanning(t *testing.T) {
	t.Parallel()

	probes := []Probe{{
		Name: "GenericLines",
		MatchRules: []MatchRule{
			{ServiceName: "http", Pattern: regexp.MustCompile(`^HTTP/1\.`), Soft: true},
		},
	}}

	info, soft := Match(probes, []byte("HTTP/1.1 200 OK\r\n"))
	require.Nil(t, info)
	require.Equal(t, "http", soft)
}

func TestMatch_NoMatch(t *testing.T) {
	t.Parallel()

	probes := []Probe{{MatchRules: []MatchRule{
		{ServiceName: "x", Pattern: regexp.MustCompile(`^ZZZ`)},
	}}}
	info, soft := Match(probes, []byte("unrelated banner"))
	require.Nil(t, info)
	require.Empty(t, soft)
}
