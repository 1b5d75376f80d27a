package sink

import (
	"bufio"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

func sampleResult() result.PortResult {
	return result.PortResult{
		Address:    netip.MustParseAddr("198.51.100.7"),
		Port:       443,
		Protocol:   result.TCP,
		State:      result.Open,
		Service:    &result.ServiceInfo{Name: "https", Product: "nginx"},
		ObservedAt: time.Unix(1700000000, 0),
	}
}

func TestMemory_CollectsWrittenResults(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	require.NoError(t, m.WritePortResult(context.Background(), sampleResult()))
	require.Equal(t, 1, m.Len())
	require.Equal(t, result.Open, m.Results()[0].State)
}

func TestJSONL_WritesCompressedNewlineDelimitedRecords(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "results.jsonl.zst")

	j, err := NewJSONL(path)
	require.NoError(t, err)
	require.NoError(t, j.WritePortResult(context.Background(), sampleResult()))
	require.NoError(t, j.WritePortResult(context.Background(), sampleResult()))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"address":"198.51.100.7"`)
	require.Contains(t, lines[0], `"state":"open"`)
}
