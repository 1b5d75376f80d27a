package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_VerboseEnablesDebugLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(Options{Verbose: true, NoColor: true, Writer: &buf})

	log.Debug("probe sent", "target", "198.51.100.7", "port", 443)
	require.Contains(t, buf.String(), "probe sent")
	require.Contains(t, buf.String(), "443")
}

func TestNew_DefaultLevelSuppressesDebug(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(Options{NoColor: true, Writer: &buf})

	log.Debug("should not appear")
	require.Empty(t, buf.String())

	log.Info("scan started")
	require.Contains(t, buf.String(), "scan started")
}

func TestNew_BlankStringAttrsElided(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(Options{NoColor: true, Writer: &buf})

	log.Info("result", slog.String("service", ""))
	require.NotContains(t, buf.String(), "service=")
}
