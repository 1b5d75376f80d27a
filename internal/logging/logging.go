// Package logging constructs the engine's single *slog.Logger, colorized
// via github.com/lmittmann/tint for interactive runs, the way
// telemetry/global-monitor/cmd/global-monitor/main.go's newLogger does.
// Every other package accepts a *slog.Logger (nil-safe) rather than
// reaching for a package-global logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options configures the logger constructed by New.
type Options struct {
	// Verbose selects slog.LevelDebug over the default slog.LevelInfo.
	Verbose bool
	// NoColor disables ANSI color codes, e.g. when output is piped or
	// JSON output mode is active and stderr is reserved for diagnostics.
	NoColor bool
	// Writer is where log lines are written; defaults to os.Stderr in
	// New, kept overridable here for tests.
	Writer io.Writer
}

// New builds the engine's logger: tint's human-readable handler with
// millisecond-precision UTC timestamps and blank string attributes
// elided, matching the teacher's newLogger.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: opts.NoColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(formatRFC3339Millis(a.Value.Time().UTC()))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	return t.Format("2006-01-02T15:04:05.000Z")
}
