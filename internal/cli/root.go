package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version info, set by -ldflags from cmd/prort/main.go the way the
// teacher's cmd/collector/main.go sets version/commit/date.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand builds the prort command tree (spec.md §6 CLI surface).
// cli is a library package other callers construct, so the command and
// its flags are built fresh here rather than owned by package-level vars
// the way the teacher's cmd/collector/main.go does for its single-binary
// main package.
func NewRootCommand() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "prort [flags] target [target...]",
		Short: "Network reconnaissance engine: host discovery, port scanning, service and OS fingerprinting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, f, args)
		},
		SilenceUsage: true,
	}
	registerFlags(root, f)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "prort %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
	root.AddCommand(versionCmd)

	return root
}
