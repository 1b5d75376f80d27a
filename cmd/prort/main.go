// Command prort is a network reconnaissance engine: host discovery, port
// scanning, and service/OS fingerprinting driven from the command line
// (spec.md §6).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/doublegate/ProRT-IP-sub009/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version, cli.Commit, cli.Date = version, commit, date

	root := cli.NewRootCommand()
	err := root.Execute()
	switch {
	case err == nil:
		os.Exit(0)
	case errors.Is(err, cli.ErrCanceled):
		os.Exit(130)
	case errors.As(err, new(*cli.ErrInvalidUsage)):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
