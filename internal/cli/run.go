package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/doublegate/ProRT-IP-sub009/internal/logging"
)

// ErrCanceled wraps a run that ended via user cancellation (Ctrl-C /
// SIGTERM), distinguished so main.go can map it to exit code 130 (spec.md
// §6: "Exit codes: 0 success, 1 fatal error, 2 invalid usage, 130
// user-canceled").
var ErrCanceled = errors.New("cli: scan canceled")

// runScan is the root command's RunE: parse flags into a scanPlan, run the
// orchestrator to completion or cancellation, and render output.
func runScan(cmd *cobra.Command, f *flags, args []string) error {
	log := logging.New(logging.Options{Verbose: f.verbose})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	plan, err := buildScan(ctx, f, args, log)
	if err != nil {
		return err
	}
	defer func() {
		if plan.sender != nil {
			_ = plan.sender.Close()
		}
	}()

	if plan.needsCapture {
		go func() {
			if err := plan.sender.Start(ctx, plan.filter); err != nil {
				log.Error("capture loop exited", "error", err)
			}
		}()
	}

	summary, runErr := plan.orc.Run(ctx, plan.iterator)

	if saveErr := plan.saveResume(); saveErr != nil {
		log.Warn("failed to save resume state", "error", saveErr)
	}

	view := summaryView{ScanID: summary.ScanID, Results: summary.Results, Canceled: summary.Canceled}
	out := cmd.OutOrStdout()
	if f.outputFormat == "json" {
		if err := writeJSON(out, view); err != nil {
			log.Error("failed to write JSON output", "error", err)
		}
	} else {
		writeText(out, view)
	}

	switch {
	case runErr != nil:
		return runErr
	case summary.Canceled:
		return ErrCanceled
	default:
		return nil
	}
}
