package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-dir>",
	Short: "Show the state of a run from its artifact directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	run, err := LoadRun(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:     %s\n", run.ID)
	fmt.Fprintf(out, "Input:   %s\n", run.InputImage)
	fmt.Fprintf(out, "Status:  %s\n", run.Status)
	fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Took:    %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}

	for _, it := range run.Iterations {
		line := fmt.Sprintf("  iter %02d  %-18s", it.Ordinal, it.Status)
		if score, ok := it.Overall(); ok {
			line += fmt.Sprintf("  %.2f / 10", score)
		}
		if n := len(it.Attempts); n > 1 {
			line += fmt.Sprintf("  (%d compile attempts)", n)
		}
		fmt.Fprintln(out, line)
	}

	if run.FinalTeX != "" {
		fmt.Fprintf(out, "Final:   %s\n", filepath.Join(args[0], run.FinalTeX))
	}
	return nil
}
