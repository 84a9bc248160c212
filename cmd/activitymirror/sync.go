package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"activitymirror/internal/platform/logger"

	"activitymirror/internal/services/mirror/domain"
	mirrormod "activitymirror/internal/services/mirror/module"

	"github.com/spf13/cobra"
)

func newSyncCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [PATH]",
		Short: "Run a single sync pass and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, f, pathArg(args))
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "plan the pass without writing to GitHub")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the run report as JSON")
	return cmd
}

func runSync(cmd *cobra.Command, f *rootFlags, path string) error {
	s, err := loadSettings(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := wire(ctx, s, mirrormod.Options{DryRun: f.dryRun}, "sync")
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	run, err := a.sync.Sync(ctx)
	if err != nil {
		return err
	}
	if err := printReport(cmd.OutOrStdout(), run, f.json); err != nil {
		return err
	}
	if n := run.Failed(); n > 0 {
		logger.Get().Error().Str("run_id", run.RunID).Int("failed", n).Msg("sync pass finished with failures")
		return fmt.Errorf("%d of %d %w", n, len(run.Repos), errReposFailed)
	}
	return nil
}

// printReport writes the pass outcome as a table or as JSON
func printReport(w io.Writer, run domain.RunReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	mode := ""
	if run.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "run %s%s: %d sources, %d repositories\n", run.RunID, mode, run.Sources, len(run.Repos))
	if len(run.Repos) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTARGET\tSTATUS\tCOMMITS\tISSUES\tPUSHED\tERROR")
	for _, rr := range run.Repos {
		msg := ""
		if rr.Err != nil {
			msg = rr.Err.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			rr.Source, rr.Target, rr.Status, rr.Commits, rr.Issues, rr.Pushed, msg)
	}
	return tw.Flush()
}
