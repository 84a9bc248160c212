package main

import (
	"errors"
	"fmt"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/settings"

	"github.com/spf13/cobra"
)

// exit codes
const (
	exitErr    = 1
	exitConfig = 2
	exitFailed = 3
)

// errReposFailed marks a pass that completed with failed repositories
var errReposFailed = errors.New("repositories failed")

type rootFlags struct {
	logLevel  string
	logFormat string
	dryRun    bool
	json      bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "activitymirror [PATH]",
		Short: "Mirror forge activity onto GitHub",
		Long: `activitymirror replays commits and issues from self-hosted Gitea and
Forgejo accounts into mirror repositories on GitHub, so contribution
activity shows up on the GitHub profile.

PATH is the settings file (TOML or YAML) and defaults to settings.toml.
Running without a subcommand performs a single sync pass.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Init(logger.FromEnv().Override(f.logLevel, f.logFormat))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, f, pathArg(args))
		},
	}

	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&f.logFormat, "log-format", "", "log format (console, json)")
	root.Flags().BoolVar(&f.dryRun, "dry-run", false, "plan the pass without writing to GitHub")
	root.Flags().BoolVar(&f.json, "json", false, "print the run report as JSON")

	root.AddCommand(newSyncCmd(f), newServeCmd(f), newCheckCmd(), newVersionCmd())
	return root
}

func pathArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return settings.DefaultPath
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errReposFailed):
		return exitFailed
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeConfig, perr.ErrorCodeValidation, perr.ErrorCodeNotImplemented:
		return exitConfig
	}
	return exitErr
}

func loadSettings(path string) (*settings.Settings, error) {
	s, err := settings.Load(path)
	if err != nil {
		if f, ok := perr.As(err); ok && f.Field() != "" {
			return nil, fmt.Errorf("%s: %w", f.Field(), err)
		}
		return nil, err
	}
	return s, nil
}
