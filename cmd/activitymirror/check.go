package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [PATH]",
		Short: "Load and validate the settings file without syncing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(pathArg(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: ok\n", s.Path())
			fmt.Fprintf(out, "  github user:  %s\n", s.GitHub.Username)
			fmt.Fprintf(out, "  redact level: %s\n", s.GitHub.Level())
			fmt.Fprintf(out, "  push method:  %s\n", s.GitHub.PushMethod)
			for i, sv := range s.Services {
				fmt.Fprintf(out, "  service %d:    %s %s (%s)\n", i, sv.ServiceType, sv.URL, sv.Username)
			}
			return nil
		},
	}
}
