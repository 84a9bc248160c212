package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"activitymirror/internal/platform/config"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/settings"

	"activitymirror/internal/services/mirror/domain"
	mirrormod "activitymirror/internal/services/mirror/module"
	"activitymirror/internal/services/status"
	statusmod "activitymirror/internal/services/status/module"

	"github.com/spf13/cobra"
)

// defaultInterval applies when sync.interval is unset
const defaultInterval = time.Hour

func newServeCmd(f *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [PATH]",
		Short: "Sync on an interval and expose the status server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(pathArg(args))
			if err != nil {
				return err
			}
			if addr != "" {
				s.Status.Addr = addr
			}
			return runServe(cmd.Context(), s, f)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "status listen address, overrides status.addr")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "plan passes without writing to GitHub")
	return cmd
}

func runServe(parent context.Context, s *settings.Settings, f *rootFlags) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := wire(ctx, s, mirrormod.Options{DryRun: f.dryRun}, "serve")
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	log := logger.Named("serve")
	interval := s.Sync.Interval.Duration
	if interval <= 0 {
		interval = defaultInterval
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick(ctx, interval, a.sync, a.status)
	}()

	cfg := config.New().Prefix("CORE_MIRROR_STATUS_")
	mod := statusmod.New(ctx, a.deps, statusmod.Ports{Sync: a.sync, Status: a.status, History: a.journal})
	opt := status.Options{
		Addr:        s.Status.Addr,
		CORSOrigins: cfg.MayCSV("CORS_ORIGINS", nil),
		Timeout:     cfg.MayDuration("TIMEOUT", 0),
		Slow:        cfg.MayDuration("SLOW", 0),
	}
	log.Info().Dur("interval", interval).Bool("journal", a.journal.Enabled()).Msg("serving")

	err = status.Serve(ctx, opt, mod)
	stop()
	wg.Wait()
	return err
}

// tick runs a pass immediately and then every interval until ctx is done
// a tick that lands while a pass is in flight is skipped
func tick(ctx context.Context, every time.Duration, sp domain.SyncPort, st domain.StatusPort) {
	log := logger.Named("serve")
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		if st.Running() {
			log.Debug().Msg("pass in flight, skipping tick")
		} else if run, err := sp.Sync(ctx); err != nil {
			log.Error().Err(err).Msg("sync pass")
		} else {
			log.Info().
				Str("run_id", run.RunID).
				Int("repos", len(run.Repos)).
				Int("failed", run.Failed()).
				Msg("sync pass done")
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
