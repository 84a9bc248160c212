package main

import (
	"context"
	"time"

	"activitymirror/internal/modkit"
	"activitymirror/internal/platform/config"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/platform/store"
	"activitymirror/internal/settings"

	journal "activitymirror/internal/services/journal/service"
	"activitymirror/internal/services/mirror/domain"
	mirrormod "activitymirror/internal/services/mirror/module"
)

// app is everything a sync or serve run needs, torn down by close
type app struct {
	deps    modkit.Deps
	store   *store.Store
	journal *journal.Journal
	mirror  *mirrormod.Module
	sync    domain.SyncPort
	status  domain.StatusPort
}

// storeConfig enables a journal backend for every configured url
func storeConfig(s *settings.Settings, cfg config.Conf) store.Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	ch := cfg.Prefix("SERVICE_CH_")
	return store.Config{
		AppName: "activitymirror",
		PG: store.PGConfig{
			Enabled:     s.Journal.PostgresURL != "",
			URL:         s.Journal.PostgresURL,
			MaxConns:    int32(pg.MayInt("MAX_CONNS", 2)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:     s.Journal.ClickhouseURL != "",
			URL:         s.Journal.ClickhouseURL,
			DialTimeout: ch.MayDuration("DIAL_TIMEOUT", 5*time.Second),
		},
	}
}

func wire(ctx context.Context, s *settings.Settings, overrides mirrormod.Options, role string) (*app, error) {
	cfg := config.New()
	log := logger.Get()

	st, err := store.Open(ctx, storeConfig(s, cfg), store.WithLogger(*log), store.WithRole(role))
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(ctx, st)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	deps := modkit.Deps{Log: *log, Cfg: cfg, Settings: s, PG: st.PG, CH: st.CH}
	m, err := mirrormod.New(deps, overrides, j)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	ports := modkit.MustPortsOf[mirrormod.Ports](m)

	log.Debug().
		Bool("journal", j.Enabled()).
		Str("workdir", m.Options().Workdir).
		Bool("dry_run", m.Options().DryRun).
		Msg("mirror wired")
	return &app{deps: deps, store: st, journal: j, mirror: m, sync: ports.Sync, status: ports.Status}, nil
}

func (a *app) close(ctx context.Context) {
	a.mirror.Close()
	if err := a.store.Close(ctx); err != nil {
		logger.Get().Warn().Err(err).Msg("closing journal store")
	}
}
