// Package service is the synchronization engine: resolve each source repository
// to a mirror, then replay activity newer than the mirror's watermark
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"activitymirror/internal/core/activity"
	"activitymirror/internal/core/redact"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/services/mirror/domain"

	"github.com/google/uuid"
)

// Config carries the destination account and run knobs
type Config struct {
	// Username owns every mirror repository
	Username string
	// Token is embedded in http remotes when PushHTTP is set
	Token string
	// Email is the commit identity; empty means discover the noreply address
	Email    string
	Level    redact.Level
	PushHTTP bool
	DryRun   bool
}

// Deps are the ports the engine drives
type Deps struct {
	Sources []domain.Source
	Forge   domain.Forge
	Mirror  domain.Mirror
	// Journal is optional
	Journal domain.Journal
}

// Svc implements domain.SyncPort and domain.StatusPort
type Svc struct {
	deps   Deps
	cfg    Config
	policy redact.Policy
	log    logger.Logger

	email string
	mu    sync.Mutex
	busy  atomic.Bool
	last  atomic.Pointer[domain.RunReport]

	now   func() time.Time
	newID func() string
}

var (
	_ domain.SyncPort   = (*Svc)(nil)
	_ domain.StatusPort = (*Svc)(nil)
)

// New constructs the engine; Forge and Mirror are required
func New(deps Deps, cfg Config) *Svc {
	if deps.Forge == nil || deps.Mirror == nil {
		panic("mirror.Service requires a Forge and a Mirror")
	}
	if deps.Journal == nil {
		deps.Journal = nopJournal{}
	}
	return &Svc{
		deps:   deps,
		cfg:    cfg,
		policy: redact.New(cfg.Level),
		log:    *logger.Named("mirror"),
		email:  cfg.Email,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Running reports whether a pass is in flight
func (s *Svc) Running() bool { return s.busy.Load() }

// Last returns the most recent completed pass
func (s *Svc) Last() (domain.RunReport, bool) {
	if r := s.last.Load(); r != nil {
		return *r, true
	}
	return domain.RunReport{}, false
}

// Sync runs one pass over every source; passes never overlap
// a returned error means the pass could not run at all, per repository
// failures are reported in the RunReport
func (s *Svc) Sync(ctx context.Context) (domain.RunReport, error) {
	if !s.mu.TryLock() {
		return domain.RunReport{}, perr.Conflictf("a sync pass is already running")
	}
	defer s.mu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)

	run := domain.RunReport{RunID: s.newID(), Started: s.now().UTC(), DryRun: s.cfg.DryRun}
	ctx = logger.WithRun(ctx, run.RunID)
	log := logger.C(ctx)

	if err := s.identity(ctx); err != nil {
		return run, err
	}
	s.journal(ctx, "begin", s.deps.Journal.Begin(ctx, run))

	groups, err := s.fetch(ctx, &run)
	if err != nil {
		run.Finished = s.now().UTC()
		s.journal(ctx, "finish", s.deps.Journal.Finish(ctx, run))
		return run, err
	}
	log.Info().Int("repos", groups.Len()).Int("activities", groups.Activities()).Msg("activity collected")

	for _, grp := range groups.List() {
		if err := ctx.Err(); err != nil {
			run.Finished = s.now().UTC()
			s.journal(ctx, "finish", s.deps.Journal.Finish(context.WithoutCancel(ctx), run))
			return run, err
		}
		rr := s.syncRepo(ctx, grp)
		rr.Seq = len(run.Repos) + 1
		run.Repos = append(run.Repos, rr)
		s.journal(ctx, "record", s.deps.Journal.Record(ctx, run.RunID, rr))
	}

	run.Finished = s.now().UTC()
	s.journal(ctx, "finish", s.deps.Journal.Finish(ctx, run))
	s.last.Store(&run)

	counts := run.Counts()
	log.Info().
		Int("synced", counts[domain.StatusSynced]).
		Int("created", counts[domain.StatusCreated]).
		Int("up_to_date", counts[domain.StatusUpToDate]).
		Int("skipped", counts[domain.StatusSkippedForeign]+counts[domain.StatusSkippedError]).
		Int("failed", counts[domain.StatusFailed]).
		Dur("took", run.Finished.Sub(run.Started)).
		Msg("sync pass finished")
	return run, nil
}

// identity resolves the commit email once per process
func (s *Svc) identity(ctx context.Context) error {
	if s.email != "" {
		return nil
	}
	e, err := s.deps.Forge.PrimaryEmail(ctx)
	if err != nil {
		return perr.WithOp(err, "mirror.identity")
	}
	s.email = e
	logger.C(ctx).Info().Str("email", e).Msg("using account noreply address")
	return nil
}

// fetch merges every source; a failing source is logged and skipped
// the pass fails only when no source could be read
func (s *Svc) fetch(ctx context.Context, run *domain.RunReport) (*activity.Groups, error) {
	all := activity.NewGroups()
	var firstErr error
	ok := 0
	for _, src := range s.deps.Sources {
		g, err := src.Fetch(ctx)
		if err != nil {
			logger.C(ctx).Error().Err(err).Str("source", src.Name()).Msg("source fetch failed")
			run.Errors = append(run.Errors, perr.WireFrom(perr.WithOp(err, src.Name())))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok++
		all.Merge(g)
	}
	run.Sources = ok
	if ok == 0 && firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}

func (s *Svc) syncRepo(ctx context.Context, grp *activity.Group) domain.RepoReport {
	ctx = logger.WithRepo(ctx, grp.Repo.FullName)
	rr := domain.RepoReport{Source: grp.Repo.FullName}

	res := s.resolve(ctx, grp)
	rr.Target = res.target
	if res.skip != "" {
		rr.Status = res.skip
		if res.err != nil {
			w := perr.WireFrom(res.err)
			rr.Err = &w
		}
		return rr
	}

	if err := s.replay(ctx, grp, res, &rr); err != nil {
		logger.C(ctx).Error().Err(err).Str("target", rr.Target).Msg("replay failed")
		w := perr.WireFrom(err)
		rr.Status, rr.Err = domain.StatusFailed, &w
		return rr
	}

	switch {
	case res.created:
		rr.Status = domain.StatusCreated
	case rr.Commits+rr.Issues == 0:
		rr.Status = domain.StatusUpToDate
	default:
		rr.Status = domain.StatusSynced
	}
	return rr
}

func (s *Svc) journal(ctx context.Context, step string, err error) {
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("step", step).Msg("journal write failed")
	}
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context, domain.RunReport) error           { return nil }
func (nopJournal) Record(context.Context, string, domain.RepoReport) error { return nil }
func (nopJournal) Finish(context.Context, domain.RunReport) error          { return nil }
