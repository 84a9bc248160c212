// Package service fans run reports out to the enabled journal backends
package service

import (
	"context"
	"errors"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/platform/store"
	"activitymirror/internal/services/journal/repo"
	"activitymirror/internal/services/mirror/domain"
)

// Journal implements domain.Journal over zero or more recorders
type Journal struct {
	recs []repo.Recorder
	hist repo.History
	log  logger.Logger

	now       func() time.Time
	retryWait time.Duration
}

var _ domain.Journal = (*Journal)(nil)

// New wraps recs; the first recorder that can read history serves Recent
func New(recs ...repo.Recorder) *Journal {
	j := &Journal{
		log:       *logger.Named("journal"),
		now:       time.Now,
		retryWait: 250 * time.Millisecond,
	}
	for _, r := range recs {
		if r == nil {
			continue
		}
		j.recs = append(j.recs, r)
		if h, ok := r.(repo.History); ok && j.hist == nil {
			j.hist = h
		}
	}
	return j
}

// Open builds recorders for the backends wired on st and ensures their schema
func Open(ctx context.Context, st *store.Store) (*Journal, error) {
	var recs []repo.Recorder
	if st != nil && st.PG != nil {
		recs = append(recs, repo.NewPG(st.PG))
	}
	if st != nil && st.CH != nil {
		recs = append(recs, repo.NewCH(st.CH))
	}
	j := New(recs...)
	for _, r := range j.recs {
		if err := r.EnsureSchema(ctx); err != nil {
			return nil, perr.WithOp(err, "journal."+r.Name())
		}
	}
	return j, nil
}

// Enabled reports whether any backend is recording
func (j *Journal) Enabled() bool { return len(j.recs) > 0 }

// Begin implements domain.Journal
func (j *Journal) Begin(ctx context.Context, run domain.RunReport) error {
	return j.each(ctx, "begin", func(r repo.Recorder) error { return r.BeginRun(ctx, run) })
}

// Record implements domain.Journal
func (j *Journal) Record(ctx context.Context, runID string, rr domain.RepoReport) error {
	at := j.now().UTC()
	return j.each(ctx, "record", func(r repo.Recorder) error { return r.RecordRepo(ctx, runID, at, rr) })
}

// Finish implements domain.Journal
func (j *Journal) Finish(ctx context.Context, run domain.RunReport) error {
	return j.each(ctx, "finish", func(r repo.Recorder) error { return r.FinishRun(ctx, run) })
}

// Recent lists past runs, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]repo.RunSummary, error) {
	if j.hist == nil {
		return nil, perr.NotImplementedf("run history needs the postgres journal")
	}
	return j.hist.Recent(ctx, limit)
}

// Run loads one past run with its repository results
func (j *Journal) Run(ctx context.Context, runID string) (repo.RunDetail, error) {
	if j.hist == nil {
		return repo.RunDetail{}, perr.NotImplementedf("run history needs the postgres journal")
	}
	return j.hist.Run(ctx, runID)
}

// each runs fn on every recorder; transient failures get one retry
// a failing backend never stops the others
func (j *Journal) each(ctx context.Context, step string, fn func(repo.Recorder) error) error {
	var errs []error
	for _, r := range j.recs {
		err := fn(r)
		if err != nil && perr.Retryable(err) {
			j.log.Debug().Err(err).Str("backend", r.Name()).Str("step", step).Msg("retrying journal write")
			select {
			case <-ctx.Done():
			case <-time.After(j.retryWait):
				err = fn(r)
			}
		}
		if err != nil {
			errs = append(errs, perr.WithOp(perr.Wrapf(err, perr.CodeOf(err), "%s %s", r.Name(), step), "journal."+step))
		}
	}
	return errors.Join(errs...)
}
