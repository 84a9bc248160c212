package repo

import (
	"context"
	"encoding/json"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/store"
	ptime "activitymirror/internal/platform/time"
	"activitymirror/internal/services/mirror/domain"

	"github.com/google/uuid"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS mirror_runs (
	run_id      uuid PRIMARY KEY,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz,
	dry_run     boolean NOT NULL DEFAULT false,
	sources     integer NOT NULL DEFAULT 0,
	repos       integer NOT NULL DEFAULT 0,
	failed      integer NOT NULL DEFAULT 0,
	errors      jsonb NOT NULL DEFAULT '[]'::jsonb
);
CREATE TABLE IF NOT EXISTS mirror_repo_results (
	run_id      uuid NOT NULL REFERENCES mirror_runs(run_id) ON DELETE CASCADE,
	seq         integer NOT NULL,
	source      text NOT NULL,
	target      text NOT NULL DEFAULT '',
	status      text NOT NULL,
	watermark   timestamptz,
	commits     integer NOT NULL DEFAULT 0,
	issues      integer NOT NULL DEFAULT 0,
	duplicates  integer NOT NULL DEFAULT 0,
	pushed      integer NOT NULL DEFAULT 0,
	error_kind  text NOT NULL DEFAULT '',
	error       text NOT NULL DEFAULT '',
	recorded_at timestamptz NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS mirror_runs_started_idx ON mirror_runs (started_at DESC);
`

// PG records runs in postgres
type PG struct{ q store.TxRunner }

// NewPG binds the postgres recorder to q
func NewPG(q store.TxRunner) *PG {
	if q == nil {
		panic("journal: nil postgres runner")
	}
	return &PG{q: q}
}

var (
	_ Recorder = (*PG)(nil)
	_ History  = (*PG)(nil)
)

// Name implements Recorder
func (*PG) Name() string { return "pg" }

// EnsureSchema creates the journal tables when missing
func (p *PG) EnsureSchema(ctx context.Context) error {
	err := p.q.Tx(ctx, func(q store.RowQuerier) error {
		_, err := q.Exec(ctx, pgSchema)
		return err
	})
	return perr.FromPostgres(err, "ensure journal schema")
}

// BeginRun inserts the run row; a repeated id is ignored
func (p *PG) BeginRun(ctx context.Context, run domain.RunReport) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO mirror_runs (run_id, started_at, dry_run)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO NOTHING`,
		run.RunID, run.Started.UTC(), run.DryRun,
	)
	return perr.FromPostgres(err, "insert mirror run")
}

// RecordRepo upserts one repository result keyed by its sequence in the run
func (p *PG) RecordRepo(ctx context.Context, runID string, at time.Time, r domain.RepoReport) error {
	kind, msg := errKind(r)
	_, err := p.q.Exec(ctx, `
		INSERT INTO mirror_repo_results
			(run_id, source, target, status, watermark, commits, issues, duplicates, pushed, error_kind, error, recorded_at, seq)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (run_id, seq) DO UPDATE SET
			source = EXCLUDED.source,
			target = EXCLUDED.target,
			status = EXCLUDED.status,
			watermark = EXCLUDED.watermark,
			commits = EXCLUDED.commits,
			issues = EXCLUDED.issues,
			duplicates = EXCLUDED.duplicates,
			pushed = EXCLUDED.pushed,
			error_kind = EXCLUDED.error_kind,
			error = EXCLUDED.error,
			recorded_at = EXCLUDED.recorded_at`,
		runID, r.Source, r.Target, string(r.Status), ptime.Ptr(r.Watermark),
		r.Commits, r.Issues, r.Duplicates, r.Pushed, kind, msg, at.UTC(), r.Seq,
	)
	return perr.FromPostgres(err, "record mirror repo result")
}

// FinishRun closes the run row; the row must exist
func (p *PG) FinishRun(ctx context.Context, run domain.RunReport) error {
	errs := run.Errors
	if errs == nil {
		errs = []perr.Wire{}
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode run errors")
	}
	err = store.ExecOne(ctx, p.q, `
		UPDATE mirror_runs
		SET finished_at = $2, sources = $3, repos = $4, failed = $5, errors = $6::jsonb
		WHERE run_id = $1`,
		run.RunID, ptime.Ptr(run.Finished), run.Sources, len(run.Repos), run.Failed(), string(raw),
	)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return perr.WithOp(err, "finish mirror run "+run.RunID)
	}
	return perr.FromPostgres(err, "finish mirror run")
}

// Recent lists the newest runs first
func (p *PG) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	out, err := store.Many(ctx, p.q, scanRun, `
		SELECT run_id::text, started_at, finished_at, dry_run, sources, repos, failed
		FROM mirror_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list mirror runs")
	}
	return out, nil
}

func scanRun(r store.Row) (RunSummary, error) {
	var s RunSummary
	err := r.Scan(&s.RunID, &s.Started, &s.Finished, &s.DryRun, &s.Sources, &s.Repos, &s.Failed)
	return s, err
}

// Run loads one run and its repository results
func (p *PG) Run(ctx context.Context, runID string) (RunDetail, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return RunDetail{}, perr.WithField(perr.InvalidArgf("run id %q is not a uuid", runID), "id")
	}
	d, err := store.One(ctx, p.q, scanDetail, `
		SELECT run_id::text, started_at, finished_at, dry_run, sources, repos, failed, errors
		FROM mirror_runs
		WHERE run_id = $1::uuid`, runID)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return RunDetail{}, perr.NotFoundf("run %s not found", runID)
		}
		return RunDetail{}, perr.FromPostgres(err, "load mirror run")
	}
	d.Results, err = store.Many(ctx, p.q, scanResult, `
		SELECT seq, source, target, status, watermark, commits, issues, duplicates, pushed,
		       error_kind, error, recorded_at
		FROM mirror_repo_results
		WHERE run_id = $1::uuid
		ORDER BY seq`, runID)
	if err != nil {
		return RunDetail{}, perr.FromPostgres(err, "load mirror repo results")
	}
	if d.Results == nil {
		d.Results = []RepoResult{}
	}
	return d, nil
}

func scanDetail(r store.Row) (RunDetail, error) {
	var (
		d   RunDetail
		raw []byte
	)
	s := &d.RunSummary
	if err := r.Scan(&s.RunID, &s.Started, &s.Finished, &s.DryRun, &s.Sources, &s.Repos, &s.Failed, &raw); err != nil {
		return d, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.Errors); err != nil {
			return d, perr.Wrap(err, perr.ErrorCodeJSON, "decode run errors")
		}
	}
	return d, nil
}

func scanResult(r store.Row) (RepoResult, error) {
	var x RepoResult
	err := r.Scan(&x.Seq, &x.Source, &x.Target, &x.Status, &x.Watermark, &x.Commits, &x.Issues,
		&x.Duplicates, &x.Pushed, &x.ErrorKind, &x.Error, &x.Recorded)
	return x, err
}
