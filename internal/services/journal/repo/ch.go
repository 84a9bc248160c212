package repo

import (
	"context"
	"sync"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/store"
	ptime "activitymirror/internal/platform/time"
	"activitymirror/internal/services/mirror/domain"
)

const chTable = "mirror_repo_results"

const chSchema = `
CREATE TABLE IF NOT EXISTS mirror_repo_results (
	run_id      String,
	recorded_at DateTime64(3, 'UTC'),
	source      LowCardinality(String),
	target      String,
	status      LowCardinality(String),
	watermark   Nullable(DateTime64(3, 'UTC')),
	commits     UInt32,
	issues      UInt32,
	duplicates  UInt32,
	pushed      UInt32,
	error_kind  LowCardinality(String),
	error       String,
	dry_run     UInt8,
	seq         UInt32
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(recorded_at)
ORDER BY (source, recorded_at)`

// CH appends repository results to clickhouse for long horizon analytics
// run start and finish carry no extra columns there so they are no-ops
type CH struct {
	c store.Clickhouse

	mu  sync.Mutex
	dry map[string]bool
}

// NewCH binds the clickhouse recorder to c
func NewCH(c store.Clickhouse) *CH {
	if c == nil {
		panic("journal: nil clickhouse client")
	}
	return &CH{c: c, dry: map[string]bool{}}
}

var _ Recorder = (*CH)(nil)

// Name implements Recorder
func (*CH) Name() string { return "ch" }

// EnsureSchema creates the results table when missing
func (c *CH) EnsureSchema(ctx context.Context) error {
	if err := c.c.Exec(ctx, chSchema); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "ensure clickhouse journal table")
	}
	return nil
}

// BeginRun remembers whether the run is a dry run
func (c *CH) BeginRun(_ context.Context, run domain.RunReport) error {
	c.mu.Lock()
	c.dry[run.RunID] = run.DryRun
	c.mu.Unlock()
	return nil
}

// RecordRepo inserts one row
func (c *CH) RecordRepo(ctx context.Context, runID string, at time.Time, r domain.RepoReport) error {
	kind, msg := errKind(r)
	var dry uint8
	c.mu.Lock()
	if c.dry[runID] {
		dry = 1
	}
	c.mu.Unlock()
	row := []any{
		runID, at.UTC(), r.Source, r.Target, string(r.Status), ptime.Ptr(r.Watermark),
		uint32(r.Commits), uint32(r.Issues), uint32(r.Duplicates), uint32(r.Pushed),
		kind, msg, dry, uint32(r.Seq),
	}
	if err := c.c.Insert(ctx, chTable, [][]any{row}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "insert clickhouse journal row")
	}
	return nil
}

// FinishRun forgets the run
func (c *CH) FinishRun(_ context.Context, run domain.RunReport) error {
	c.mu.Lock()
	delete(c.dry, run.RunID)
	c.mu.Unlock()
	return nil
}
