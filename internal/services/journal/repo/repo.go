// Package repo provides the journal storage backends
package repo

import (
	"context"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/services/mirror/domain"
)

// Recorder persists run outcomes to one backend
type Recorder interface {
	Name() string
	EnsureSchema(ctx context.Context) error
	BeginRun(ctx context.Context, run domain.RunReport) error
	RecordRepo(ctx context.Context, runID string, at time.Time, r domain.RepoReport) error
	FinishRun(ctx context.Context, run domain.RunReport) error
}

// History reads past runs back, only the postgres backend implements it
type History interface {
	Recent(ctx context.Context, limit int) ([]RunSummary, error)
	Run(ctx context.Context, runID string) (RunDetail, error)
}

// RunSummary is one row of mirror_runs
type RunSummary struct {
	RunID    string     `json:"run_id"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
	DryRun   bool       `json:"dry_run"`
	Sources  int        `json:"sources"`
	Repos    int        `json:"repos"`
	Failed   int        `json:"failed"`
}

// RepoResult is one row of mirror_repo_results
type RepoResult struct {
	Seq        int        `json:"seq"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Status     string     `json:"status"`
	Watermark  *time.Time `json:"watermark,omitempty"`
	Commits    int        `json:"commits"`
	Issues     int        `json:"issues"`
	Duplicates int        `json:"duplicates"`
	Pushed     int        `json:"pushed"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	Recorded   time.Time  `json:"recorded"`
}

// RunDetail is a run with its pass errors and per-repository results
type RunDetail struct {
	RunSummary
	Errors  []perr.Wire  `json:"errors,omitempty"`
	Results []RepoResult `json:"results"`
}

func errKind(r domain.RepoReport) (kind, msg string) {
	if r.Err == nil {
		return "", ""
	}
	return r.Err.Kind, r.Err.Message
}
