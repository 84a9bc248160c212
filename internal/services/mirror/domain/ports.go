package domain

import (
	"context"
	"time"

	"activitymirror/internal/core/activity"
)

// Source reads a user's recent activity from one source forge
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*activity.Groups, error)
}

// Forge is the destination forge API
type Forge interface {
	Repo(ctx context.Context, owner, name string) (RemoteRepo, error)
	CreateRepo(ctx context.Context, req CreateRepo) (RemoteRepo, error)
	Readme(ctx context.Context, owner, name string) (string, error)
	LastIssue(ctx context.Context, owner, name string) (*RemoteIssue, error)
	IssuesSince(ctx context.Context, owner, name string, since time.Time) ([]RemoteIssue, error)
	CreateIssue(ctx context.Context, owner, name, title, body string) (RemoteIssue, error)
	PrimaryEmail(ctx context.Context) (string, error)
}

// Mirror manages local working copies of mirror repositories
// every call names the working copy by path
type Mirror interface {
	PathFor(fullName string) string
	Open(ctx context.Context, path, remote string) error
	Init(ctx context.Context, path, remote string, c Commit) error
	LastCommit(ctx context.Context, path string) (time.Time, error)
	Commit(ctx context.Context, path string, c Commit) error
	Unpushed(ctx context.Context, path string) (int, error)
	Push(ctx context.Context, path string) error
}

// Journal records run outcomes, implementations must tolerate being absent
type Journal interface {
	Begin(ctx context.Context, run RunReport) error
	Record(ctx context.Context, runID string, r RepoReport) error
	Finish(ctx context.Context, run RunReport) error
}

// SyncPort runs one synchronization pass
type SyncPort interface {
	Sync(ctx context.Context) (RunReport, error)
}

// StatusPort exposes the most recent pass
type StatusPort interface {
	Last() (RunReport, bool)
	Running() bool
}
