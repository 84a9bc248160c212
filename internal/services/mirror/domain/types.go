// Package domain defines the types and ports of the mirror service
package domain

import (
	"time"

	perr "activitymirror/internal/platform/errors"
)

// RemoteRepo is a destination forge repository
type RemoteRepo struct {
	Owner    string
	Name     string
	FullName string
	HTMLURL  string
	CloneURL string
	SSHURL   string
	Private  bool
}

// CreateRepo is the request to create a mirror repository under the authenticated user
type CreateRepo struct {
	Name        string
	Description *string
	Private     bool
}

// RemoteIssue is a destination forge issue, pull requests never appear here
type RemoteIssue struct {
	Number    int64
	Title     string
	CreatedAt time.Time
}

// Commit is one mirror commit: README content replaced and committed at When
type Commit struct {
	Message     string
	Content     string
	When        time.Time
	AuthorName  string
	AuthorEmail string
}

// Status is a per-repository outcome
type Status string

const (
	StatusSynced         Status = "synced"
	StatusCreated        Status = "created"
	StatusSkippedForeign Status = "skipped_foreign"
	StatusSkippedError   Status = "skipped_error"
	StatusUpToDate       Status = "up_to_date"
	StatusFailed         Status = "failed"
)

// RepoReport is what happened to one source repository
// Seq numbers reports within a run from 1; two groups may share a Source
type RepoReport struct {
	Seq        int        `json:"seq"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Status     Status     `json:"status"`
	Watermark  time.Time  `json:"watermark,omitzero"`
	Commits    int        `json:"commits"`
	Issues     int        `json:"issues"`
	Duplicates int        `json:"duplicates"`
	Pushed     int        `json:"pushed"`
	Err        *perr.Wire `json:"error,omitempty"`
}

// RunReport is one synchronization pass
type RunReport struct {
	RunID    string       `json:"run_id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished,omitzero"`
	DryRun   bool         `json:"dry_run"`
	Sources  int          `json:"sources"`
	Repos    []RepoReport `json:"repos"`
	Errors   []perr.Wire  `json:"errors,omitempty"`
}

// Failed counts repositories that failed during replay
func (r RunReport) Failed() int {
	n := 0
	for _, rr := range r.Repos {
		if rr.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Counts tallies repositories by status
func (r RunReport) Counts() map[Status]int {
	out := map[Status]int{}
	for _, rr := range r.Repos {
		out[rr.Status]++
	}
	return out
}

// ErrNothingToCommit is returned by Mirror.Commit when the content is unchanged
var ErrNothingToCommit = perr.New(perr.ErrorCodeVCS, "nothing to commit")
