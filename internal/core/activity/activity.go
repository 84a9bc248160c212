// Package activity models source forge activity and its deduplication identity
package activity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// OpKind is the source operation type, named after the Gitea feed op types
type OpKind string

const (
	// OpCommit is a pushed commit
	OpCommit OpKind = "commit_repo"
	// OpIssue is an opened issue
	OpIssue OpKind = "create_issue"
)

// Content is the closed set of activity payloads: Commit or Issue
type Content interface {
	content()
}

// Commit is one source commit
type Commit struct {
	SHA1        string
	Message     string
	AuthorEmail string
	AuthorName  string
	Timestamp   time.Time
}

// Issue is one source issue event
type Issue struct {
	ID      int64
	Message string
}

func (Commit) content() {}
func (Issue) content()  {}

// Activity is one timestamped action on a source repository
type Activity struct {
	Kind       OpKind
	OccurredAt time.Time
	Content    Content
	ActorName  string
	ActorEmail string
	SourceLink string
}

// Fingerprint is the dedup identity: kind plus content only
// actor and link never participate
type Fingerprint struct {
	Kind      OpKind
	Message   string
	SHA1      string
	Timestamp string
	IssueID   int64
}

// Fingerprint returns the identity of a
func (a Activity) Fingerprint() Fingerprint {
	fp := Fingerprint{Kind: a.Kind}
	switch c := a.Content.(type) {
	case Commit:
		fp.Message = c.Message
		fp.SHA1 = c.SHA1
		fp.Timestamp = c.Timestamp.UTC().Format(time.RFC3339Nano)
	case Issue:
		fp.Message = c.Message
		fp.IssueID = c.ID
	}
	return fp
}

// Summary is the first line of the payload message, "..." marks dropped lines
func (a Activity) Summary() string {
	var msg string
	switch c := a.Content.(type) {
	case Commit:
		msg = c.Message
	case Issue:
		msg = c.Message
	}
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return strings.TrimSpace(msg[:i]) + "..."
	}
	return msg
}

// SameUser compares forge account names the way forges do, ignoring case
func SameUser(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
