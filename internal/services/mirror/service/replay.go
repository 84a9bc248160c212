package service

import (
	"context"
	"errors"
	"time"

	"activitymirror/internal/core/activity"
	"activitymirror/internal/core/redact"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/services/mirror/domain"
)

// issueIndex is the lazily loaded set of mirror issue titles for one repository
type issueIndex struct {
	titles map[string]struct{}
}

func (ix *issueIndex) has(title string) bool {
	_, ok := ix.titles[title]
	return ok
}

func (ix *issueIndex) add(title string) { ix.titles[title] = struct{}{} }

func (s *Svc) replay(ctx context.Context, grp *activity.Group, res resolution, rr *domain.RepoReport) error {
	log := logger.C(ctx)

	// a mirror that would be created in a dry run has nothing to read yet
	// its initial commit would sit at the earliest activity
	if s.cfg.DryRun && res.created {
		if first, ok := grp.Activities.Earliest(); ok {
			rr.Watermark = first.OccurredAt
		}
		for _, a := range Pending(grp.Activities, rr.Watermark) {
			tally(a, rr)
		}
		return nil
	}

	path := s.deps.Mirror.PathFor(res.target)
	if !res.created {
		if err := s.deps.Mirror.Open(ctx, path, s.remoteURL(res.remote)); err != nil {
			return err
		}
	}

	wm, err := s.watermark(ctx, path, res.remote)
	if err != nil {
		return err
	}
	rr.Watermark = wm

	pending := Pending(grp.Activities, wm)
	if len(pending) == 0 {
		log.Debug().Time("watermark", wm).Msg("mirror up to date")
		return nil
	}
	log.Info().Str("target", res.target).Int("pending", len(pending)).Time("watermark", wm).Msg("syncing")

	var issues *issueIndex
	for _, a := range pending {
		switch c := a.Content.(type) {
		case activity.Commit:
			if err := s.replayCommit(ctx, path, a, c, rr); err != nil {
				return err
			}
		case activity.Issue:
			if issues == nil {
				ix, err := s.loadIssues(ctx, res.remote, wm)
				if err != nil {
					return err
				}
				issues = ix
			}
			if err := s.replayIssue(ctx, res.remote, a, c, issues, rr); err != nil {
				return err
			}
		}
	}

	if s.cfg.DryRun {
		return nil
	}
	n, err := s.deps.Mirror.Unpushed(ctx, path)
	if err != nil {
		return err
	}
	if n > 0 {
		if err := s.deps.Mirror.Push(ctx, path); err != nil {
			return err
		}
		rr.Pushed = n
		log.Info().Int("commits", n).Str("url", res.remote.HTMLURL).Msg("pushed")
	}
	return nil
}

func (s *Svc) replayCommit(ctx context.Context, path string, a activity.Activity, c activity.Commit, rr *domain.RepoReport) error {
	msg, err := s.policy.CommitMessage(c.Message, a.SourceLink)
	if err != nil {
		return err
	}
	body, err := s.policy.CommitBody(c.SHA1, c.Message, c.Timestamp, a.SourceLink)
	if err != nil {
		return err
	}

	log := logger.C(ctx)
	if !s.cfg.DryRun {
		err = s.deps.Mirror.Commit(ctx, path, domain.Commit{
			Message:     msg,
			Content:     redact.Readme(body),
			When:        a.OccurredAt,
			AuthorName:  s.cfg.Username,
			AuthorEmail: s.email,
		})
		if errors.Is(err, domain.ErrNothingToCommit) {
			log.Warn().Str("sha", c.SHA1).Msg("nothing to commit, skipping")
			return nil
		}
		if err != nil {
			return err
		}
	}
	rr.Commits++
	log.Info().Time("at", a.OccurredAt).Str("summary", summary(a)).Msg("commit")
	return nil
}

func (s *Svc) loadIssues(ctx context.Context, remote domain.RemoteRepo, since time.Time) (*issueIndex, error) {
	ix := &issueIndex{titles: map[string]struct{}{}}
	if remote.Name == "" {
		return ix, nil
	}
	xs, err := s.deps.Forge.IssuesSince(ctx, s.owner(remote), remote.Name, since)
	if err != nil {
		return nil, err
	}
	for _, it := range xs {
		ix.add(it.Title)
	}
	return ix, nil
}

func (s *Svc) replayIssue(ctx context.Context, remote domain.RemoteRepo, a activity.Activity, c activity.Issue, ix *issueIndex, rr *domain.RepoReport) error {
	title, err := s.policy.IssueTitle(c.ID, c.Message)
	if err != nil {
		return err
	}
	if ix.has(title) {
		rr.Duplicates++
		return nil
	}
	body, err := s.policy.IssueBody(c.ID, c.Message, a.OccurredAt, a.SourceLink)
	if err != nil {
		return err
	}
	if !s.cfg.DryRun {
		if _, err := s.deps.Forge.CreateIssue(ctx, s.owner(remote), remote.Name, title, body); err != nil {
			return err
		}
	}
	ix.add(title)
	rr.Issues++

	logger.C(ctx).Info().Time("at", a.OccurredAt).Int64("issue", c.ID).Str("summary", summary(a)).Msg("issue")
	return nil
}

func summary(a activity.Activity) string {
	if s := a.Summary(); s != "" {
		return s
	}
	return "<empty message>"
}

// tally counts what a dry run would replay
func tally(a activity.Activity, rr *domain.RepoReport) {
	switch a.Content.(type) {
	case activity.Commit:
		rr.Commits++
	case activity.Issue:
		rr.Issues++
	}
}
