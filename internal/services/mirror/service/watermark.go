package service

import (
	"context"
	"time"

	"activitymirror/internal/core/activity"
	"activitymirror/internal/services/mirror/domain"
)

// Latest is the later of the last mirror commit and the last mirror issue
// activities at or before it are treated as already replayed
func Latest(lastCommit time.Time, lastIssue *domain.RemoteIssue) time.Time {
	if lastIssue != nil && lastIssue.CreatedAt.After(lastCommit) {
		return lastIssue.CreatedAt
	}
	return lastCommit
}

func (s *Svc) watermark(ctx context.Context, path string, remote domain.RemoteRepo) (time.Time, error) {
	lastCommit, err := s.deps.Mirror.LastCommit(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	lastIssue, err := s.deps.Forge.LastIssue(ctx, s.owner(remote), remote.Name)
	if err != nil {
		return time.Time{}, err
	}
	return Latest(lastCommit, lastIssue), nil
}

// Pending orders set oldest first and drops activities at or before wm
func Pending(set *activity.Set, wm time.Time) []activity.Activity {
	var out []activity.Activity
	for _, a := range set.Sorted() {
		if a.OccurredAt.After(wm) {
			out = append(out, a)
		}
	}
	return out
}
