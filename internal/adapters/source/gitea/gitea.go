// Package gitea reads a user's activity feed from Gitea and Forgejo instances
package gitea

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"activitymirror/internal/adapters/rest"
	"activitymirror/internal/core/activity"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	pstrings "activitymirror/internal/platform/strings"
	"activitymirror/internal/services/mirror/domain"
)

const (
	feedLimit = 50
	maxPages  = 1000
)

// Options configures a Client
type Options struct {
	// Label names the source in logs and reports, "gitea" or "forgejo"
	Label      string
	BaseURL    string
	Username   string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements domain.Source for one account
type Client struct {
	c     *rest.Client
	label string
	user  string
	base  string
	log   logger.Logger
}

var _ domain.Source = (*Client)(nil)

// New builds a Client for the instance at o.BaseURL
func New(o Options) *Client {
	if o.Label == "" {
		o.Label = "gitea"
	}
	base := strings.TrimRight(o.BaseURL, "/")
	return &Client{
		c: rest.New(rest.Options{
			Name:       o.Label,
			BaseURL:    base + "/api/v1",
			UserAgent:  o.UserAgent,
			Timeout:    o.Timeout,
			TokensCSV:  o.Token,
			MaxRetries: o.MaxRetries,
		}),
		label: o.Label,
		user:  o.Username,
		base:  base,
		log:   *logger.Named(o.Label),
	}
}

// Name returns "label:base" for logs and reports
func (c *Client) Name() string { return c.label + ":" + c.base }

// Fetch pages the feed until an empty page and groups activity by repository
func (c *Client) Fetch(ctx context.Context) (*activity.Groups, error) {
	groups := activity.NewGroups()
	c.log.Info().Str("user", c.user).Str("url", c.base).Msg("fetching activity feed")

	for page := 1; page <= maxPages; page++ {
		var items []feedItem
		q := url.Values{}
		q.Set("only-performed-by", "true")
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(feedLimit))
		path := "/users/" + url.PathEscape(c.user) + "/activities/feeds?" + q.Encode()
		if err := c.c.Get(ctx, path, &items); err != nil {
			return nil, perr.WithOp(err, c.label+".feed")
		}
		if len(items) == 0 {
			break
		}
		for _, it := range items {
			if err := c.ingest(ctx, groups, it); err != nil {
				return nil, err
			}
		}
	}

	c.log.Info().Int("repos", groups.Len()).Int("activities", groups.Activities()).Msg("feed fetched")
	return groups, nil
}

func (c *Client) ingest(ctx context.Context, groups *activity.Groups, it feedItem) error {
	if it.Repo == nil {
		return nil
	}
	r, ok := c.repository(*it.Repo)
	if !ok {
		c.log.Debug().Int64("feed_id", it.ID).Str("created_at", it.Repo.CreatedAt).Msg("dropping record with bad repository timestamp")
		return nil
	}

	switch it.OpType {
	case string(activity.OpCommit):
		return c.ingestPush(ctx, groups, r, it)
	case string(activity.OpIssue):
		// comment, close and reopen reuse the issue index with other text
		c.ingestIssue(groups, r, it)
	}
	return nil
}

func (c *Client) ingestPush(ctx context.Context, groups *activity.Groups, r activity.Repository, it feedItem) error {
	pc, ok := decodePush(it.Content)
	if !ok {
		c.log.Debug().Int64("feed_id", it.ID).Msg("dropping commit_repo with unreadable content")
		return nil
	}

	var boundary *activity.Activity
	for _, pcm := range pc.Commits {
		a, ok := fromPush(r, pcm)
		if !ok {
			c.log.Debug().Str("sha", pcm.Sha1).Str("timestamp", pcm.Timestamp).Msg("dropping commit with bad timestamp")
			continue
		}
		groups.Add(r, a)
		boundary = &a
	}

	missing := pc.Len - len(pc.Commits)
	if missing <= 0 || boundary == nil {
		return nil
	}
	return c.backfill(ctx, groups, r, *boundary, missing)
}

// backfill walks history from the oldest commit the feed reported
// taking commits by the configured user until missing are found or the
// committer timestamp departs from the boundary commit's
func (c *Client) backfill(ctx context.Context, groups *activity.Groups, r activity.Repository, boundary activity.Activity, missing int) error {
	sha := boundary.Content.(activity.Commit).SHA1
	limit := missing * 2

	for page := 1; page <= maxPages && missing > 0; page++ {
		q := url.Values{}
		q.Set("sha", sha)
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(limit))
		q.Set("stat", "false")
		q.Set("files", "false")
		var xs []commitInfo
		if err := c.c.Get(ctx, "/repos/"+r.FullName+"/commits?"+q.Encode(), &xs); err != nil {
			return perr.WithOp(err, c.label+".backfill")
		}
		if len(xs) == 0 {
			c.log.Debug().Str("repo", r.FullName).Int("missing", missing).Msg("history exhausted before backfill completed")
			return nil
		}
		for _, ci := range xs {
			a, ok := fromHistory(r, ci)
			if !ok {
				continue
			}
			if a.Content.(activity.Commit).SHA1 == sha {
				continue
			}
			if !a.OccurredAt.Equal(boundary.OccurredAt) {
				return nil
			}
			if !activity.SameUser(a.ActorName, c.user) {
				continue
			}
			if groups.Add(r, a) {
				missing--
				if missing == 0 {
					return nil
				}
			}
		}
	}
	return nil
}

func (c *Client) ingestIssue(groups *activity.Groups, r activity.Repository, it feedItem) {
	id, title, ok := parseIssueContent(it.Content)
	if !ok || strings.TrimSpace(title) == "" {
		c.log.Debug().Int64("feed_id", it.ID).Str("op", it.OpType).Msg("dropping issue with malformed content")
		return
	}
	at, ok := parseTime(it.Created)
	if !ok {
		c.log.Debug().Int64("feed_id", it.ID).Str("created", it.Created).Msg("dropping issue with bad timestamp")
		return
	}
	groups.Add(r, activity.Activity{
		Kind:       activity.OpIssue,
		OccurredAt: at,
		Content:    activity.Issue{ID: id, Message: title},
		ActorName:  it.ActUser.name(),
		ActorEmail: it.ActUser.Email,
		SourceLink: r.HTMLURL + "/issues/" + strconv.FormatInt(id, 10),
	})
}

// parseIssueContent splits "{id}|{title}"; ids must be positive
func parseIssueContent(s string) (int64, string, bool) {
	idStr, title, found := strings.Cut(s, "|")
	if !found {
		return 0, "", false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, title, true
}

func (c *Client) repository(r repo) (activity.Repository, bool) {
	created, ok := parseTime(r.CreatedAt)
	if !ok {
		return activity.Repository{}, false
	}
	owner := r.Owner.name()
	return activity.Repository{
		OwnedByYou:  activity.SameUser(owner, c.user),
		Owner:       owner,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: pstrings.Ptr(r.Description),
		HTMLURL:     r.HTMLURL,
		CloneURL:    r.CloneURL,
		Private:     r.Private,
		CreatedDate: created,
	}, true
}

func fromPush(r activity.Repository, pc pushCommit) (activity.Activity, bool) {
	at, ok := parseTime(pc.Timestamp)
	if !ok {
		return activity.Activity{}, false
	}
	return activity.Activity{
		Kind:       activity.OpCommit,
		OccurredAt: at,
		Content: activity.Commit{
			SHA1:        pc.Sha1,
			Message:     pc.Message,
			AuthorEmail: pc.AuthorEmail,
			AuthorName:  pc.AuthorName,
			Timestamp:   at,
		},
		ActorName:  pc.AuthorName,
		ActorEmail: pc.AuthorEmail,
		SourceLink: r.HTMLURL + "/commit/" + pc.Sha1,
	}, true
}

func fromHistory(r activity.Repository, ci commitInfo) (activity.Activity, bool) {
	at, ok := parseTime(ci.Created)
	if !ok {
		return activity.Activity{}, false
	}
	name, email := ci.Commit.Author.Name, ci.Commit.Author.Email
	if ci.Author != nil && ci.Author.name() != "" {
		name, email = ci.Author.name(), ci.Author.Email
	}
	return activity.Activity{
		Kind:       activity.OpCommit,
		OccurredAt: at,
		Content: activity.Commit{
			SHA1:        ci.SHA,
			Message:     ci.Commit.Message,
			AuthorEmail: email,
			AuthorName:  name,
			Timestamp:   at,
		},
		ActorName:  name,
		ActorEmail: email,
		SourceLink: r.HTMLURL + "/commit/" + ci.SHA,
	}, true
}
