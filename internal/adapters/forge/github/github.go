// Package github is the destination forge gateway over the GitHub REST API
package github

import (
	"context"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
	"time"

	"activitymirror/internal/adapters/rest"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/services/mirror/domain"
)

const (
	// DefaultBaseURL is the public GitHub API
	DefaultBaseURL = "https://api.github.com"

	// NoReplySuffix marks GitHub's private commit email addresses
	NoReplySuffix = "@users.noreply.github.com"

	issuePageSize = 50
	maxIssuePages = 200
)

// Options configures the gateway
type Options struct {
	BaseURL    string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	PageSize   int
}

// Gateway implements domain.Forge
type Gateway struct {
	c        *rest.Client
	pageSize int
}

var _ domain.Forge = (*Gateway)(nil)

// New builds a Gateway authenticated with o.Token
func New(o Options) *Gateway {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.PageSize <= 0 || o.PageSize > 100 {
		o.PageSize = issuePageSize
	}
	c := rest.New(rest.Options{
		Name:       "github",
		BaseURL:    o.BaseURL,
		UserAgent:  o.UserAgent,
		Accept:     "application/vnd.github+json",
		Timeout:    o.Timeout,
		TokensCSV:  o.Token,
		MaxRetries: o.MaxRetries,
	})
	return &Gateway{c: c, pageSize: o.PageSize}
}

func repoPath(owner, name string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}

// Repo fetches owner/name, a missing repository is ErrorCodeNotFound
func (g *Gateway) Repo(ctx context.Context, owner, name string) (domain.RemoteRepo, error) {
	var r repo
	if err := g.c.Get(ctx, repoPath(owner, name), &r); err != nil {
		return domain.RemoteRepo{}, err
	}
	return r.toDomain(), nil
}

// CreateRepo creates an empty repository under the authenticated user
func (g *Gateway) CreateRepo(ctx context.Context, req domain.CreateRepo) (domain.RemoteRepo, error) {
	var r repo
	body := createRepoBody{Name: req.Name, Description: req.Description, Private: req.Private}
	if err := g.c.Post(ctx, "/user/repos", body, &r); err != nil {
		return domain.RemoteRepo{}, perr.WithOp(err, "github.create_repo")
	}
	return r.toDomain(), nil
}

// Readme returns the decoded README of owner/name
func (g *Gateway) Readme(ctx context.Context, owner, name string) (string, error) {
	var c content
	if err := g.c.Get(ctx, repoPath(owner, name)+"/readme", &c); err != nil {
		return "", err
	}
	if c.Encoding != "" && c.Encoding != "base64" {
		return "", perr.Newf(perr.ErrorCodeRemote, "github readme %s/%s: unsupported encoding %q", owner, name, c.Encoding)
	}
	// GitHub wraps base64 at 60 columns
	raw := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, c.Content)
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeParse, "github readme %s/%s", owner, name)
	}
	return string(b), nil
}

func (g *Gateway) issuesPage(ctx context.Context, owner, name string, since time.Time, page int) ([]issue, error) {
	q := url.Values{}
	q.Set("state", "all")
	q.Set("sort", "created")
	q.Set("direction", "desc")
	q.Set("per_page", strconv.Itoa(g.pageSize))
	q.Set("page", strconv.Itoa(page))
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	var out []issue
	if err := g.c.Get(ctx, repoPath(owner, name)+"/issues?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LastIssue returns the most recently created issue, nil when the repository has none
// pull requests are skipped
func (g *Gateway) LastIssue(ctx context.Context, owner, name string) (*domain.RemoteIssue, error) {
	for page := 1; page <= maxIssuePages; page++ {
		xs, err := g.issuesPage(ctx, owner, name, time.Time{}, page)
		if err != nil {
			return nil, err
		}
		if len(xs) == 0 {
			return nil, nil
		}
		for _, it := range xs {
			if !it.isPR() {
				ri := it.toDomain()
				return &ri, nil
			}
		}
	}
	return nil, nil
}

// IssuesSince lists every issue updated at or after since, pull requests excluded
func (g *Gateway) IssuesSince(ctx context.Context, owner, name string, since time.Time) ([]domain.RemoteIssue, error) {
	var out []domain.RemoteIssue
	for page := 1; page <= maxIssuePages; page++ {
		xs, err := g.issuesPage(ctx, owner, name, since, page)
		if err != nil {
			return nil, err
		}
		if len(xs) == 0 {
			break
		}
		for _, it := range xs {
			if !it.isPR() {
				out = append(out, it.toDomain())
			}
		}
	}
	return out, nil
}

// CreateIssue opens an issue on owner/name
func (g *Gateway) CreateIssue(ctx context.Context, owner, name, title, body string) (domain.RemoteIssue, error) {
	var it issue
	if err := g.c.Post(ctx, repoPath(owner, name)+"/issues", createIssueBody{Title: title, Body: body}, &it); err != nil {
		return domain.RemoteIssue{}, perr.WithOp(err, "github.create_issue")
	}
	return it.toDomain(), nil
}

// PrimaryEmail returns the account's noreply address used as commit identity
func (g *Gateway) PrimaryEmail(ctx context.Context) (string, error) {
	var xs []email
	if err := g.c.Get(ctx, "/user/emails", &xs); err != nil {
		return "", err
	}
	for _, e := range xs {
		if strings.HasSuffix(strings.ToLower(e.Email), NoReplySuffix) {
			return e.Email, nil
		}
	}
	return "", perr.Configf("no %s address on the GitHub account, set github.email", NoReplySuffix)
}

func (r repo) toDomain() domain.RemoteRepo {
	return domain.RemoteRepo{
		Owner:    r.Owner.Login,
		Name:     r.Name,
		FullName: r.FullName,
		HTMLURL:  r.HTMLURL,
		CloneURL: r.CloneURL,
		SSHURL:   r.SSHURL,
		Private:  r.Private,
	}
}

func (i issue) toDomain() domain.RemoteIssue {
	return domain.RemoteIssue{Number: i.Number, Title: i.Title, CreatedAt: i.CreatedAt}
}
