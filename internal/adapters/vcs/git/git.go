// Package git keeps local working copies of mirror repositories
// reads go through go-git, writes shell out to the git binary
package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"activitymirror/internal/core/redact"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/services/mirror/domain"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	// Branch is the only branch mirrors use
	Branch = "main"

	// ReadmeFile holds the mirror content and the marker
	ReadmeFile = "README.md"

	// DateLayout is passed to git as author and committer date
	DateLayout = "2006-01-02T15:04:05Z"

	remoteRef = "refs/remotes/origin/" + Branch
)

// ErrNothingToCommit means the README already had the content
var ErrNothingToCommit = domain.ErrNothingToCommit

// DefaultRoot is where working copies live when no workdir is configured
func DefaultRoot() string { return filepath.Join(os.TempDir(), "activitymirror") }

// PathFor maps a mirror full name ("me/lib") to its working copy under root
func PathFor(root, fullName string) string {
	if root == "" {
		root = DefaultRoot()
	}
	return filepath.Join(root, strings.ReplaceAll(fullName, "/", "_"))
}

// Options configures a Gateway
type Options struct {
	Root        string
	AuthorName  string
	AuthorEmail string
	Runner      Runner
}

// Gateway implements domain.Mirror
type Gateway struct {
	root  string
	name  string
	email string
	run   Runner
	w     *worker
	log   logger.Logger
}

var _ domain.Mirror = (*Gateway)(nil)

// New starts a Gateway and its worker; call Close when done
func New(o Options) *Gateway {
	if o.Root == "" {
		o.Root = DefaultRoot()
	}
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	return &Gateway{
		root:  o.Root,
		name:  o.AuthorName,
		email: o.AuthorEmail,
		run:   o.Runner,
		w:     newWorker(),
		log:   *logger.Named("git"),
	}
}

// Close stops the worker
func (g *Gateway) Close() { g.w.stop() }

// PathFor implements domain.Mirror
func (g *Gateway) PathFor(fullName string) string { return PathFor(g.root, fullName) }

func (g *Gateway) git(ctx context.Context, dir string, env []string, args ...string) (Result, error) {
	res, err := g.run.Run(ctx, dir, env, args...)
	if err != nil {
		return res, perr.WithOp(perr.Wrap(err, perr.ErrorCodeVCS, "git "+args[0]), "git."+args[0])
	}
	return res, nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Open clones remote into path, or refreshes an existing copy from origin
func (g *Gateway) Open(ctx context.Context, path, remote string) error {
	return g.w.do(ctx, func() error { return g.open(ctx, path, remote) })
}

func (g *Gateway) open(ctx context.Context, path, remote string) error {
	if !exists(filepath.Join(path, ".git")) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeVCS, "create %s", filepath.Dir(path))
		}
		g.log.Info().Str("path", path).Msg("cloning working copy")
		if _, err := g.git(ctx, filepath.Dir(path), nil, "clone", remote, path); err != nil {
			return err
		}
		return nil
	}

	if _, err := g.git(ctx, path, nil, "remote", "set-url", "origin", remote); err != nil {
		return err
	}
	if _, err := g.git(ctx, path, nil, "fetch", "origin"); err != nil {
		return err
	}
	if _, err := g.git(ctx, path, nil, "rev-parse", "--verify", "--quiet", remoteRef); err != nil {
		// nothing pushed yet
		return nil
	}
	_, err := g.git(ctx, path, nil, "pull", "--ff-only", "origin", Branch)
	return err
}

// Init prepares a new mirror: README with the marker committed at c.When by c's author, then pushed
// c.Message and c.Content are ignored
func (g *Gateway) Init(ctx context.Context, path, remote string, c domain.Commit) error {
	return g.w.do(ctx, func() error {
		if err := g.open(ctx, path, remote); err != nil {
			return err
		}
		// a fresh clone of an empty repository may sit on another unborn branch
		if _, err := g.git(ctx, path, nil, "symbolic-ref", "HEAD", "refs/heads/"+Branch); err != nil {
			return err
		}
		c.Message, c.Content = "Initial commit", redact.Marker
		if err := g.commit(ctx, path, c); err != nil && !errors.Is(err, ErrNothingToCommit) {
			return err
		}
		return g.push(ctx, path)
	})
}

// LastCommit returns the author time of HEAD, zero when the copy has no commits
func (g *Gateway) LastCommit(ctx context.Context, path string) (time.Time, error) {
	var t time.Time
	err := g.w.do(ctx, func() error {
		var err error
		t, err = headTime(path)
		return err
	})
	return t, err
}

// Commit replaces the README with c.Content and commits it dated c.When
func (g *Gateway) Commit(ctx context.Context, path string, c domain.Commit) error {
	return g.w.do(ctx, func() error { return g.commit(ctx, path, c) })
}

func (g *Gateway) commit(ctx context.Context, path string, c domain.Commit) error {
	if err := util.WriteFile(osfs.New(path), ReadmeFile, []byte(c.Content), 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeVCS, "write %s in %s", ReadmeFile, path)
	}
	if _, err := g.git(ctx, path, nil, "add", ReadmeFile); err != nil {
		return err
	}

	name, email := c.AuthorName, c.AuthorEmail
	if name == "" {
		name = g.name
	}
	if email == "" {
		email = g.email
	}
	date := c.When.UTC().Format(DateLayout)
	res, err := g.git(ctx, path, []string{"GIT_COMMITTER_DATE=" + date},
		"-c", "user.name="+name,
		"-c", "user.email="+email,
		"commit", "--allow-empty-message", "-m", c.Message, "--date", date,
	)
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) && nothingToCommit(ce.Stdout+ce.Stderr) {
			return ErrNothingToCommit
		}
		return err
	}
	g.log.Debug().Str("path", path).Str("date", date).Str("out", firstLine(res.Stdout)).Msg("committed")
	return nil
}

func nothingToCommit(out string) bool {
	return strings.Contains(out, "nothing to commit") || strings.Contains(out, "nothing added to commit")
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}

// Unpushed counts local commits not on origin/main
func (g *Gateway) Unpushed(ctx context.Context, path string) (int, error) {
	var n int
	err := g.w.do(ctx, func() error {
		var err error
		n, err = aheadOf(path, remoteRef)
		return err
	})
	return n, err
}

// Push sends main to origin and sets upstream
func (g *Gateway) Push(ctx context.Context, path string) error {
	return g.w.do(ctx, func() error { return g.push(ctx, path) })
}

func (g *Gateway) push(ctx context.Context, path string) error {
	_, err := g.git(ctx, path, nil, "push", "--set-upstream", "origin", Branch)
	return err
}
