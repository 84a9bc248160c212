// Package module wires the mirror service to its adapters and exposes its ports
package module

import (
	"activitymirror/internal/adapters/forge/github"
	"activitymirror/internal/adapters/source"
	"activitymirror/internal/adapters/vcs/git"
	"activitymirror/internal/core/version"
	"activitymirror/internal/modkit"
	perr "activitymirror/internal/platform/errors"
	phttp "activitymirror/internal/platform/net/http"
	"activitymirror/internal/settings"

	"activitymirror/internal/services/mirror/domain"
	"activitymirror/internal/services/mirror/service"
)

// Ports are what other modules and the CLI drive
type Ports struct {
	Sync   domain.SyncPort
	Status domain.StatusPort
}

// Module defines the mirror module
type Module struct {
	deps  modkit.Deps
	opts  Options
	git   *git.Gateway
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New builds the engine from the loaded settings
// overrides win over settings, settings win over env; journal may be nil
func New(deps modkit.Deps, overrides Options, journal domain.Journal) (*Module, error) {
	s := deps.Settings
	if s == nil {
		return nil, perr.Configf("mirror module needs loaded settings")
	}

	opts := FromConfig(deps.Cfg)
	if s.Sync.Workdir != "" {
		opts.Workdir = s.Sync.Workdir
	}
	if overrides.Workdir != "" {
		opts.Workdir = overrides.Workdir
	}
	opts.DryRun = opts.DryRun || s.Sync.DryRun || overrides.DryRun
	if overrides.GitHubAPI != "" {
		opts.GitHubAPI = overrides.GitHubAPI
	}
	if overrides.GitBinary != "" {
		opts.GitBinary = overrides.GitBinary
	}

	ua := version.UserAgent()
	sources, err := source.All(s.Services, source.Options{
		UserAgent:  ua,
		Timeout:    opts.SourceTimeout,
		MaxRetries: opts.SourceRetries,
	})
	if err != nil {
		return nil, err
	}

	forge := github.New(github.Options{
		BaseURL:    opts.GitHubAPI,
		Token:      s.GitHub.Token,
		UserAgent:  ua,
		Timeout:    opts.GitHubTimeout,
		MaxRetries: opts.GitHubRetries,
		PageSize:   opts.IssuePageSize,
	})

	gw := git.New(git.Options{
		Root:        opts.Workdir,
		AuthorName:  s.GitHub.Username,
		AuthorEmail: s.GitHub.Email,
		Runner:      git.ExecRunner{Binary: opts.GitBinary},
	})

	svc := service.New(service.Deps{
		Sources: sources,
		Forge:   forge,
		Mirror:  gw,
		Journal: journal,
	}, service.Config{
		Username: s.GitHub.Username,
		Token:    s.GitHub.Token,
		Email:    s.GitHub.Email,
		Level:    s.GitHub.Level(),
		PushHTTP: s.GitHub.PushMethod == settings.PushHTTP,
		DryRun:   opts.DryRun,
	})

	return &Module{
		deps:  deps,
		opts:  opts,
		git:   gw,
		ports: Ports{Sync: svc, Status: svc},
	}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "mirror" }

// Ports returns the module ports (Sync, Status)
func (m *Module) Ports() any { return m.ports }

// Options returns the effective options after merging
func (m *Module) Options() Options { return m.opts }

// MountRoutes mounts nothing; the status module serves the mirror over http
func (m *Module) MountRoutes(_ phttp.Router) {}

// Close stops the git worker
func (m *Module) Close() { m.git.Close() }
