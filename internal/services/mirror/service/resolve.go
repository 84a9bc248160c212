package service

import (
	"context"
	"net/url"

	"activitymirror/internal/core/activity"
	"activitymirror/internal/core/redact"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/services/mirror/domain"
)

// resolution is where a source repository's activity goes, or why it goes nowhere
type resolution struct {
	remote  domain.RemoteRepo
	target  string
	created bool
	skip    domain.Status
	err     error
}

// TargetName is the unredacted mirror name: name for own repositories, owner-name otherwise
func TargetName(r activity.Repository) string {
	if r.OwnedByYou {
		return r.Name
	}
	return r.Owner + "-" + r.Name
}

func (s *Svc) resolve(ctx context.Context, grp *activity.Group) resolution {
	log := logger.C(ctx)
	plain := TargetName(grp.Repo)
	name, err := s.policy.RepoName(plain)
	if err != nil {
		return resolution{target: s.cfg.Username + "/" + plain, skip: domain.StatusSkippedError, err: err}
	}
	res := resolution{target: s.cfg.Username + "/" + name}

	log.Info().Str("target", res.target).Msg("checking mirror")
	remote, err := s.deps.Forge.Repo(ctx, s.cfg.Username, name)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		// a mirror created under hashed redaction keeps its digest name
		if d := redact.Digest(plain); d != name {
			log.Debug().Str("target", s.cfg.Username+"/"+d).Msg("checking hashed mirror name")
			remote, err = s.deps.Forge.Repo(ctx, s.cfg.Username, d)
		}
	}

	switch {
	case err == nil:
		res.remote = remote
		res.target = remote.FullName
		return s.guard(ctx, res)
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		return s.create(ctx, grp, name, res)
	default:
		log.Error().Err(err).Str("target", res.target).Msg("mirror lookup failed, skipping")
		res.skip, res.err = domain.StatusSkippedError, err
		return res
	}
}

// guard refuses repositories whose README does not end with the marker
func (s *Svc) guard(ctx context.Context, res resolution) resolution {
	log := logger.C(ctx)
	readme, err := s.deps.Forge.Readme(ctx, s.owner(res.remote), res.remote.Name)
	switch {
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		log.Warn().Str("target", res.target).Msg("repository has no README, not a mirror, skipping")
		res.skip = domain.StatusSkippedForeign
	case err != nil:
		log.Error().Err(err).Str("target", res.target).Msg("README lookup failed, skipping")
		res.skip, res.err = domain.StatusSkippedError, err
	case !redact.IsMirror(readme):
		log.Warn().Str("target", res.target).Msg("repository is not a mirror, skipping")
		res.skip = domain.StatusSkippedForeign
	}
	return res
}

func (s *Svc) create(ctx context.Context, grp *activity.Group, name string, res resolution) resolution {
	log := logger.C(ctx)
	first, ok := grp.Activities.Earliest()
	if !ok {
		res.skip = domain.StatusUpToDate
		return res
	}
	desc, err := s.policy.RepoDescription(grp.Repo.Description)
	if err != nil {
		res.skip, res.err = domain.StatusSkippedError, err
		return res
	}

	res.created = true
	if s.cfg.DryRun {
		log.Info().Str("target", res.target).Msg("would create mirror")
		return res
	}

	log.Info().Str("target", res.target).Time("initial", first.OccurredAt).Msg("creating mirror")
	remote, err := s.deps.Forge.CreateRepo(ctx, domain.CreateRepo{
		Name:        name,
		Description: desc,
		Private:     s.cfg.Level.Private(),
	})
	if err != nil {
		res.skip, res.err = domain.StatusFailed, err
		return res
	}
	res.remote = remote
	if remote.FullName != "" {
		res.target = remote.FullName
	}

	path := s.deps.Mirror.PathFor(res.target)
	initial := domain.Commit{When: first.OccurredAt, AuthorName: s.cfg.Username, AuthorEmail: s.email}
	if err := s.deps.Mirror.Init(ctx, path, s.remoteURL(remote), initial); err != nil {
		res.skip, res.err = domain.StatusFailed, err
		return res
	}
	log.Info().Str("url", remote.HTMLURL).Msg("created mirror")
	return res
}

func (s *Svc) owner(r domain.RemoteRepo) string {
	if r.Owner != "" {
		return r.Owner
	}
	return s.cfg.Username
}

// remoteURL picks ssh_url, or clone_url carrying the token when pushing over http
func (s *Svc) remoteURL(r domain.RemoteRepo) string {
	full := r.FullName
	if full == "" {
		full = s.owner(r) + "/" + r.Name
	}
	if !s.cfg.PushHTTP {
		if r.SSHURL != "" {
			return r.SSHURL
		}
		return "git@github.com:" + full + ".git"
	}
	raw := r.CloneURL
	if raw == "" {
		raw = "https://github.com/" + full + ".git"
	}
	u, err := url.Parse(raw)
	if err != nil || s.cfg.Token == "" {
		return raw
	}
	u.User = url.UserPassword(s.cfg.Username, s.cfg.Token)
	return u.String()
}
