package git

import (
	"errors"
	"time"

	perr "activitymirror/internal/platform/errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

func openRepo(path string) (*gogit.Repository, error) {
	r, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeVCS, "open working copy %s", path)
	}
	return r, nil
}

// headTime is the author time of HEAD, zero on an unborn branch
func headTime(path string) (time.Time, error) {
	r, err := openRepo(path)
	if err != nil {
		return time.Time{}, err
	}
	ref, err := r.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, perr.Wrapf(err, perr.ErrorCodeVCS, "resolve HEAD in %s", path)
	}
	c, err := r.CommitObject(ref.Hash())
	if err != nil {
		return time.Time{}, perr.Wrapf(err, perr.ErrorCodeVCS, "read HEAD commit in %s", path)
	}
	return c.Author.When, nil
}

// aheadOf counts commits reachable from HEAD but not from the remote tracking branch
func aheadOf(path, remoteRef string) (int, error) {
	r, err := openRepo(path)
	if err != nil {
		return 0, err
	}
	head, err := r.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeVCS, "resolve HEAD in %s", path)
	}

	pushed := map[plumbing.Hash]struct{}{}
	remote, err := r.Reference(plumbing.ReferenceName(remoteRef), true)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	case err != nil:
		return 0, perr.Wrapf(err, perr.ErrorCodeVCS, "resolve %s in %s", remoteRef, path)
	default:
		if err := walk(r, remote.Hash(), func(c *object.Commit) error {
			pushed[c.Hash] = struct{}{}
			return nil
		}); err != nil {
			return 0, perr.Wrapf(err, perr.ErrorCodeVCS, "walk %s in %s", remoteRef, path)
		}
	}

	n := 0
	err = walk(r, head.Hash(), func(c *object.Commit) error {
		if _, ok := pushed[c.Hash]; ok {
			return storer.ErrStop
		}
		n++
		return nil
	})
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeVCS, "walk HEAD in %s", path)
	}
	return n, nil
}

func walk(r *gogit.Repository, from plumbing.Hash, fn func(*object.Commit) error) error {
	it, err := r.Log(&gogit.LogOptions{From: from})
	if err != nil {
		return err
	}
	defer it.Close()
	return it.ForEach(fn)
}
