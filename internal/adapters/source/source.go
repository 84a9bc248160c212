// Package source selects the adapter for a configured source forge
package source

import (
	"strconv"
	"strings"
	"time"

	"activitymirror/internal/adapters/source/gitea"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/services/mirror/domain"
	"activitymirror/internal/settings"
)

// Kind is a supported source forge
type Kind string

const (
	// KindGitea is a Gitea instance
	KindGitea Kind = "gitea"
	// KindForgejo is a Forgejo instance, API compatible with Gitea
	KindForgejo Kind = "forgejo"
)

// Kinds lists every supported kind
func Kinds() []Kind { return []Kind{KindGitea, KindForgejo} }

// ParseKind matches s case-insensitively
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", perr.WithField(perr.Configf("unsupported service_type %q", s), "service_type")
}

// Options are transport knobs shared by every source
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// New returns the adapter for svc
func New(svc settings.Service, o Options) (domain.Source, error) {
	k, err := ParseKind(svc.ServiceType)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindGitea, KindForgejo:
		return gitea.New(gitea.Options{
			Label:      string(k),
			BaseURL:    svc.URL,
			Username:   svc.Username,
			Token:      svc.Token,
			UserAgent:  o.UserAgent,
			Timeout:    o.Timeout,
			MaxRetries: o.MaxRetries,
		}), nil
	}
	return nil, perr.NotImplementedf("source %q has no adapter", k)
}

// All builds one adapter per configured service, failing on the first bad entry
func All(svcs []settings.Service, o Options) ([]domain.Source, error) {
	out := make([]domain.Source, 0, len(svcs))
	for i, svc := range svcs {
		s, err := New(svc, o)
		if err != nil {
			return nil, perr.WithField(err, "services["+strconv.Itoa(i)+"].service_type")
		}
		out = append(out, s)
	}
	return out, nil
}
