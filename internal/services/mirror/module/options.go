package module

import (
	"time"

	"activitymirror/internal/platform/config"
)

// Options tunes the mirror module; values may also come from env
type Options struct {
	Workdir       string
	DryRun        bool
	GitBinary     string
	IssuePageSize int

	GitHubAPI     string
	GitHubTimeout time.Duration
	GitHubRetries int

	SourceTimeout time.Duration
	SourceRetries int
}

// FromConfig reads CORE_MIRROR_* knobs and the GITHUB_* client settings
func FromConfig(cfg config.Conf) Options {
	m := cfg.Prefix("CORE_MIRROR_")
	gh := cfg.Prefix("GITHUB_")
	return Options{
		Workdir:       m.MayString("WORKDIR", ""),
		DryRun:        m.MayBool("DRY_RUN", false),
		GitBinary:     m.MayString("GIT_BINARY", "git"),
		IssuePageSize: m.MayInt("ISSUE_PAGE_SIZE", 50),
		GitHubAPI:     gh.MayString("API_URL", ""),
		GitHubTimeout: gh.MayDuration("TIMEOUT", 30*time.Second),
		GitHubRetries: gh.MayInt("RETRIES", 4),
		SourceTimeout: m.MayDuration("SOURCE_TIMEOUT", 30*time.Second),
		SourceRetries: m.MayInt("SOURCE_RETRIES", 4),
	}
}
