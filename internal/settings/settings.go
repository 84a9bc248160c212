// Package settings loads the mirror's settings file (toml or yaml)
package settings

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"activitymirror/internal/core/redact"
	"activitymirror/internal/platform/config"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/validate"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no path is given on the command line
const DefaultPath = "settings.toml"

// PushMethod selects the remote URL used for mirror working copies
type PushMethod string

const (
	// PushSSH pushes over the ssh_url, relying on the user's ssh agent
	PushSSH PushMethod = "ssh"
	// PushHTTP pushes over the clone_url with the token in the URL
	PushHTTP PushMethod = "http"
)

// UnmarshalText lower-cases the method so "SSH" and "ssh" are equal
func (p *PushMethod) UnmarshalText(b []byte) error {
	*p = PushMethod(strings.ToLower(strings.TrimSpace(string(b))))
	return nil
}

// Duration decodes "90s" / "1h" in both formats
type Duration struct{ time.Duration }

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeConfig, "invalid duration %q", string(b))
	}
	d.Duration = v
	return nil
}

// Service is one source forge account
type Service struct {
	ServiceType string `toml:"service_type" yaml:"service_type" validate:"required,oneof=gitea forgejo"`
	Username    string `toml:"username" yaml:"username" validate:"required,forge_user"`
	URL         string `toml:"url" yaml:"url" validate:"required,http_url"`
	Token       string `toml:"token" yaml:"token" validate:"required"`
}

// GitHub is the destination account
type GitHub struct {
	Username    string        `toml:"username" yaml:"username" validate:"required,forge_user"`
	Token       string        `toml:"token" yaml:"token" validate:"required"`
	Email       string        `toml:"email" yaml:"email" validate:"omitempty,email"`
	RedactLevel *redact.Level `toml:"redact_level" yaml:"redact_level"`
	PushMethod  PushMethod    `toml:"push_method" yaml:"push_method" validate:"omitempty,oneof=http ssh"`
}

// Level returns the configured redaction level, private_repos when unset
func (g GitHub) Level() redact.Level {
	if g.RedactLevel == nil {
		return redact.PrivateRepos
	}
	return *g.RedactLevel
}

// Sync tunes the engine
type Sync struct {
	Workdir  string   `toml:"workdir" yaml:"workdir"`
	Interval Duration `toml:"interval" yaml:"interval"`
	DryRun   bool     `toml:"dry_run" yaml:"dry_run"`
}

// Journal enables run recording; empty URLs disable a backend
type Journal struct {
	PostgresURL   string `toml:"postgres_url" yaml:"postgres_url" validate:"omitempty,url"`
	ClickhouseURL string `toml:"clickhouse_url" yaml:"clickhouse_url" validate:"omitempty,url"`
}

// Status configures the serve mode http listener
type Status struct {
	Addr string `toml:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// Settings is the whole settings file
type Settings struct {
	Services []Service `toml:"services" yaml:"services" validate:"required,min=1,dive"`
	GitHub   GitHub    `toml:"github" yaml:"github"`
	Sync     Sync      `toml:"sync" yaml:"sync"`
	Journal  Journal   `toml:"journal" yaml:"journal"`
	Status   Status    `toml:"status" yaml:"status"`

	path string
}

// Path returns the file the settings were loaded from
func (s *Settings) Path() string { return s.path }

var readFile = os.ReadFile

// Load reads, decodes, normalizes, and validates the settings at path
// secrets may be supplied by MIRROR_GITHUB_TOKEN and MIRROR_SERVICE_<n>_TOKEN
func Load(path string) (*Settings, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	b, err := readFile(path)
	if err != nil {
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeConfig, "read settings %s", path), "settings.load")
	}
	s, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return nil, perr.WithOp(err, "settings.load")
	}
	s.path = path
	return s, nil
}

// Decode parses b as the format named by ext (".toml", ".yaml", ".yml")
func Decode(b []byte, ext string) (*Settings, error) {
	var s Settings
	switch strings.ToLower(ext) {
	case ".toml", "":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, decodeErr(err, "toml")
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, perr.Configf("settings file is empty")
			}
			return nil, decodeErr(err, "yaml")
		}
	default:
		return nil, perr.Configf("unsupported settings format %q, want .toml or .yaml", ext)
	}

	s.applyEnv(config.New().Prefix("MIRROR_"))
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeErr(err error, format string) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		row, col := de.Position()
		return perr.Wrapf(err, perr.ErrorCodeConfig, "toml syntax error at line %d column %d", row, col)
	}
	return perr.Wrapf(err, perr.ErrorCodeConfig, "decode %s settings", format)
}

func (s *Settings) applyEnv(env config.Conf) {
	if v, ok := env.Lookup("GITHUB_TOKEN"); ok {
		s.GitHub.Token = v
	}
	for i := range s.Services {
		if v, ok := env.Lookup("SERVICE_" + strconv.Itoa(i) + "_TOKEN"); ok {
			s.Services[i].Token = v
		}
	}
}

func (s *Settings) normalize() {
	for i := range s.Services {
		sv := &s.Services[i]
		sv.ServiceType = strings.ToLower(strings.TrimSpace(sv.ServiceType))
		sv.Username = strings.TrimSpace(sv.Username)
		sv.URL = strings.TrimRight(strings.TrimSpace(sv.URL), "/")
	}
	s.GitHub.Username = strings.TrimSpace(s.GitHub.Username)
	s.GitHub.Email = strings.TrimSpace(s.GitHub.Email)
	if s.GitHub.PushMethod == "" {
		s.GitHub.PushMethod = PushSSH
	}
}

// Validate checks field rules and rejects levels that cannot run
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	lvl := s.GitHub.Level()
	if !lvl.Valid() {
		return perr.WithField(perr.Configf("unknown redact level %d", uint8(lvl)), "github.redact_level")
	}
	if lvl == redact.Encrypted {
		return perr.WithField(
			perr.NotImplementedf("redact_level %q is not implemented, choose hashed for the strictest mode", lvl.String()),
			"github.redact_level",
		)
	}
	return nil
}
