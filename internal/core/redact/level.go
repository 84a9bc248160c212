package redact

import (
	"strconv"
	"strings"

	perr "activitymirror/internal/platform/errors"
)

// Level is the redaction strictness, ordered from most to least revealing
type Level uint8

const (
	// Off mirrors messages and links verbatim into public repositories
	Off Level = iota
	// PrivateRepos keeps content but creates mirrors as private repositories
	PrivateRepos
	// PrivateReposNoCrossLinking is PrivateRepos without links back to the source
	PrivateReposNoCrossLinking
	// Encrypted is reserved and rejected
	Encrypted
	// Hashed replaces every piece of text with its digest
	Hashed
)

var levelNames = [...]string{
	Off:                        "off",
	PrivateRepos:               "private_repos",
	PrivateReposNoCrossLinking: "private_repos_no_cross_linking",
	Encrypted:                  "encrypted",
	Hashed:                     "hashed",
}

// String returns the settings name of the level
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel accepts the settings names, case-insensitive, and the numeric forms 0..4
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(levelNames) {
		return Level(n), nil
	}
	return Off, perr.Newf(perr.ErrorCodeConfig, "unknown redact level %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler for toml and yaml decoding
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool { return int(l) < len(levelNames) }

// Private reports whether created mirrors must be private repositories
func (l Level) Private() bool { return l != Off }

// CrossLinks reports whether rendered content may link back to the source forge
func (l Level) CrossLinks() bool { return l <= PrivateRepos }
