// Package redact renders source activity into mirror text at a configured strictness
package redact

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	perr "activitymirror/internal/platform/errors"

	"golang.org/x/text/unicode/norm"
)

// Marker closes every mirror README; a repository whose README does not end
// with it is never written to
const Marker = "<sub>This repo was mirrored using [github-activity-mirror](https://codeberg.org/Aadniz/github-activity-mirror), preserving the privacy while at the same time display your actual activity</sub>"

// MaxTitleRunes is the forge limit on issue titles
const MaxTitleRunes = 255

const ellipsis = "..."

// TimeLayout renders activity timestamps inside commit and issue bodies
const TimeLayout = "2006-01-02 15:04:05 -07:00"

// ErrNotImplemented is returned for every operation at the Encrypted level
var ErrNotImplemented = perr.New(perr.ErrorCodeNotImplemented, "encrypted redaction is not implemented")

// Digest is the lower-case hex SHA-1 of the NFC form of s
func Digest(s string) string {
	sum := sha1.Sum([]byte(norm.NFC.String(s)))
	return hex.EncodeToString(sum[:])
}

// Truncate caps s at MaxTitleRunes characters, ending cut titles with "..."
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleRunes {
		return s
	}
	keep := MaxTitleRunes - len(ellipsis)
	i := 0
	for pos := range s {
		if i == keep {
			return s[:pos] + ellipsis
		}
		i++
	}
	return s
}

// Policy applies one Level to every content class
type Policy struct {
	Level Level
}

// New returns a Policy for l
func New(l Level) Policy { return Policy{Level: l} }

func (p Policy) check() error {
	if p.Level == Encrypted {
		return ErrNotImplemented
	}
	if !p.Level.Valid() {
		return perr.Newf(perr.ErrorCodeConfig, "unknown redact level %d", uint8(p.Level))
	}
	return nil
}

// RepoName returns the mirror repository name
func (p Policy) RepoName(name string) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	if p.Level == Hashed {
		return Digest(name), nil
	}
	return name, nil
}

// RepoDescription returns the mirror description, nil stays nil
func (p Policy) RepoDescription(desc *string) (*string, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if desc == nil || p.Level != Hashed {
		return desc, nil
	}
	d := Digest(*desc)
	return &d, nil
}

// CommitMessage renders the mirror commit message for a source commit
func (p Policy) CommitMessage(msg, link string) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	switch {
	case p.Level == Hashed:
		return Digest(msg), nil
	case p.Level.CrossLinks():
		return msg + "\n\nMirrored from: " + link, nil
	default:
		return msg, nil
	}
}

// CommitBody renders the README line recorded for a source commit
func (p Policy) CommitBody(sha, msg string, at time.Time, link string) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	base := sha + " " + at.Format(TimeLayout) + ": " + msg
	switch {
	case p.Level == Hashed:
		return Digest(base), nil
	case p.Level.CrossLinks():
		return base + "\n\n*" + link + "*", nil
	default:
		return base, nil
	}
}

// IssueTitle renders the mirror issue title, truncated after redaction
func (p Policy) IssueTitle(id int64, msg string) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	ids := strconv.FormatInt(id, 10)
	if p.Level == Hashed {
		return Truncate(Digest(ids + ": " + msg)), nil
	}
	return Truncate("[" + ids + "] " + msg), nil
}

// IssueBody renders the mirror issue body
func (p Policy) IssueBody(id int64, msg string, at time.Time, link string) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	base := "## Issue ID: " + strconv.FormatInt(id, 10) + "\n\n" + msg + "\n\n" + at.Format(TimeLayout)
	switch {
	case p.Level == Hashed:
		return Digest(base), nil
	case p.Level.CrossLinks():
		return base + "\n\n*" + link + "*", nil
	default:
		return base, nil
	}
}

// Readme wraps a rendered commit body into the README content, marker last
func Readme(body string) string { return body + "\n\n" + Marker }

// IsMirror reports whether a README identifies its repository as a mirror
func IsMirror(readme string) bool {
	return strings.HasSuffix(strings.TrimRightFunc(readme, unicode.IsSpace), Marker)
}
