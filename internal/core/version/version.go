// Package version reports the build version of the binary
package version

import "fmt"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information; fields are set with
// -ldflags "-X activitymirror/internal/core/version.version=v0.1.0"
func Info() BuildInfo {
	return BuildInfo{
		Service: "activitymirror",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// UserAgent is sent on every forge request
func UserAgent() string {
	return fmt.Sprintf("activitymirror/%s (+https://codeberg.org/Aadniz/github-activity-mirror)", version)
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
