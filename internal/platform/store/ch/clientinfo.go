package ch

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo returns a ClientInfo describing this process and role
// role examples: "sync", "serve"
func BuildClientInfo(app, role string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	if strings.TrimSpace(app) == "" {
		app = "activitymirror"
	}

	var info clickhouse.ClientInfo
	info.Products = append(info.Products,
		product(app, vcsShortSHA()),
		product("role", role),
		product("go", runtime.Version()),
		product("host", host),
	)
	return info
}

func product(name, version string) struct {
	Name    string
	Version string
} {
	return struct {
		Name    string
		Version string
	}{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)}
}

func vcsShortSHA() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}
