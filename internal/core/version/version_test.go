package version

import (
	"strings"
	"testing"

	kit "activitymirror/internal/platform/testkit"
)

func TestInfo_Defaults(t *testing.T) {
	bi := Info()
	if bi.Service != "activitymirror" || bi.Version != "dev" {
		t.Fatalf("unexpected build info: %+v", bi)
	}
}

func TestUserAgent_CarriesVersion(t *testing.T) {
	kit.Swap(t, &version, "v1.2.3")
	ua := UserAgent()
	if !strings.HasPrefix(ua, "activitymirror/v1.2.3 ") {
		t.Fatalf("UserAgent = %q", ua)
	}
}
