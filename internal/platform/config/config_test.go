package config

import (
	"testing"
	"time"

	kit "activitymirror/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	gh := New().Prefix("GITHUB_")
	if got := gh.Key("TIMEOUT"); got != "GITHUB_TIMEOUT" {
		t.Fatalf("Key() = %q", got)
	}
	nested := New().Prefix("CORE_").Prefix("MIRROR_")
	if got := nested.key("WORKDIR"); got != "CORE_MIRROR_WORKDIR" {
		t.Fatalf("nested key() = %q", got)
	}
}

func TestLookup(t *testing.T) {
	c := New().Prefix("MIRROR_")
	t.Setenv("MIRROR_GITHUB_TOKEN", "  ghp_x ")
	t.Setenv("MIRROR_BLANK", "   ")

	if v, ok := c.Lookup("GITHUB_TOKEN"); !ok || v != "ghp_x" {
		t.Fatalf("Lookup = %q,%v", v, ok)
	}
	if _, ok := c.Lookup("BLANK"); ok {
		t.Fatalf("blank value should report unset")
	}
	if _, ok := c.Lookup("ABSENT"); ok {
		t.Fatalf("absent value should report unset")
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  mirror ")
	if got := c.MustString("NAME"); got != "mirror" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMayValues(t *testing.T) {
	c := New().Prefix("M_")
	t.Setenv("M_PAGE", "25")
	t.Setenv("M_PAGE_BAD", "x")
	t.Setenv("M_DRY", "true")
	t.Setenv("M_DRY_BAD", "perhaps")
	t.Setenv("M_EVERY", "90s")
	t.Setenv("M_EVERY_BAD", "soon")
	t.Setenv("M_LIST", " a, ,b ,")
	t.Setenv("M_LIST_EMPTY", " , ")

	if c.MayInt("PAGE", 50) != 25 || c.MayInt("PAGE_BAD", 50) != 50 || c.MayInt("NOPE", 7) != 7 {
		t.Fatalf("MayInt mismatch")
	}
	if !c.MayBool("DRY", false) || c.MayBool("DRY_BAD", false) || !c.MayBool("NOPE", true) {
		t.Fatalf("MayBool mismatch")
	}
	if c.MayDuration("EVERY", time.Hour) != 90*time.Second || c.MayDuration("EVERY_BAD", time.Hour) != time.Hour {
		t.Fatalf("MayDuration mismatch")
	}
	if got := c.MayCSV("LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("MayCSV = %v", got)
	}
	if got := c.MayCSV("LIST_EMPTY", []string{"d"}); len(got) != 1 || got[0] != "d" {
		t.Fatalf("MayCSV empty = %v", got)
	}
	if c.MayString("NOPE", "def") != "def" {
		t.Fatalf("MayString default")
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	t.Setenv("E_PUSH", "HTTP")
	if got := c.MayEnum("PUSH", "ssh", "http", "ssh"); got != "http" {
		t.Fatalf("MayEnum = %q", got)
	}
	if got := c.MayEnum("MISSING", "ssh", "http", "ssh"); got != "ssh" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("E_BAD", "ftp")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "ssh", "http", "ssh") })
}
