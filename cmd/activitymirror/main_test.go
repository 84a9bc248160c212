package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"activitymirror/internal/platform/config"
	perr "activitymirror/internal/platform/errors"
	kit "activitymirror/internal/platform/testkit"
	"activitymirror/internal/settings"

	"activitymirror/internal/services/mirror/domain"
	mirrormod "activitymirror/internal/services/mirror/module"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTOML = `
[[services]]
service_type = "gitea"
username = "me"
url = "https://codeberg.org"
token = "src-token"

[github]
username = "me"
token = "gh-token"
redact_level = "hashed"
`

// executeCommand runs the root command with args and returns what it printed
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	kit.MustContain(t, out, "activitymirror dev")

	out, err = executeCommand(t, "version", "--json")
	require.NoError(t, err)
	var bi map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &bi))
	assert.Equal(t, "activitymirror", bi["service"])
}

func TestCheck_Valid(t *testing.T) {
	p := kit.WriteFile(t, t.TempDir(), "settings.toml", validTOML)
	out, err := executeCommand(t, "check", p)
	require.NoError(t, err)
	kit.MustContain(t, out, ": ok")
	kit.MustContain(t, out, "hashed")
	kit.MustContain(t, out, "gitea https://codeberg.org (me)")
}

const encryptedTOML = `
[[services]]
service_type = "gitea"
username = "me"
url = "https://codeberg.org"
token = "t"

[github]
username = "me"
token = "g"
redact_level = "encrypted"
`

func TestCheck_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name, file, body string
		contains         string
	}{
		{"missing file", "", "", "read settings"},
		{"no services", "empty.toml", "[github]\nusername='me'\ntoken='t'\n", "services"},
		{"encrypted", "enc.toml", encryptedTOML, "github.redact_level"},
		{"bad ext", "s.json", "{}", "unsupported settings format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := dir + "/nope.toml"
			if tc.file != "" {
				p = kit.WriteFile(t, dir, tc.file, tc.body)
			}
			_, err := executeCommand(t, "check", p)
			require.Error(t, err)
			assert.Equal(t, exitConfig, exitCode(err))
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestSync_MissingSettings(t *testing.T) {
	_, err := executeCommand(t, t.TempDir()+"/missing.toml")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfig))
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, exitErr, exitCode(fmt.Errorf("boom")))
	assert.Equal(t, exitErr, exitCode(perr.Remotef("github down")))
	assert.Equal(t, exitConfig, exitCode(perr.Configf("bad")))
	assert.Equal(t, exitFailed, exitCode(fmt.Errorf("2 of 3 %w", errReposFailed)))
}

func TestPathArg(t *testing.T) {
	assert.Equal(t, settings.DefaultPath, pathArg(nil))
	assert.Equal(t, settings.DefaultPath, pathArg([]string{""}))
	assert.Equal(t, "x.yaml", pathArg([]string{"x.yaml"}))
}

func TestPrintReport(t *testing.T) {
	run := domain.RunReport{
		RunID:   "r1",
		DryRun:  true,
		Sources: 1,
		Repos: []domain.RepoReport{
			{Source: "me/lib", Target: "me/lib", Status: domain.StatusSynced, Commits: 3, Pushed: 3},
			{Source: "me/app", Target: "me/app", Status: domain.StatusFailed, Err: &perr.Wire{Message: "push rejected"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, run, false))
	out := buf.String()
	kit.MustContain(t, out, "run r1 (dry run): 1 sources, 2 repositories")
	kit.MustContain(t, out, "SOURCE")
	kit.MustContain(t, out, "push rejected")

	buf.Reset()
	require.NoError(t, printReport(&buf, run, true))
	var back domain.RunReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 1, back.Failed())
}

func TestStoreConfig(t *testing.T) {
	s := &settings.Settings{Journal: settings.Journal{ClickhouseURL: "clickhouse://localhost:9000/default"}}
	t.Setenv("SERVICE_CH_DIAL_TIMEOUT", "2s")
	cfg := storeConfig(s, config.New())
	assert.False(t, cfg.PG.Enabled)
	assert.True(t, cfg.CH.Enabled)
	assert.Equal(t, 2*time.Second, cfg.CH.DialTimeout)
	assert.Equal(t, "activitymirror", cfg.AppName)
}

func TestWire_NoJournal(t *testing.T) {
	s, err := settings.Decode([]byte(validTOML), ".toml")
	require.NoError(t, err)
	s.Sync.Workdir = t.TempDir()

	a, err := wire(context.Background(), s, mirrormod.Options{DryRun: true}, "test")
	require.NoError(t, err)
	defer a.close(context.Background())

	assert.False(t, a.journal.Enabled())
	assert.True(t, a.mirror.Options().DryRun)
	assert.NotNil(t, a.sync)
	assert.False(t, a.status.Running())
}

type fakeSync struct {
	calls   atomic.Int32
	running atomic.Bool
}

func (f *fakeSync) Sync(context.Context) (domain.RunReport, error) {
	n := f.calls.Add(1)
	return domain.RunReport{RunID: fmt.Sprintf("run-%d", n)}, nil
}

func (f *fakeSync) Last() (domain.RunReport, bool) { return domain.RunReport{}, false }
func (f *fakeSync) Running() bool                  { return f.running.Load() }

func TestTick_RunsImmediatelyAndOnInterval(t *testing.T) {
	f := &fakeSync{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tick(ctx, 10*time.Millisecond, f, f)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not stop on cancel")
	}
}

func TestTick_SkipsWhileRunning(t *testing.T) {
	f := &fakeSync{}
	f.running.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	tick(ctx, 5*time.Millisecond, f, f)
	assert.Zero(t, f.calls.Load())
}
