package service

import (
	"context"
	"testing"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/store"
	"activitymirror/internal/services/journal/repo"
	"activitymirror/internal/services/mirror/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	name    string
	fails   []error
	begins  int
	records []string
	at      []time.Time
	schema  error
}

func (f *fakeRecorder) Name() string                       { return f.name }
func (f *fakeRecorder) EnsureSchema(context.Context) error { return f.schema }
func (f *fakeRecorder) next() error {
	if len(f.fails) == 0 {
		return nil
	}
	err := f.fails[0]
	f.fails = f.fails[1:]
	return err
}
func (f *fakeRecorder) BeginRun(context.Context, domain.RunReport) error {
	f.begins++
	return f.next()
}
func (f *fakeRecorder) RecordRepo(_ context.Context, _ string, at time.Time, r domain.RepoReport) error {
	if err := f.next(); err != nil {
		return err
	}
	f.records = append(f.records, r.Source)
	f.at = append(f.at, at)
	return nil
}
func (f *fakeRecorder) FinishRun(context.Context, domain.RunReport) error { return f.next() }

type historyRecorder struct {
	fakeRecorder
	runs []repo.RunSummary
}

func (h *historyRecorder) Recent(context.Context, int) ([]repo.RunSummary, error) { return h.runs, nil }
func (h *historyRecorder) Run(_ context.Context, id string) (repo.RunDetail, error) {
	for _, r := range h.runs {
		if r.RunID == id {
			return repo.RunDetail{RunSummary: r}, nil
		}
	}
	return repo.RunDetail{}, perr.NotFoundf("run %s not found", id)
}

func newJournal(recs ...repo.Recorder) *Journal {
	j := New(recs...)
	j.retryWait = time.Millisecond
	j.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return j
}

func TestJournal_FansOut(t *testing.T) {
	a, b := &fakeRecorder{name: "a"}, &fakeRecorder{name: "b"}
	j := newJournal(a, nil, b)
	require.True(t, j.Enabled())

	ctx := context.Background()
	require.NoError(t, j.Begin(ctx, domain.RunReport{RunID: "r"}))
	require.NoError(t, j.Record(ctx, "r", domain.RepoReport{Source: "acme/lib"}))
	require.NoError(t, j.Finish(ctx, domain.RunReport{RunID: "r"}))

	for _, f := range []*fakeRecorder{a, b} {
		assert.Equal(t, 1, f.begins)
		assert.Equal(t, []string{"acme/lib"}, f.records)
		assert.Equal(t, 2024, f.at[0].Year())
	}
}

func TestJournal_RetriesTransientOnce(t *testing.T) {
	a := &fakeRecorder{name: "pg", fails: []error{perr.Unavailablef("conn reset")}}
	j := newJournal(a)
	require.NoError(t, j.Record(context.Background(), "r", domain.RepoReport{Source: "acme/lib"}))
	assert.Equal(t, []string{"acme/lib"}, a.records)
}

func TestJournal_PermanentErrorDoesNotStopOthers(t *testing.T) {
	bad := &fakeRecorder{name: "pg", fails: []error{perr.New(perr.ErrorCodeDB, "no table")}}
	good := &fakeRecorder{name: "ch"}
	j := newJournal(bad, good)

	err := j.Record(context.Background(), "r", domain.RepoReport{Source: "acme/lib"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pg record")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeDB))
	assert.Empty(t, bad.records)
	assert.Equal(t, []string{"acme/lib"}, good.records)
}

func TestJournal_Recent(t *testing.T) {
	j := newJournal(&fakeRecorder{name: "ch"})
	_, err := j.Recent(context.Background(), 5)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotImplemented))

	h := &historyRecorder{fakeRecorder: fakeRecorder{name: "pg"}, runs: []repo.RunSummary{{RunID: "r1"}}}
	j = newJournal(&fakeRecorder{name: "ch"}, h)
	got, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "r1", got[0].RunID)

	d, err := j.Run(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", d.RunID)
	_, err = j.Run(context.Background(), "r9")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestOpen_NoBackends(t *testing.T) {
	j, err := Open(context.Background(), &store.Store{})
	require.NoError(t, err)
	assert.False(t, j.Enabled())
	require.NoError(t, j.Begin(context.Background(), domain.RunReport{}))

	j, err = Open(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, j.Enabled())
}
