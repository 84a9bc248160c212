//go:build integration_pg

package repo

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/store"
	"activitymirror/internal/services/mirror/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "mirror",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/mirror?sslmode=disable", host, port.Port())
}

func TestPG_Integration_RunLifecycle(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "activitymirror-test",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2, ConnectRetries: 10},
	}, store.WithLogger(zerolog.New(io.Discard)))
	require.NoError(t, err)
	defer func() { _ = st.Close(ctx) }()

	p := NewPG(st.PG)
	require.NoError(t, p.EnsureSchema(ctx))
	require.NoError(t, p.EnsureSchema(ctx), "schema is idempotent")

	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	run := domain.RunReport{RunID: "6f1c2d1e-8a7b-4c3d-9e0f-112233445566", Started: started}
	require.NoError(t, p.BeginRun(ctx, run))
	require.NoError(t, p.BeginRun(ctx, run), "begin is idempotent")

	rr := domain.RepoReport{Seq: 1, Source: "acme/lib", Target: "me/acme-lib", Status: domain.StatusCreated, Commits: 1}
	require.NoError(t, p.RecordRepo(ctx, run.RunID, started, rr))
	rr.Status = domain.StatusSynced
	require.NoError(t, p.RecordRepo(ctx, run.RunID, started, rr), "record upserts")

	other := domain.RepoReport{Seq: 2, Source: "acme/lib", Status: domain.StatusSkippedForeign}
	require.NoError(t, p.RecordRepo(ctx, run.RunID, started, other), "same source, distinct group")

	run.Finished = started.Add(time.Minute)
	run.Sources = 1
	run.Repos = []domain.RepoReport{rr, other}
	require.NoError(t, p.FinishRun(ctx, run))

	runs, err := p.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, 2, runs[0].Repos)
	require.NotNil(t, runs[0].Finished)
	assert.True(t, runs[0].Finished.Equal(run.Finished))

	d, err := p.Run(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, d.Results, 2)
	assert.Equal(t, "synced", d.Results[0].Status)
	assert.Equal(t, "skipped_foreign", d.Results[1].Status)
	assert.Empty(t, d.Errors)

	_, err = p.Run(ctx, "00000000-0000-4000-8000-000000000000")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}
