//go:build integration

package postgres_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/config"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/database/postgres"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// startPostgres launches PostgreSQL 16 and returns a config pointing at it
// with the repository migrations.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "blinddock_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:          host,
		Port:          p,
		User:          "test",
		Password:      "test",
		DBName:        "blinddock_test",
		SSLMode:       "disable",
		MigrationPath: "../../../../migrations",
	}
}

func TestMigrationsAndResultRepository(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	m, err := postgres.NewMigrator(cfg, nil)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Up())
	version, dirty, err := m.Status()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
	require.NoError(t, m.Up(), "re-running up is a no-op")

	conn, err := postgres.NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	defer conn.Close()
	repo := postgres.NewResultRepository(conn, nil)

	require.NoError(t, repo.UpsertJob(ctx, &app.JobSummary{JobID: "job-1", Receptor: "rec", Ligand: "lig", Status: domain.JobPending}))
	_, err = repo.ListResults(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	now := time.Now().UTC()
	out := &app.Outcome{
		JobID: "job-1", Receptor: "rec", Ligand: "lig", Status: domain.JobCompleted, Poses: 2,
		Runs: []*domain.Run{{ID: "job-1-s0", JobID: "job-1", Seed: 0, Status: domain.RunSucceeded, Attempts: 1, StartedAt: now, FinishedAt: now}},
		Table: &app.Table{JobID: "job-1", Receptor: "rec", Ligand: "lig", Rows: []app.Row{
			{Rank: 1, PoseID: "a", Energy: -8.1, ClusterSize: 2, Seed: 0, RunID: "job-1-s0"},
		}},
	}
	require.NoError(t, repo.SaveOutcome(ctx, out))
	require.NoError(t, repo.SaveOutcome(ctx, out), "saving twice replaces rows")

	job, err := repo.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	require.Len(t, job.Runs, 1)
	require.NotNil(t, job.BestEnergy)
	assert.InDelta(t, -8.1, *job.BestEnergy, 1e-9)

	table, err := repo.ListResults(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "a", table.Rows[0].PoseID)

	require.NoError(t, m.Down(1))
	version, _, err = m.Status()
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)
}

//Personal.AI order the ending
