package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// queryExecutor abstracts sql.DB and sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// ResultRepository stores job records, runs and ranked tables.
type ResultRepository struct {
	conn   *Connection
	logger logging.Logger
}

// NewResultRepository returns a repository over conn.
func NewResultRepository(conn *Connection, log logging.Logger) *ResultRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ResultRepository{conn: conn, logger: log.Named("result-repo")}
}

const upsertJobSQL = `
	INSERT INTO docking_jobs (
		job_id, receptor, ligand, status, error, search_space,
		best_energy, pose_count, clusters, created_at, finished_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	ON CONFLICT (job_id) DO UPDATE SET
		receptor = EXCLUDED.receptor,
		ligand = EXCLUDED.ligand,
		status = EXCLUDED.status,
		error = EXCLUDED.error,
		search_space = COALESCE(EXCLUDED.search_space, docking_jobs.search_space),
		best_energy = EXCLUDED.best_energy,
		pose_count = EXCLUDED.pose_count,
		clusters = EXCLUDED.clusters,
		finished_at = EXCLUDED.finished_at,
		updated_at = NOW()
`

const upsertRunSQL = `
	INSERT INTO docking_runs (
		run_id, job_id, seed, status, attempts, output_format,
		output_ref, log_ref, error, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (run_id) DO UPDATE SET
		status = EXCLUDED.status,
		attempts = EXCLUDED.attempts,
		output_format = EXCLUDED.output_format,
		output_ref = EXCLUDED.output_ref,
		log_ref = EXCLUDED.log_ref,
		error = EXCLUDED.error,
		started_at = EXCLUDED.started_at,
		finished_at = EXCLUDED.finished_at
`

const insertResultSQL = `
	INSERT INTO docking_results (
		job_id, rank, pose_id, energy, cluster_size, seed, run_id, pose_ref
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// UpsertJob records the current state of a job.
func (r *ResultRepository) UpsertJob(ctx context.Context, job *app.JobSummary) error {
	if job == nil || job.JobID == "" {
		return errors.InvalidParam("job id is required")
	}
	return upsertJob(ctx, r.conn.DB(), job)
}

// SaveOutcome replaces the runs and rows of a job and stores its final
// state in one transaction.
func (r *ResultRepository) SaveOutcome(ctx context.Context, o *app.Outcome) error {
	if o == nil || o.JobID == "" {
		return errors.InvalidParam("job id is required")
	}
	summary := o.Summary()
	err := r.conn.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := upsertJob(ctx, tx, summary); err != nil {
			return err
		}
		for _, run := range o.Runs {
			if _, err := tx.ExecContext(ctx, upsertRunSQL,
				run.ID, o.JobID, run.Seed, string(run.Status), run.Attempts, run.OutputFormat,
				run.OutputRef, run.LogRef, run.Error, nullTime(run.StartedAt), nullTime(run.FinishedAt),
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save run").WithDetail(run.ID)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM docking_results WHERE job_id = $1`, o.JobID); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear results").WithDetail(o.JobID)
		}
		if o.Table == nil {
			return nil
		}
		for _, row := range o.Table.Rows {
			if _, err := tx.ExecContext(ctx, insertResultSQL,
				o.JobID, row.Rank, row.PoseID, row.Energy, row.ClusterSize, row.Seed, row.RunID, row.PoseRef,
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save result row").WithDetailf("%s rank %d", o.JobID, row.Rank)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	rows := 0
	if o.Table != nil {
		rows = o.Table.Len()
	}
	r.logger.Debug("outcome saved", logging.JobID(o.JobID), logging.Int("runs", len(o.Runs)), logging.Int("rows", rows))
	return nil
}

func upsertJob(ctx context.Context, exec queryExecutor, job *app.JobSummary) error {
	var space interface{}
	if job.SearchSpace != nil {
		b, err := json.Marshal(job.SearchSpace)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode search space")
		}
		space = b
	}
	var best sql.NullFloat64
	if job.BestEnergy != nil {
		best = sql.NullFloat64{Float64: *job.BestEnergy, Valid: true}
	}
	created := job.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var finished sql.NullTime
	if job.FinishedAt != nil {
		finished = sql.NullTime{Time: *job.FinishedAt, Valid: true}
	}
	if _, err := exec.ExecContext(ctx, upsertJobSQL,
		job.JobID, job.Receptor, job.Ligand, string(job.Status), job.Error, space,
		best, job.PoseCount, job.Clusters, created, finished,
	); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save job").WithDetail(job.JobID)
	}
	return nil
}

// GetJob returns a job with its runs in seed order.
func (r *ResultRepository) GetJob(ctx context.Context, jobID string) (*app.JobSummary, error) {
	db := r.conn.DB()
	row := db.QueryRowContext(ctx, `
		SELECT job_id, receptor, ligand, status, error, search_space,
		       best_energy, pose_count, clusters, created_at, finished_at
		FROM docking_jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("job not found").WithDetail(jobID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load job").WithDetail(jobID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, job_id, seed, status, attempts, output_format,
		       output_ref, log_ref, error, started_at, finished_at
		FROM docking_runs WHERE job_id = $1 ORDER BY seed`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load runs").WithDetail(jobID)
	}
	defer rows.Close()
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan run").WithDetail(jobID)
		}
		job.Runs = append(job.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate runs").WithDetail(jobID)
	}
	return job, nil
}

// ListResults returns the ranked table of a job in rank order.
func (r *ResultRepository) ListResults(ctx context.Context, jobID string) (*app.Table, error) {
	db := r.conn.DB()
	t := &app.Table{JobID: jobID, Rows: []app.Row{}}
	err := db.QueryRowContext(ctx, `SELECT receptor, ligand FROM docking_jobs WHERE job_id = $1`, jobID).
		Scan(&t.Receptor, &t.Ligand)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("job not found").WithDetail(jobID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load job").WithDetail(jobID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT rank, pose_id, energy, cluster_size, seed, run_id, pose_ref
		FROM docking_results WHERE job_id = $1 ORDER BY rank`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load results").WithDetail(jobID)
	}
	defer rows.Close()
	for rows.Next() {
		var row app.Row
		if err := rows.Scan(&row.Rank, &row.PoseID, &row.Energy, &row.ClusterSize, &row.Seed, &row.RunID, &row.PoseRef); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan result row").WithDetail(jobID)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate results").WithDetail(jobID)
	}
	return t, nil
}

func scanJob(s scanner) (*app.JobSummary, error) {
	var (
		job      app.JobSummary
		status   string
		space    []byte
		best     sql.NullFloat64
		finished sql.NullTime
	)
	if err := s.Scan(&job.JobID, &job.Receptor, &job.Ligand, &status, &job.Error, &space,
		&best, &job.PoseCount, &job.Clusters, &job.CreatedAt, &finished); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if len(space) > 0 {
		var ss searchspace.SearchSpace
		if err := json.Unmarshal(space, &ss); err != nil {
			return nil, err
		}
		job.SearchSpace = &ss
	}
	if best.Valid {
		v := best.Float64
		job.BestEnergy = &v
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}

func scanRun(s scanner) (*domain.Run, error) {
	var (
		run      domain.Run
		status   string
		started  sql.NullTime
		finished sql.NullTime
	)
	if err := s.Scan(&run.ID, &run.JobID, &run.Seed, &status, &run.Attempts, &run.OutputFormat,
		&run.OutputRef, &run.LogRef, &run.Error, &started, &finished); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = started.Time
	run.FinishedAt = finished.Time
	return &run, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

var _ app.Repository = (*ResultRepository)(nil)

//Personal.AI order the ending
