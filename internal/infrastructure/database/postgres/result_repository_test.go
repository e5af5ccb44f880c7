package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/pkg/errors"
)

var (
	jobColumns = []string{"job_id", "receptor", "ligand", "status", "error", "search_space",
		"best_energy", "pose_count", "clusters", "created_at", "finished_at"}
	runColumns = []string{"run_id", "job_id", "seed", "status", "attempts", "output_format",
		"output_ref", "log_ref", "error", "started_at", "finished_at"}
	resultColumns = []string{"rank", "pose_id", "energy", "cluster_size", "seed", "run_id", "pose_ref"}
)

type ResultRepoTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo *ResultRepository
	ctx  context.Context
}

func (s *ResultRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.repo = NewResultRepository(NewConnectionWithDB(s.db, nil), nil)
	s.ctx = context.Background()
}

func (s *ResultRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *ResultRepoTestSuite) TestUpsertJob() {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.mock.ExpectExec("INSERT INTO docking_jobs").
		WithArgs("job-1", "rec", "lig", "pending", "", nil, sql.NullFloat64{}, 0, 0, created, sql.NullTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.repo.UpsertJob(s.ctx, &app.JobSummary{JobID: "job-1", Receptor: "rec", Ligand: "lig", Status: domain.JobPending, CreatedAt: created})
	s.NoError(err)
}

func (s *ResultRepoTestSuite) TestUpsertJob_RequiresID() {
	err := s.repo.UpsertJob(s.ctx, &app.JobSummary{})
	s.True(errors.IsCode(err, errors.CodeInvalidParam))
}

func (s *ResultRepoTestSuite) TestUpsertJob_DatabaseError() {
	s.mock.ExpectExec("INSERT INTO docking_jobs").WillReturnError(sql.ErrConnDone)
	err := s.repo.UpsertJob(s.ctx, &app.JobSummary{JobID: "job-1", Status: domain.JobPending})
	s.True(errors.IsCode(err, errors.CodeDatabase))
}

func (s *ResultRepoTestSuite) outcome() *app.Outcome {
	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()
	return &app.Outcome{
		JobID:    "job-1",
		Receptor: "rec",
		Ligand:   "lig",
		Status:   domain.JobCompleted,
		Runs: []*domain.Run{
			{ID: "job-1-s1", JobID: "job-1", Seed: 1, Status: domain.RunSucceeded, Attempts: 1, OutputFormat: "pdbqt", OutputRef: "job-1/seed-1/out", LogRef: "job-1/seed-1/log", StartedAt: started, FinishedAt: finished},
			{ID: "job-1-s2", JobID: "job-1", Seed: 2, Status: domain.RunFailed, Attempts: 3, Error: "boom"},
		},
		Poses: 9,
		Table: &app.Table{JobID: "job-1", Receptor: "rec", Ligand: "lig", Rows: []app.Row{
			{Rank: 1, PoseID: "job-1-s1-m1", Energy: -9.2, ClusterSize: 3, Seed: 1, RunID: "job-1-s1", PoseRef: "job-1/seed-1/out#1"},
			{Rank: 2, PoseID: "job-1-s1-m4", Energy: -7.5, ClusterSize: 1, Seed: 1, RunID: "job-1-s1", PoseRef: "job-1/seed-1/out#4"},
		}},
	}
}

func (s *ResultRepoTestSuite) TestSaveOutcome_Transaction() {
	o := s.outcome()
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO docking_jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO docking_runs").
		WithArgs("job-1-s1", "job-1", int64(1), "succeeded", 1, "pdbqt", "job-1/seed-1/out", "job-1/seed-1/log", "",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO docking_runs").
		WithArgs("job-1-s2", "job-1", int64(2), "failed", 3, "", "", "", "boom", sql.NullTime{}, sql.NullTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("DELETE FROM docking_results").WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec("INSERT INTO docking_results").
		WithArgs("job-1", 1, "job-1-s1-m1", -9.2, 3, int64(1), "job-1-s1", "job-1/seed-1/out#1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO docking_results").
		WithArgs("job-1", 2, "job-1-s1-m4", -7.5, 1, int64(1), "job-1-s1", "job-1/seed-1/out#4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(s.repo.SaveOutcome(s.ctx, o))
}

func (s *ResultRepoTestSuite) TestSaveOutcome_RollsBackOnFailure() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO docking_jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO docking_runs").WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	err := s.repo.SaveOutcome(s.ctx, s.outcome())
	s.True(errors.IsCode(err, errors.CodeDatabase))
}

func (s *ResultRepoTestSuite) TestSaveOutcome_EmptyTable() {
	o := &app.Outcome{JobID: "job-2", Status: domain.JobFailed, Error: "no run succeeded"}
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO docking_jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("DELETE FROM docking_results").WithArgs("job-2").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	s.NoError(s.repo.SaveOutcome(s.ctx, o))
}

func (s *ResultRepoTestSuite) TestGetJob() {
	created := time.Now().UTC().Add(-time.Hour)
	finished := time.Now().UTC()
	space := []byte(`{"center":[1,2,3],"extents":[20,22,24],"margin":5,"mode":"blind"}`)
	s.mock.ExpectQuery("FROM docking_jobs WHERE job_id = \\$1").WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-1", "rec", "lig", "completed", "", space, -9.2, 9, 4, created, finished))
	s.mock.ExpectQuery("FROM docking_runs WHERE job_id = \\$1 ORDER BY seed").WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow("job-1-s1", "job-1", 1, "succeeded", 1, "pdbqt", "out", "log", "", created, finished).
			AddRow("job-1-s2", "job-1", 2, "failed", 3, "", "", "", "boom", nil, nil))

	job, err := s.repo.GetJob(s.ctx, "job-1")
	s.Require().NoError(err)
	s.Equal(domain.JobCompleted, job.Status)
	s.Require().NotNil(job.BestEnergy)
	s.InDelta(-9.2, *job.BestEnergy, 1e-9)
	s.Require().NotNil(job.SearchSpace)
	s.InDelta(22, job.SearchSpace.Extents[1], 1e-9)
	s.Require().NotNil(job.FinishedAt)
	s.Require().Len(job.Runs, 2)
	s.Equal(domain.RunSucceeded, job.Runs[0].Status)
	s.True(job.Runs[1].StartedAt.IsZero())
	s.Equal("boom", job.Runs[1].Error)
}

func (s *ResultRepoTestSuite) TestGetJob_NotFound() {
	s.mock.ExpectQuery("FROM docking_jobs").WithArgs("nope").WillReturnRows(sqlmock.NewRows(jobColumns))

	_, err := s.repo.GetJob(s.ctx, "nope")
	s.True(errors.IsNotFound(err))
}

func (s *ResultRepoTestSuite) TestListResults() {
	s.mock.ExpectQuery("SELECT receptor, ligand FROM docking_jobs").WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"receptor", "ligand"}).AddRow("rec", "lig"))
	s.mock.ExpectQuery("FROM docking_results WHERE job_id = \\$1 ORDER BY rank").WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(resultColumns).
			AddRow(1, "p1", -9.2, 3, 1, "job-1-s1", "ref1").
			AddRow(2, "p2", -7.5, 1, 2, "job-1-s2", "ref2"))

	t, err := s.repo.ListResults(s.ctx, "job-1")
	s.Require().NoError(err)
	s.Equal("rec", t.Receptor)
	s.Require().Len(t.Rows, 2)
	s.Equal(1, t.Rows[0].Rank)
	s.InDelta(-7.5, t.Rows[1].Energy, 1e-9)
	s.Equal(int64(2), t.Rows[1].Seed)
}

func (s *ResultRepoTestSuite) TestListResults_EmptyTable() {
	s.mock.ExpectQuery("SELECT receptor, ligand FROM docking_jobs").WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows([]string{"receptor", "ligand"}).AddRow("rec", "lig"))
	s.mock.ExpectQuery("FROM docking_results").WithArgs("job-2").WillReturnRows(sqlmock.NewRows(resultColumns))

	t, err := s.repo.ListResults(s.ctx, "job-2")
	s.Require().NoError(err)
	s.NotNil(t.Rows)
	s.Zero(t.Len())
}

func (s *ResultRepoTestSuite) TestListResults_NotFound() {
	s.mock.ExpectQuery("SELECT receptor, ligand FROM docking_jobs").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"receptor", "ligand"}))

	_, err := s.repo.ListResults(s.ctx, "nope")
	s.True(errors.IsNotFound(err))
}

func TestResultRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ResultRepoTestSuite))
}

//Personal.AI order the ending
