package docking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

func TestNewJob(t *testing.T) {
	space := searchspace.SearchSpace{Extents: structure.Vec3{20, 20, 20}}

	t.Run("derives ids", func(t *testing.T) {
		job, err := NewJob("", Input{Path: "in/1abc.pdbqt"}, Input{Path: "in/aspirin.sdf"}, space, Params{Exhaustiveness: 8})
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "1abc", job.Target.ID)
		assert.Equal(t, "aspirin", job.Ligand.ID)
		assert.Equal(t, JobPending, job.Status)
	})

	t.Run("rejects zero extents", func(t *testing.T) {
		_, err := NewJob("j", Input{Path: "r"}, Input{Path: "l"}, searchspace.SearchSpace{}, Params{Exhaustiveness: 8})
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	})

	t.Run("rejects missing paths", func(t *testing.T) {
		_, err := NewJob("j", Input{}, Input{Path: "l"}, space, Params{Exhaustiveness: 8})
		assert.Error(t, err)
	})

	t.Run("rejects zero exhaustiveness", func(t *testing.T) {
		_, err := NewJob("j", Input{Path: "r"}, Input{Path: "l"}, space, Params{})
		assert.Error(t, err)
	})

	t.Run("rejects repeated seeds", func(t *testing.T) {
		_, err := NewJob("j", Input{Path: "r"}, Input{Path: "l"}, space, Params{Exhaustiveness: 8, Seeds: []int64{7, 3, 7}})
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

		job, err := NewJob("j", Input{Path: "r"}, Input{Path: "l"}, space, Params{Exhaustiveness: 8, Seeds: []int64{7, 3}})
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 3}, job.Params.Seeds)
	})

	t.Run("rejects unsafe ids", func(t *testing.T) {
		for _, id := range []string{".", "..", "../etc", "a/b", "-lead", "job 1", string(make([]byte, MaxJobIDLength+1))} {
			_, err := NewJob(id, Input{Path: "r"}, Input{Path: "l"}, space, Params{Exhaustiveness: 8})
			assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), "%q", id)
		}
		for _, id := range []string{"job-1", "2024.06.01_run", "A"} {
			_, err := NewJob(id, Input{Path: "r"}, Input{Path: "l"}, space, Params{Exhaustiveness: 8})
			assert.NoError(t, err, id)
		}
	})
}

func TestValidateSeeds(t *testing.T) {
	assert.NoError(t, ValidateSeeds(nil))
	assert.NoError(t, ValidateSeeds([]int64{1, 2, 3}))
	err := ValidateSeeds([]int64{4, 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seeds must be distinct")
}

func TestJobLifecycle(t *testing.T) {
	job := &Job{ID: "j"}
	job.Start()
	assert.Equal(t, JobRunning, job.Status)
	assert.False(t, job.StartedAt.IsZero())

	job.Fail(errors.New(errors.CodeAllRunsFailed, "nothing docked"))
	assert.Equal(t, JobFailed, job.Status)
	assert.Contains(t, job.Error, "nothing docked")
	assert.False(t, job.FinishedAt.IsZero())
}

func TestRunTransitions(t *testing.T) {
	t.Run("success then demotion", func(t *testing.T) {
		run := NewRun("j", 4)
		assert.Equal(t, "j-s4", run.ID)
		require.NoError(t, run.Start())
		require.NoError(t, run.Succeed("pdbqt", StoredOutput{OutputRef: "j/seed-4/out.pdbqt"}))
		assert.True(t, run.Status.IsTerminal())
		assert.Equal(t, "pdbqt", run.OutputFormat)
		require.NoError(t, run.Fail(errors.MalformedOutput("no MODEL records")))
		assert.Equal(t, RunFailed, run.Status)
		assert.Contains(t, run.Error, "no MODEL records")
	})

	t.Run("retry keeps running", func(t *testing.T) {
		run := NewRun("j", 1)
		require.NoError(t, run.Start())
		require.NoError(t, run.Start())
		assert.Equal(t, 2, run.Attempts)
		assert.Equal(t, RunRunning, run.Status)
	})

	t.Run("pending can fail", func(t *testing.T) {
		run := NewRun("j", 1)
		require.NoError(t, run.Fail(nil))
		assert.Zero(t, run.Attempts)
	})

	illegal := []struct {
		name string
		do   func(*Run) error
	}{
		{"pending to succeeded", func(r *Run) error { return r.Succeed("pdbqt", StoredOutput{}) }},
		{"pending to timed out", func(r *Run) error { return r.TimeOut(nil) }},
	}
	for _, tc := range illegal {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.do(NewRun("j", 1))
			assert.True(t, errors.IsCode(err, errors.CodeConflict))
		})
	}

	t.Run("timed out is final", func(t *testing.T) {
		run := NewRun("j", 1)
		require.NoError(t, run.Start())
		require.NoError(t, run.TimeOut(nil))
		assert.Error(t, run.Fail(nil))
		assert.Error(t, run.Start())
	})
}

func TestOutputKey(t *testing.T) {
	key := OutputKey{JobID: "job 1", Seed: 3, Receptor: "1abc", Ligand: "lig/a"}
	assert.Equal(t, "job_1/seed-3", key.Prefix())
	assert.Equal(t, "_/seed-1", OutputKey{JobID: ".", Seed: 1}.Prefix())
	assert.Equal(t, "__/", JobPrefix(".."))
	assert.Equal(t, "1abc__lig_a_out.pdbqt", key.OutputName("pdbqt"))
	assert.Equal(t, "1abc__lig_a.log", key.LogName())
	assert.Equal(t, "unnamed__lig_a_out.out", OutputKey{Ligand: "lig/a"}.OutputName(""))
}

func TestPool(t *testing.T) {
	p := NewPool(0)
	assert.Equal(t, 1, p.Size())
	require.NoError(t, p.Acquire(context.Background()))
	assert.Equal(t, 1, p.InUse())
	p.Release()
	assert.Zero(t, p.InUse())
}

//Personal.AI order the ending
