// Package docking models docking jobs and their per-seed runs, defines the
// engine and raw-output storage ports, and executes runs on a bounded worker
// pool with per-run timeouts and transient-failure retries.
package docking

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Status enums
// ─────────────────────────────────────────────────────────────────────────────

// RunStatus is the lifecycle state of one seeded engine invocation.
//
//	pending → running → succeeded | failed | timed_out
//	succeeded → failed   (demotion when the output cannot be parsed)
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunTimedOut  RunStatus = "timed_out"
)

// IsTerminal reports whether no further transition is expected.
func (s RunStatus) IsTerminal() bool {
	return s == RunSucceeded || s == RunFailed || s == RunTimedOut
}

var runTransitions = map[RunStatus][]RunStatus{
	RunPending:   {RunRunning, RunFailed},
	RunRunning:   {RunSucceeded, RunFailed, RunTimedOut},
	RunSucceeded: {RunFailed},
}

// JobStatus is the lifecycle state of a docking job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value Objects
// ─────────────────────────────────────────────────────────────────────────────

// Input references a structure file handed to the engine.
type Input struct {
	ID     string           `json:"id"`
	Path   string           `json:"path"`
	Format structure.Format `json:"format"`
}

// Params are the engine parameters shared by every run of a job.  Seeds, when
// empty, are derived by the Runner.
type Params struct {
	Exhaustiveness int     `json:"exhaustiveness"`
	NumModes       int     `json:"num_modes"`
	Seeds          []int64 `json:"seeds,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Job
// ─────────────────────────────────────────────────────────────────────────────

// Job is one receptor–ligand docking request with its resolved search space.
type Job struct {
	ID         string                  `json:"id"`
	Target     Input                   `json:"target"`
	Ligand     Input                   `json:"ligand"`
	Space      searchspace.SearchSpace `json:"search_space"`
	Params     Params                  `json:"params"`
	Status     JobStatus               `json:"status"`
	Error      string                  `json:"error,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	StartedAt  time.Time               `json:"started_at,omitempty"`
	FinishedAt time.Time               `json:"finished_at,omitempty"`
}

// MaxJobIDLength bounds client-chosen job ids.
const MaxJobIDLength = 128

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateJobID rejects ids that are not usable as a single path segment.
// The empty id is accepted; callers replace it with a UUID.
func ValidateJobID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxJobIDLength || !jobIDPattern.MatchString(id) {
		return errors.InvalidParam("job id must match [A-Za-z0-9][A-Za-z0-9._-]* and be at most 128 characters").
			WithDetail(id)
	}
	return nil
}

// ValidateSeeds rejects repeated seeds.  Each seed owns one output
// location, so a repeat would make two runs write the same files.
func ValidateSeeds(seeds []int64) error {
	seen := make(map[int64]struct{}, len(seeds))
	for _, s := range seeds {
		if _, dup := seen[s]; dup {
			return errors.InvalidParam("seeds must be distinct").WithDetailf("seed %d repeated", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// NewJob validates its inputs and returns a pending Job.  An empty id is
// replaced by a random UUID.
func NewJob(id string, target, ligand Input, space searchspace.SearchSpace, params Params) (*Job, error) {
	if target.Path == "" || ligand.Path == "" {
		return nil, errors.InvalidParam("target and ligand paths are required")
	}
	if err := ValidateJobID(id); err != nil {
		return nil, err
	}
	if err := ValidateSeeds(params.Seeds); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		if space.Extents[i] <= 0 {
			return nil, errors.InvalidParam("search space extents must be positive").WithDetail(space.String())
		}
	}
	if params.Exhaustiveness < 1 {
		return nil, errors.InvalidParam("exhaustiveness must be >= 1")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if target.ID == "" {
		target.ID = structure.Stem(target.Path)
	}
	if ligand.ID == "" {
		ligand.ID = structure.Stem(ligand.Path)
	}
	return &Job{
		ID:        id,
		Target:    target,
		Ligand:    ligand,
		Space:     space,
		Params:    params,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Start marks the job running.
func (j *Job) Start() {
	j.Status = JobRunning
	j.StartedAt = time.Now().UTC()
}

// Complete marks the job completed.
func (j *Job) Complete() {
	j.Status = JobCompleted
	j.FinishedAt = time.Now().UTC()
}

// Fail marks the job failed with err.
func (j *Job) Fail(err error) {
	j.Status = JobFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.FinishedAt = time.Now().UTC()
}

// ─────────────────────────────────────────────────────────────────────────────
// Run
// ─────────────────────────────────────────────────────────────────────────────

// Run is one seeded engine invocation of a job.  Retries of a transient
// failure reuse the same Run and seed.
type Run struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	Seed         int64     `json:"seed"`
	Status       RunStatus `json:"status"`
	Attempts     int       `json:"attempts"`
	OutputRef    string    `json:"output_ref,omitempty"`
	LogRef       string    `json:"log_ref,omitempty"`
	OutputFormat string    `json:"output_format,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
}

// RunID derives the deterministic run identifier for a job and seed.
func RunID(jobID string, seed int64) string {
	return fmt.Sprintf("%s-s%d", jobID, seed)
}

// NewRun returns a pending run for seed.
func NewRun(jobID string, seed int64) *Run {
	return &Run{ID: RunID(jobID, seed), JobID: jobID, Seed: seed, Status: RunPending}
}

func (r *Run) transition(to RunStatus) error {
	for _, allowed := range runTransitions[r.Status] {
		if allowed == to {
			r.Status = to
			return nil
		}
	}
	return errors.Conflict("illegal run status transition").
		WithDetailf("%s: %s -> %s", r.ID, r.Status, to)
}

// Start moves the run to running.  Repeated attempts keep it running.
func (r *Run) Start() error {
	r.Attempts++
	if r.Status == RunRunning {
		return nil
	}
	if err := r.transition(RunRunning); err != nil {
		return err
	}
	r.StartedAt = time.Now().UTC()
	return nil
}

// Succeed records the persisted output of the run.
func (r *Run) Succeed(format string, stored StoredOutput) error {
	if err := r.transition(RunSucceeded); err != nil {
		return err
	}
	r.OutputFormat = format
	r.OutputRef = stored.OutputRef
	r.LogRef = stored.LogRef
	r.FinishedAt = time.Now().UTC()
	return nil
}

// Fail records a terminal failure.  It also demotes a succeeded run whose
// output turned out to be unusable.
func (r *Run) Fail(err error) error {
	if e := r.transition(RunFailed); e != nil {
		return e
	}
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now().UTC()
	return nil
}

// TimeOut records that the run exceeded its deadline.
func (r *Run) TimeOut(err error) error {
	if e := r.transition(RunTimedOut); e != nil {
		return e
	}
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now().UTC()
	return nil
}

// Duration returns the wall time between start and finish.
func (r *Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded returns the runs in status succeeded.
func Succeeded(runs []*Run) []*Run {
	var out []*Run
	for _, r := range runs {
		if r.Status == RunSucceeded {
			out = append(out, r)
		}
	}
	return out
}

//Personal.AI order the ending
