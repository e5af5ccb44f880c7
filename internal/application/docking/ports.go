package docking

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Structure loading
// ─────────────────────────────────────────────────────────────────────────────

// StructureLoader resolves a job input into a parsed structure.
type StructureLoader interface {
	Load(ctx context.Context, in domain.Input) (*structure.Structure, error)
}

// FileLoader reads inputs from the local filesystem.
type FileLoader struct{}

// Load parses in.Path.  The format comes from in.Format or the file
// extension, and the id from in.ID or the file stem.
func (FileLoader) Load(_ context.Context, in domain.Input) (*structure.Structure, error) {
	format := in.Format
	if format == "" {
		f, err := structure.DetectFormat(in.Path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	id := in.ID
	if id == "" {
		id = structure.Stem(in.Path)
	}
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidStructure, "cannot open structure file").WithDetail(in.Path)
	}
	defer f.Close()
	return structure.Parse(f, format, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence, cache, lock and events
// ─────────────────────────────────────────────────────────────────────────────

// JobSummary is the queryable record of a job.
type JobSummary struct {
	JobID       string                   `json:"job_id"`
	Receptor    string                   `json:"receptor"`
	Ligand      string                   `json:"ligand"`
	Status      domain.JobStatus         `json:"status"`
	Error       string                   `json:"error,omitempty"`
	SearchSpace *searchspace.SearchSpace `json:"search_space,omitempty"`
	Runs        []*domain.Run            `json:"runs,omitempty"`
	BestEnergy  *float64                 `json:"best_energy,omitempty"`
	PoseCount   int                      `json:"pose_count"`
	Clusters    int                      `json:"clusters"`
	CreatedAt   time.Time                `json:"created_at"`
	FinishedAt  *time.Time               `json:"finished_at,omitempty"`
}

// Repository persists job records and result tables.
type Repository interface {
	// UpsertJob records the current state of a job without touching its
	// runs or results.
	UpsertJob(ctx context.Context, job *JobSummary) error
	// SaveOutcome stores the final job state, its runs and its table in one
	// transaction.
	SaveOutcome(ctx context.Context, o *Outcome) error
	GetJob(ctx context.Context, jobID string) (*JobSummary, error)
	ListResults(ctx context.Context, jobID string) (*Table, error)
}

// ResultCache keeps finished tables close to the API.  Get reports a miss
// with a NotFound error.
type ResultCache interface {
	GetTable(ctx context.Context, jobID string) (*Table, error)
	PutTable(ctx context.Context, jobID string, t *Table) error
}

// CacheInvalidator is implemented by caches that can drop a job's table.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, jobID string) error
}

// OutputPurger is implemented by output stores that can remove every run
// output of a job.
type OutputPurger interface {
	DeleteJob(ctx context.Context, jobID string) error
}

// TableLoadFunc produces a result table and reports whether it may be
// cached.
type TableLoadFunc func(ctx context.Context) (t *Table, cacheable bool, err error)

// TableLoader is implemented by caches that coalesce concurrent loads of the
// same job.
type TableLoader interface {
	GetOrLoad(ctx context.Context, jobID string, load TableLoadFunc) (*Table, error)
}

// JobLocker guards against two workers executing the same job id.  Lock
// fails with CodeJobLocked when another holder owns the job.
type JobLocker interface {
	Lock(ctx context.Context, jobID string) (unlock func(context.Context) error, err error)
}

// EventType classifies job events.
type EventType string

const (
	EventJobStarted   EventType = "docking.job.started"
	EventJobCompleted EventType = "docking.job.completed"
	EventJobFailed    EventType = "docking.job.failed"
)

// JobEvent is published on every job state change.
type JobEvent struct {
	ID         string           `json:"id"`
	Type       EventType        `json:"type"`
	JobID      string           `json:"job_id"`
	Receptor   string           `json:"receptor"`
	Ligand     string           `json:"ligand"`
	Status     domain.JobStatus `json:"status"`
	BestEnergy *float64         `json:"best_energy,omitempty"`
	Rows       int              `json:"rows"`
	Error      string           `json:"error,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewJobEvent stamps an event with a fresh id and the current time.
func NewJobEvent(t EventType, o *Outcome) JobEvent {
	ev := JobEvent{
		ID:         uuid.NewString(),
		Type:       t,
		JobID:      o.JobID,
		Receptor:   o.Receptor,
		Ligand:     o.Ligand,
		Status:     o.Status,
		Error:      o.Error,
		OccurredAt: time.Now().UTC(),
	}
	if o.Table != nil {
		ev.Rows = o.Table.Len()
		if best, ok := o.Table.Best(); ok {
			ev.BestEnergy = &best
		}
	}
	return ev
}

// EventPublisher delivers job events.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, ev JobEvent) error
}

// JobObserver is notified once per finished job, typically for metrics.
type JobObserver interface {
	JobFinished(o *Outcome)
}

//Personal.AI order the ending
