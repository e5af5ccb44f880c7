package docking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Query
// ─────────────────────────────────────────────────────────────────────────────

// QueryService reads job records and result tables, serving tables from the
// cache when possible.
type QueryService struct {
	repo   Repository
	cache  ResultCache
	logger logging.Logger
}

// NewQueryService returns a QueryService.  cache may be nil.
func NewQueryService(repo Repository, cache ResultCache, logger logging.Logger) *QueryService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &QueryService{repo: repo, cache: cache, logger: logger.Named("query")}
}

// Job returns the record of jobID.
func (s *QueryService) Job(ctx context.Context, jobID string) (*JobSummary, error) {
	if jobID == "" {
		return nil, errors.InvalidParam("job id is required")
	}
	return s.repo.GetJob(ctx, jobID)
}

// Results returns the ranked table of a finished job.
func (s *QueryService) Results(ctx context.Context, jobID string) (*Table, error) {
	if jobID == "" {
		return nil, errors.InvalidParam("job id is required")
	}
	load := func(ctx context.Context) (*Table, bool, error) { return s.load(ctx, jobID) }
	if loader, ok := s.cache.(TableLoader); ok {
		return loader.GetOrLoad(ctx, jobID, load)
	}

	if s.cache != nil {
		t, err := s.cache.GetTable(ctx, jobID)
		if err == nil {
			return t, nil
		}
		if !errors.IsNotFound(err) {
			s.logger.Warn("result cache unavailable", logging.JobID(jobID), logging.Err(err))
		}
	}
	t, cacheable, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && cacheable {
		if err := s.cache.PutTable(ctx, jobID, t); err != nil {
			s.logger.Warn("result table not cached", logging.JobID(jobID), logging.Err(err))
		}
	}
	return t, nil
}

// load reads the table from the repository.  Only completed jobs are
// cacheable; a failed job may be resubmitted under the same id.
func (s *QueryService) load(ctx context.Context, jobID string) (*Table, bool, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if job.Status != domain.JobCompleted && job.Status != domain.JobFailed {
		return nil, false, errors.Conflict("job has not finished").WithDetailf("%s is %s", jobID, job.Status)
	}
	t, err := s.repo.ListResults(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	return t, job.Status == domain.JobCompleted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Submission
// ─────────────────────────────────────────────────────────────────────────────

// Submitter accepts a request for asynchronous execution and returns its job
// id.
type Submitter interface {
	Submit(ctx context.Context, req Request) (string, error)
}

// RequestPublisher enqueues job requests for workers.
type RequestPublisher interface {
	PublishJobRequest(ctx context.Context, req Request) error
}

func validateRequest(req *Request) error {
	if req.Receptor.Path == "" || req.Ligand.Path == "" {
		return errors.InvalidParam("receptor and ligand paths are required")
	}
	if err := domain.ValidateJobID(req.JobID); err != nil {
		return err
	}
	if err := domain.ValidateSeeds(req.Params.Seeds); err != nil {
		return err
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	return nil
}

func pendingSummary(req Request) *JobSummary {
	return &JobSummary{
		JobID:     req.JobID,
		Receptor:  inputID(req.Receptor),
		Ligand:    inputID(req.Ligand),
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	}
}

// QueueSubmitter records the job as pending and hands it to the worker
// queue.
type QueueSubmitter struct {
	publisher RequestPublisher
	repo      Repository
}

// NewQueueSubmitter returns a QueueSubmitter.  repo may be nil.
func NewQueueSubmitter(publisher RequestPublisher, repo Repository) *QueueSubmitter {
	return &QueueSubmitter{publisher: publisher, repo: repo}
}

func (s *QueueSubmitter) Submit(ctx context.Context, req Request) (string, error) {
	if err := validateRequest(&req); err != nil {
		return "", err
	}
	if s.repo != nil {
		if err := s.repo.UpsertJob(ctx, pendingSummary(req)); err != nil {
			return "", err
		}
	}
	if err := s.publisher.PublishJobRequest(ctx, req); err != nil {
		return "", err
	}
	return req.JobID, nil
}

// InlineSubmitter executes jobs in background goroutines of the calling
// process.  Wait blocks until every submitted job has finished.
type InlineSubmitter struct {
	pipeline *Pipeline
	repo     Repository
	wg       sync.WaitGroup
}

// NewInlineSubmitter returns an InlineSubmitter.  repo may be nil.
func NewInlineSubmitter(p *Pipeline, repo Repository) *InlineSubmitter {
	return &InlineSubmitter{pipeline: p, repo: repo}
}

func (s *InlineSubmitter) Submit(ctx context.Context, req Request) (string, error) {
	if err := validateRequest(&req); err != nil {
		return "", err
	}
	if s.repo != nil {
		if err := s.repo.UpsertJob(ctx, pendingSummary(req)); err != nil {
			return "", err
		}
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.pipeline.Execute(context.WithoutCancel(ctx), req)
	}()
	return req.JobID, nil
}

// Wait blocks until all submitted jobs are done.
func (s *InlineSubmitter) Wait() { s.wg.Wait() }

//Personal.AI order the ending
