// Package docking orchestrates a docking job end to end: structure loading,
// search space derivation, multi-seed execution, pose parsing, clustering,
// ranking and aggregation into an exportable table.
package docking

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/BlindDock/internal/domain/cluster"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/pose"
	"github.com/turtacn/BlindDock/internal/domain/ranking"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Request / Outcome
// ─────────────────────────────────────────────────────────────────────────────

// Request asks for one receptor–ligand pair to be docked.
type Request struct {
	JobID    string            `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Receptor domain.Input      `json:"receptor" yaml:"receptor"`
	Ligand   domain.Input      `json:"ligand" yaml:"ligand"`
	Hint     *searchspace.Hint `json:"hint,omitempty" yaml:"hint,omitempty"`
	Params   domain.Params     `json:"params" yaml:"params"`
	// TopK overrides the configured cap; 0 keeps the pipeline default.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// Outcome is everything a job produced.  It is returned for failed jobs too,
// with a zero-row Table.
type Outcome struct {
	JobID    string           `json:"job_id"`
	Receptor string           `json:"receptor"`
	Ligand   string           `json:"ligand"`
	Status   domain.JobStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
	// ErrorCode is the code of the error that failed the job.
	ErrorCode string          `json:"error_code,omitempty"`
	Job       *domain.Job     `json:"job,omitempty"`
	Runs      []*domain.Run   `json:"runs"`
	Poses     int             `json:"poses"`
	Result    *ranking.Result `json:"-"`
	Table     *Table          `json:"table"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// Summary converts the outcome into its persisted record.
func (o *Outcome) Summary() *JobSummary {
	s := &JobSummary{
		JobID:     o.JobID,
		Receptor:  o.Receptor,
		Ligand:    o.Ligand,
		Status:    o.Status,
		Error:     o.Error,
		Runs:      o.Runs,
		PoseCount: o.Poses,
	}
	if o.Result != nil {
		s.Clusters = o.Result.Total
	}
	if best, ok := o.Table.Best(); ok {
		s.BestEnergy = &best
	}
	if o.Job != nil {
		space := o.Job.Space
		s.SearchSpace = &space
		s.CreatedAt = o.Job.CreatedAt
		if !o.Job.FinishedAt.IsZero() {
			finished := o.Job.FinishedAt
			s.FinishedAt = &finished
		}
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline
// ─────────────────────────────────────────────────────────────────────────────

// Config holds pipeline defaults applied to requests that leave them unset.
type Config struct {
	TopK             int
	Exhaustiveness   int
	NumModes         int
	BatchConcurrency int
}

// Option customises a Pipeline.
type Option func(*Pipeline)

func WithRepository(r Repository) Option         { return func(p *Pipeline) { p.repo = r } }
func WithResultCache(c ResultCache) Option       { return func(p *Pipeline) { p.cache = c } }
func WithJobLocker(l JobLocker) Option           { return func(p *Pipeline) { p.locker = l } }
func WithEventPublisher(e EventPublisher) Option { return func(p *Pipeline) { p.events = e } }
func WithJobObserver(o JobObserver) Option       { return func(p *Pipeline) { p.observer = o } }
func WithLoader(l StructureLoader) Option        { return func(p *Pipeline) { p.loader = l } }
func WithPreparer(pr domain.Preparer) Option     { return func(p *Pipeline) { p.preparer = pr } }

// Pipeline runs docking jobs.  It is safe for concurrent use; engine
// concurrency is bounded by the runner's pool.
type Pipeline struct {
	cfg       Config
	builder   *searchspace.Builder
	runner    *domain.Runner
	store     domain.OutputStore
	parsers   *pose.Registry
	clusterer *cluster.Clusterer
	loader    StructureLoader
	logger    logging.Logger

	repo     Repository
	cache    ResultCache
	locker   JobLocker
	events   EventPublisher
	observer JobObserver
	preparer domain.Preparer
}

// NewPipeline wires a Pipeline.  store must be the store the runner writes
// to so that successful runs can be read back for parsing.
func NewPipeline(cfg Config, builder *searchspace.Builder, runner *domain.Runner, store domain.OutputStore,
	parsers *pose.Registry, clusterer *cluster.Clusterer, logger logging.Logger, opts ...Option) (*Pipeline, error) {
	if builder == nil || runner == nil || store == nil || parsers == nil || clusterer == nil {
		return nil, errors.InvalidParam("pipeline: builder, runner, store, parsers and clusterer are required")
	}
	if err := ranking.ValidateTopK(cfg.TopK); err != nil {
		return nil, err
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	p := &Pipeline{
		cfg:       cfg,
		builder:   builder,
		runner:    runner,
		store:     store,
		parsers:   parsers,
		clusterer: clusterer,
		loader:    FileLoader{},
		logger:    logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Execute runs one job to completion.  The Outcome is always returned; the
// error reports job-level failures such as InvalidStructure or
// AllRunsFailed.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	out := &Outcome{
		JobID:    req.JobID,
		Receptor: inputID(req.Receptor),
		Ligand:   inputID(req.Ligand),
		Status:   domain.JobPending,
		Table:    &Table{JobID: req.JobID, Receptor: inputID(req.Receptor), Ligand: inputID(req.Ligand), Rows: []Row{}},
	}
	log := p.logger.With(logging.JobID(req.JobID), logging.String("receptor", out.Receptor), logging.String("ligand", out.Ligand))

	if err := domain.ValidateJobID(req.JobID); err != nil {
		out.Status = domain.JobFailed
		out.Error = err.Error()
		out.ErrorCode = string(errors.GetCode(err))
		log.Warn("job rejected", logging.Err(err))
		return out, err
	}
	if p.locker != nil {
		unlock, err := p.locker.Lock(ctx, req.JobID)
		if err != nil {
			out.Status = domain.JobFailed
			out.Error = err.Error()
			out.ErrorCode = string(errors.GetCode(err))
			log.Warn("job not executed", logging.Err(err))
			return out, err
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				log.Warn("job lock not released", logging.Err(uerr))
			}
		}()
	}
	p.discardPrevious(ctx, req.JobID, log)

	err := p.execute(ctx, req, out, log)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Status = domain.JobFailed
		out.Error = err.Error()
		out.ErrorCode = string(errors.GetCode(err))
		if out.Job != nil {
			out.Job.Fail(err)
		}
		log.Warn("job failed", logging.Err(err), logging.Duration("elapsed", out.Elapsed))
	} else {
		out.Status = domain.JobCompleted
		out.Job.Complete()
		best, _ := out.Table.Best()
		log.Info("job completed",
			logging.Int("rows", out.Table.Len()),
			logging.Float64("best_energy", best),
			logging.Duration("elapsed", out.Elapsed),
		)
	}
	p.finish(ctx, out, log)
	return out, err
}

// discardPrevious drops the cached table and stored outputs left by an
// earlier execution of the same job id.  Failures only cost stale data.
func (p *Pipeline) discardPrevious(ctx context.Context, jobID string, log logging.Logger) {
	if inv, ok := p.cache.(CacheInvalidator); ok {
		if err := inv.Invalidate(ctx, jobID); err != nil {
			log.Warn("cached table not invalidated", logging.Err(err))
		}
	}
	if purger, ok := p.store.(OutputPurger); ok {
		if err := purger.DeleteJob(ctx, jobID); err != nil {
			log.Warn("previous run output not removed", logging.Err(err))
		}
	}
}

func (p *Pipeline) execute(ctx context.Context, req Request, out *Outcome, log logging.Logger) error {
	target, err := p.loader.Load(ctx, req.Receptor)
	if err != nil {
		return wrapStructure(err, "receptor")
	}
	ligand, err := p.loader.Load(ctx, req.Ligand)
	if err != nil {
		return wrapStructure(err, "ligand")
	}
	space, err := p.builder.Build(target, ligand, req.Hint)
	if err != nil {
		return err
	}

	params := req.Params
	if params.Exhaustiveness == 0 {
		params.Exhaustiveness = p.cfg.Exhaustiveness
	}
	if params.NumModes == 0 {
		params.NumModes = p.cfg.NumModes
	}
	recIn, ligIn := req.Receptor, req.Ligand
	recIn.ID, ligIn.ID = target.ID(), ligand.ID()
	if recIn, err = p.prepareInput(ctx, recIn, target.Format(), domain.RoleReceptor, log); err != nil {
		return err
	}
	if ligIn, err = p.prepareInput(ctx, ligIn, ligand.Format(), domain.RoleLigand, log); err != nil {
		return err
	}
	job, err := domain.NewJob(req.JobID, recIn, ligIn, space, params)
	if err != nil {
		return err
	}
	out.Job = job
	out.Receptor, out.Ligand = recIn.ID, ligIn.ID
	out.Table.Receptor, out.Table.Ligand = recIn.ID, ligIn.ID

	job.Start()
	out.Status = domain.JobRunning
	log.Info("job started", logging.String("search_space", space.String()), logging.Int("seeds", len(p.runner.Seeds(job))))
	p.markRunning(ctx, out, log)

	runs, err := p.runner.Run(ctx, job)
	out.Runs = runs
	if err != nil {
		return err
	}

	poses := p.parseRuns(ctx, job, runs, log)
	out.Poses = len(poses)
	if len(domain.Succeeded(runs)) == 0 {
		return errors.New(errors.CodeAllRunsFailed, "no run produced parseable output").
			WithDetailf("job %s: %d runs", job.ID, len(runs))
	}

	clusters, err := p.clusterer.Cluster(poses)
	if err != nil {
		return err
	}
	topK := p.cfg.TopK
	if req.TopK != 0 {
		topK = req.TopK
	}
	result, err := ranking.Rank(clusters, topK)
	if err != nil {
		return err
	}
	out.Result = result
	out.Table = Aggregate(job, result)
	return nil
}

// parseRuns reads back and parses every succeeded run in seed order.  A run
// whose output cannot be loaded or parsed is demoted to failed, and so is a
// run whose poses have a different atom count than the first accepted run,
// since RMSD needs positional correspondence across every pose of the job.
func (p *Pipeline) parseRuns(ctx context.Context, job *domain.Job, runs []*domain.Run, log logging.Logger) []*pose.Pose {
	succeeded := domain.Succeeded(runs)
	sort.SliceStable(succeeded, func(i, j int) bool { return succeeded[i].Seed < succeeded[j].Seed })

	var all []*pose.Pose
	refAtoms, refRun := 0, ""
	for _, run := range succeeded {
		poses, err := p.parseRun(ctx, job, run)
		if err == nil && len(poses) > 0 {
			switch n := poses[0].AtomCount(); {
			case refRun == "":
				refAtoms, refRun = n, run.ID
			case n != refAtoms:
				err = errors.MalformedOutput("poses are not comparable with the reference run").
					WithDetailf("%s has %d atoms, %s has %d", run.ID, n, refRun, refAtoms)
			}
		}
		if err == nil {
			all = append(all, poses...)
			log.Debug("run parsed", logging.RunID(run.ID), logging.Int("poses", len(poses)))
			continue
		}
		if ferr := run.Fail(err); ferr != nil {
			log.Error("run cannot be demoted", logging.RunID(run.ID), logging.Err(ferr))
			continue
		}
		log.Warn("run output unusable, run demoted to failed", logging.RunID(run.ID), logging.Err(err))
	}
	return all
}

func (p *Pipeline) parseRun(ctx context.Context, job *domain.Job, run *domain.Run) ([]*pose.Pose, error) {
	data, err := p.store.Load(ctx, run.OutputRef)
	if err != nil {
		return nil, err
	}
	src := pose.Source{JobID: job.ID, RunID: run.ID, Seed: run.Seed, OutputRef: run.OutputRef}
	return p.parsers.Parse(src, run.OutputFormat, data)
}

func (p *Pipeline) markRunning(ctx context.Context, out *Outcome, log logging.Logger) {
	if p.repo != nil {
		if err := p.repo.UpsertJob(ctx, out.Summary()); err != nil {
			log.Warn("job state not recorded", logging.Err(err))
		}
	}
	p.publish(ctx, EventJobStarted, out, log)
}

// finish persists, caches and announces the outcome.  Side-channel failures
// are logged and never change the job status.
func (p *Pipeline) finish(ctx context.Context, out *Outcome, log logging.Logger) {
	ctx = context.WithoutCancel(ctx)
	if p.repo != nil {
		if err := p.repo.SaveOutcome(ctx, out); err != nil {
			log.Error("outcome not persisted", logging.Err(err))
		}
	}
	if p.cache != nil && out.Status == domain.JobCompleted {
		if err := p.cache.PutTable(ctx, out.JobID, out.Table); err != nil {
			log.Warn("result table not cached", logging.Err(err))
		}
	}
	evType := EventJobCompleted
	if out.Status == domain.JobFailed {
		evType = EventJobFailed
	}
	p.publish(ctx, evType, out, log)
	if p.observer != nil {
		p.observer.JobFinished(out)
	}
}

func (p *Pipeline) publish(ctx context.Context, t EventType, out *Outcome, log logging.Logger) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishJobEvent(ctx, NewJobEvent(t, out)); err != nil {
		log.Warn("job event not published", logging.String("type", string(t)), logging.Err(err))
	}
}

// ExecuteBatch runs every request, at most BatchConcurrency at a time.  A
// failing job never affects its siblings; outcomes keep the request order.
func (p *Pipeline) ExecuteBatch(ctx context.Context, reqs []Request) []*Outcome {
	outcomes := make([]*Outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.BatchConcurrency)
	for i := range reqs {
		i := i
		g.Go(func() error {
			outcomes[i], _ = p.Execute(gctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func inputID(in domain.Input) string {
	if in.ID != "" {
		return in.ID
	}
	return structure.Stem(in.Path)
}

// prepareInput hands inputs the engine cannot read to the preparer.  Without
// a preparer such inputs fail the job before any run is started.
func (p *Pipeline) prepareInput(ctx context.Context, in domain.Input, format structure.Format, role domain.Role, log logging.Logger) (domain.Input, error) {
	in.Format = format
	if p.runner.Accepts(format) {
		return in, nil
	}
	if p.preparer == nil {
		return in, errors.InvalidStructure("engine cannot read the input format and input preparation is disabled").
			WithDetailf("%s %s is %s", role, in.Path, format)
	}
	prepared, err := p.preparer.Prepare(ctx, in, role)
	if err != nil {
		return in, err
	}
	log.Info("input prepared", logging.String("role", string(role)), logging.String("from", in.Path), logging.String("to", prepared.Path))
	return prepared, nil
}

func wrapStructure(err error, role string) error {
	if errors.IsCode(err, errors.CodeInvalidStructure) || errors.IsCode(err, errors.CodeUnsupportedFormat) {
		return err
	}
	return errors.Wrap(err, errors.CodeInvalidStructure, "cannot load "+role)
}

//Personal.AI order the ending
