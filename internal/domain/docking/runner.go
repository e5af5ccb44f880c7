package docking

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// RunnerConfig controls seed derivation, timeouts and retries.
type RunnerConfig struct {
	// Seeds is the number of runs per job when the job lists no seeds.
	Seeds int
	// BaseSeed is the first derived seed; run i uses BaseSeed+i.
	BaseSeed int64
	// RunTimeout bounds each attempt.  A run that exceeds it is TimedOut
	// and never retried.
	RunTimeout time.Duration
	// JobTimeout bounds the whole job; zero disables it.
	JobTimeout time.Duration
	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries int
	// RetryBackoff is the first retry delay, doubled on each retry.
	RetryBackoff time.Duration
	// RecoverableExitCodes are engine exit statuses treated as transient.
	RecoverableExitCodes []int
}

func (c RunnerConfig) validate() error {
	if c.Seeds < 1 {
		return errors.InvalidParam("runner: seeds must be >= 1")
	}
	if c.RunTimeout <= 0 {
		return errors.InvalidParam("runner: run timeout must be > 0")
	}
	if c.MaxRetries < 0 || c.JobTimeout < 0 || c.RetryBackoff < 0 {
		return errors.InvalidParam("runner: retries, job timeout and backoff must be >= 0")
	}
	return nil
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithObserver registers an Observer for run lifecycle events.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// Runner executes the seeded runs of a job on a shared Pool.
type Runner struct {
	engine   Engine
	store    OutputStore
	pool     *Pool
	cfg      RunnerConfig
	logger   logging.Logger
	observer Observer
}

// NewRunner wires a Runner.
func NewRunner(engine Engine, store OutputStore, pool *Pool, cfg RunnerConfig, logger logging.Logger, opts ...RunnerOption) (*Runner, error) {
	if engine == nil || store == nil || pool == nil {
		return nil, errors.InvalidParam("runner: engine, store and pool are required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Runner{
		engine:   engine,
		store:    store,
		pool:     pool,
		cfg:      cfg,
		logger:   logger.Named("runner"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Accepts reports whether the engine reads structure files in format f.
func (r *Runner) Accepts(f structure.Format) bool {
	fe, ok := r.engine.(InputFormatter)
	if !ok {
		return true
	}
	for _, accepted := range fe.InputFormats() {
		if accepted == f {
			return true
		}
	}
	return false
}

// Seeds returns the seeds for job: its own list when set, otherwise
// BaseSeed, BaseSeed+1, ... for the configured count.
func (r *Runner) Seeds(job *Job) []int64 {
	if len(job.Params.Seeds) > 0 {
		out := make([]int64, len(job.Params.Seeds))
		copy(out, job.Params.Seeds)
		return out
	}
	out := make([]int64, r.cfg.Seeds)
	for i := range out {
		out[i] = r.cfg.BaseSeed + int64(i)
	}
	return out
}

// Run executes every seed of job concurrently, bounded by the pool, and
// returns the runs in seed order.  When no run succeeds the runs are returned
// together with an AllRunsFailed error.
func (r *Runner) Run(ctx context.Context, job *Job) ([]*Run, error) {
	if err := ValidateSeeds(job.Params.Seeds); err != nil {
		return nil, err
	}
	if r.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
		defer cancel()
	}

	seeds := r.Seeds(job)
	runs := make([]*Run, len(seeds))
	var wg sync.WaitGroup
	for i, seed := range seeds {
		runs[i] = NewRun(job.ID, seed)
		wg.Add(1)
		go func(run *Run) {
			defer wg.Done()
			r.execute(ctx, job, run)
		}(runs[i])
	}
	wg.Wait()

	if len(Succeeded(runs)) == 0 {
		return runs, errors.New(errors.CodeAllRunsFailed, "no docking run succeeded").
			WithDetailf("job %s: %d runs", job.ID, len(runs))
	}
	return runs, nil
}

// execute drives one run to a terminal status.
func (r *Runner) execute(ctx context.Context, job *Job, run *Run) {
	log := r.logger.With(logging.JobID(job.ID), logging.RunID(run.ID), logging.Seed(run.Seed))
	defer r.observer.RunFinished(run)

	if err := r.pool.Acquire(ctx); err != nil {
		_ = run.Fail(r.abortCause(ctx))
		log.Warn("run abandoned before start", logging.String("error", run.Error))
		return
	}
	if ctx.Err() != nil {
		r.pool.Release()
		_ = run.Fail(r.abortCause(ctx))
		log.Warn("run abandoned before start", logging.String("error", run.Error))
		return
	}
	r.observer.PoolUsage(r.pool.InUse(), r.pool.Size())
	defer func() {
		r.pool.Release()
		r.observer.PoolUsage(r.pool.InUse(), r.pool.Size())
	}()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			backoff := r.cfg.RetryBackoff << uint(attempt-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				r.finishAborted(ctx, run, log)
				return
			}
		}

		if err := run.Start(); err != nil {
			log.Error("run cannot start", logging.Err(err))
			return
		}
		out, err := r.attempt(ctx, job, run)

		switch {
		case err == nil:
			r.persist(ctx, job, run, out, log)
			return
		case ctx.Err() != nil:
			r.finishAborted(ctx, run, log)
			return
		case errors.IsCode(err, errors.CodeRunTimedOut):
			_ = run.TimeOut(err)
			log.Warn("run timed out", logging.Duration("timeout", r.cfg.RunTimeout), logging.Int("attempt", run.Attempts))
			return
		case r.isTransient(err) && attempt < r.cfg.MaxRetries:
			r.observer.RunRetried(run, err)
			log.Warn("transient engine failure, retrying", logging.Int("attempt", run.Attempts), logging.Err(err))
			continue
		default:
			_ = run.Fail(err)
			log.Warn("run failed", logging.Int("attempt", run.Attempts), logging.Err(err))
			return
		}
	}
}

// attempt performs a single engine invocation under the per-run timeout.
func (r *Runner) attempt(ctx context.Context, job *Job, run *Run) (*Output, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	out, err := r.engine.Dock(runCtx, Invocation{
		JobID:          job.ID,
		RunID:          run.ID,
		Seed:           run.Seed,
		Attempt:        run.Attempts,
		Receptor:       job.Target,
		Ligand:         job.Ligand,
		Space:          job.Space,
		Exhaustiveness: job.Params.Exhaustiveness,
		NumModes:       job.Params.NumModes,
	})
	if err == nil && out != nil {
		return out, nil
	}
	if ctx.Err() == nil && stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, errors.New(errors.CodeRunTimedOut, "run exceeded its timeout").
			WithDetailf("%s after %s", run.ID, r.cfg.RunTimeout).WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	return nil, errors.MalformedOutput("engine returned no output").WithDetail(run.ID)
}

func (r *Runner) persist(ctx context.Context, job *Job, run *Run, out *Output, log logging.Logger) {
	key := OutputKey{JobID: job.ID, Seed: run.Seed, Receptor: job.Target.ID, Ligand: job.Ligand.ID}
	stored, err := r.store.Save(ctx, key, out)
	if err != nil {
		_ = run.Fail(errors.Wrap(err, errors.CodeStorage, "failed to persist run output"))
		log.Error("run output not persisted", logging.Err(err))
		return
	}
	if err := run.Succeed(out.Format, stored); err != nil {
		log.Error("run cannot succeed", logging.Err(err))
		return
	}
	log.Info("run succeeded",
		logging.Int("attempt", run.Attempts),
		logging.String("output_ref", stored.OutputRef),
		logging.Duration("elapsed", run.Duration()),
	)
}

// finishAborted closes a run interrupted by job timeout or cancellation.
func (r *Runner) finishAborted(ctx context.Context, run *Run, log logging.Logger) {
	cause := r.abortCause(ctx)
	if errors.IsCode(cause, errors.CodeJobTimedOut) && run.Status == RunRunning {
		_ = run.TimeOut(cause)
	} else {
		_ = run.Fail(cause)
	}
	log.Warn("run aborted", logging.String("status", string(run.Status)), logging.Err(cause))
}

func (r *Runner) abortCause(ctx context.Context) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.New(errors.CodeJobTimedOut, "job deadline exceeded")
	}
	return errors.Wrap(ctx.Err(), errors.CodeInternal, "job cancelled")
}

func (r *Runner) isTransient(err error) bool {
	if errors.IsTransient(err) {
		return true
	}
	var exit *ExitError
	if stderrors.As(err, &exit) {
		for _, code := range r.cfg.RecoverableExitCodes {
			if exit.Code == code {
				return true
			}
		}
	}
	return false
}

//Personal.AI order the ending
