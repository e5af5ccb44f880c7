// Package bootstrap assembles the docking stack from configuration.  The
// binaries under cmd/ share it so that the worker, the API server and the
// CLI wire identical pipelines.
package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/domain/cluster"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/pose"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/infrastructure/database/postgres"
	"github.com/turtacn/BlindDock/internal/infrastructure/database/redis"
	"github.com/turtacn/BlindDock/internal/infrastructure/engine/docker"
	"github.com/turtacn/BlindDock/internal/infrastructure/engine/vina"
	"github.com/turtacn/BlindDock/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/BlindDock/internal/infrastructure/storage/local"
	"github.com/turtacn/BlindDock/internal/infrastructure/storage/minio"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Options select which parts of the stack are built.
type Options struct {
	// SkipPipeline builds the persistence, cache and messaging clients only.
	// The API server uses it when jobs are executed by workers.
	SkipPipeline bool
	// SkipMessaging leaves the Kafka producer out even when it is enabled.
	SkipMessaging bool
}

// Stack is the assembled application.  Optional parts are nil when disabled
// in the configuration.
type Stack struct {
	Config *config.Config
	Logger logging.Logger

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.DockingMetrics

	Engine   domain.Engine
	Store    domain.OutputStore
	Pipeline *app.Pipeline

	Repository app.Repository
	Cache      app.ResultCache
	Locker     app.JobLocker
	Producer   *kafka.Producer

	Checks []Check

	closers []func() error
}

// New builds the stack described by cfg.  Everything opened before a failure
// is closed again.
func New(ctx context.Context, cfg *config.Config, log logging.Logger, opts Options) (s *Stack, err error) {
	if cfg == nil {
		return nil, errors.InvalidParam("bootstrap: config is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	s = &Stack{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	if err = s.initMetrics(); err != nil {
		return
	}
	if err = s.initDatabase(ctx); err != nil {
		return
	}
	if err = s.initRedis(); err != nil {
		return
	}
	if !opts.SkipMessaging {
		if err = s.initKafka(); err != nil {
			return
		}
	}
	if opts.SkipPipeline {
		return
	}
	if err = s.initStorage(ctx); err != nil {
		return
	}
	if err = s.initEngine(); err != nil {
		return
	}
	err = s.initPipeline()
	return
}

// ─── Infrastructure ───

func (s *Stack) initMetrics() error {
	if !s.Config.Metrics.Enabled {
		return nil
	}
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(s.Config.Metrics), s.Logger)
	if err != nil {
		return err
	}
	s.Collector = c
	s.Metrics = prometheus.NewDockingMetrics(c)
	return nil
}

func (s *Stack) initDatabase(ctx context.Context) error {
	if !s.Config.Database.Enabled {
		return nil
	}
	conn, err := postgres.NewConnection(ctx, s.Config.Database, s.Logger)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, conn.Close)
	s.Repository = postgres.NewResultRepository(conn, s.Logger)
	s.Checks = append(s.Checks, Check{Name: "postgres", Fn: conn.HealthCheck})
	return nil
}

func (s *Stack) initRedis() error {
	if !s.Config.Redis.Enabled {
		return nil
	}
	client, err := redis.NewClient(s.Config.Redis, s.Logger)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, client.Close)
	var cache app.ResultCache = redis.NewResultCache(client, s.Config.Redis.ResultTTL, s.Logger)
	if s.Metrics != nil {
		cache = newMeteredCache(cache, s.Metrics)
	}
	s.Cache = cache
	s.Locker = redis.NewJobLocker(client, s.Config.Redis.LockTTL, s.Logger)
	s.Checks = append(s.Checks, Check{Name: "redis", Fn: client.Ping})
	return nil
}

func (s *Stack) initKafka() error {
	if !s.Config.Kafka.Enabled {
		return nil
	}
	p, err := kafka.NewProducer(s.Config.Kafka, s.Logger)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, p.Close)
	s.Producer = p
	return nil
}

func (s *Stack) initStorage(ctx context.Context) error {
	switch strings.ToLower(s.Config.Storage.Backend) {
	case "", "local":
		store, err := local.NewOutputStore(s.Config.Storage.LocalRoot, s.Logger)
		if err != nil {
			return err
		}
		s.Store = store
	case "minio":
		client, err := minio.NewMinIOClient(ctx, s.Config.MinIO, s.Logger)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		s.Store = minio.NewOutputStore(client, s.Logger)
		s.Checks = append(s.Checks, Check{Name: "minio", Fn: func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		}})
	default:
		return errors.InvalidParam("unknown storage backend").WithDetail(s.Config.Storage.Backend)
	}
	return nil
}

func (s *Stack) initEngine() error {
	switch strings.ToLower(s.Config.Engine.Backend) {
	case "", "vina":
		s.Engine = vina.New(vina.OptionsFromConfig(s.Config.Engine), s.Logger)
	case "docker":
		e, err := docker.New(s.Config.Engine, s.Logger)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, e.Close)
		s.Engine = e
		s.Checks = append(s.Checks, Check{Name: "docker", Fn: e.Ping})
	default:
		return errors.InvalidParam("unknown engine backend").WithDetail(s.Config.Engine.Backend)
	}
	return nil
}

// ─── Pipeline ───

// RunnerConfig maps the runner and engine sections onto the domain runner.
func RunnerConfig(cfg *config.Config) domain.RunnerConfig {
	r := cfg.Docking.Runner
	return domain.RunnerConfig{
		Seeds:                r.Seeds,
		BaseSeed:             r.BaseSeed,
		RunTimeout:           r.RunTimeout,
		JobTimeout:           r.JobTimeout,
		MaxRetries:           r.MaxRetries,
		RetryBackoff:         r.RetryBackoff,
		RecoverableExitCodes: cfg.Engine.RecoverableExitCodes,
	}
}

// Padding maps the search space section onto the box builder.
func Padding(cfg *config.Config) searchspace.Padding {
	ss := cfg.Docking.SearchSpace
	return searchspace.Padding{
		Margin:        ss.Margin,
		MinExtent:     ss.MinExtent,
		HintMargin:    ss.HintMargin,
		HintMinExtent: ss.HintMinExtent,
		HintMaxExtent: ss.HintMaxExtent,
		MinAtoms:      ss.MinAtoms,
	}
}

func (s *Stack) initPipeline() error {
	cfg := s.Config
	var runnerOpts []domain.RunnerOption
	var pipelineOpts []app.Option
	if s.Metrics != nil {
		runnerOpts = append(runnerOpts, domain.WithObserver(s.Metrics))
		pipelineOpts = append(pipelineOpts, app.WithJobObserver(s.Metrics))
	}
	if s.Repository != nil {
		pipelineOpts = append(pipelineOpts, app.WithRepository(s.Repository))
	}
	if s.Cache != nil {
		pipelineOpts = append(pipelineOpts, app.WithResultCache(s.Cache))
	}
	if s.Locker != nil {
		pipelineOpts = append(pipelineOpts, app.WithJobLocker(s.Locker))
	}
	if s.Producer != nil {
		pipelineOpts = append(pipelineOpts, app.WithEventPublisher(s.Producer))
	}
	if cfg.Engine.Prepare.Enabled {
		preparer := vina.NewPreparer(vina.PrepareOptionsFromConfig(cfg.Engine.Prepare), s.Logger)
		pipelineOpts = append(pipelineOpts, app.WithPreparer(preparer))
	}

	runner, err := domain.NewRunner(s.Engine, s.Store, domain.NewPool(cfg.Docking.Runner.Workers),
		RunnerConfig(cfg), s.Logger, runnerOpts...)
	if err != nil {
		return err
	}
	clusterer, err := cluster.New(cfg.Docking.Cluster.RMSDThreshold)
	if err != nil {
		return err
	}
	s.Pipeline, err = app.NewPipeline(app.Config{
		TopK:             cfg.Docking.Ranking.TopK,
		Exhaustiveness:   cfg.Engine.Exhaustiveness,
		NumModes:         cfg.Engine.NumModes,
		BatchConcurrency: cfg.Docking.Runner.Workers,
	}, searchspace.NewBuilder(Padding(cfg)), runner, s.Store, pose.DefaultRegistry(), clusterer, s.Logger, pipelineOpts...)
	return err
}

// Close releases every client in reverse order of creation.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("bootstrap: close: %w", stderrors.Join(errs...))
	}
	return nil
}

//Personal.AI order the ending
