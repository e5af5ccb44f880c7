// Command worker consumes docking requests from Kafka and executes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/BlindDock/internal/bootstrap"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/BlindDock/internal/interfaces/http"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8081
	topicSetupTimeout = 30 * time.Second
)

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file (empty: environment only)")
	consumers := flag.Int("consumers", 1, "number of consumers joined to the group")
	healthPort := flag.Int("health-port", defaultHealthPort, "port of the health and metrics endpoint")
	ensureTopics := flag.Bool("ensure-topics", true, "create missing Kafka topics on start")
	flag.Parse()

	if err := run(*configPath, *consumers, *healthPort, *ensureTopics); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, consumers, healthPort int, ensureTopics bool) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka must be enabled for the worker")
	}
	if consumers < 1 {
		return fmt.Errorf("--consumers must be >= 1")
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := bootstrap.WatchLogLevel(configPath, logger); err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("shutdown incomplete", logging.Err(err))
		}
	}()

	if ensureTopics {
		if err := createTopics(ctx, cfg.Kafka, logger); err != nil {
			return err
		}
	}

	handler := kafka.JobRequestHandler(stack.Pipeline, logger)
	if stack.Metrics != nil {
		handler = meteredHandler(handler, stack.Metrics)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < consumers; i++ {
		c, err := kafka.NewConsumer(cfg.Kafka, handler, stack.Producer, logger.With(logging.Int("consumer", i)))
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer func() { _ = c.Close() }()
			c.Run(gctx)
			return nil
		})
	}

	srv := httpserver.NewServer(config.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            healthPort,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(httpserver.StackConfig(stack, version)), logger)
	g.Go(func() error { return srv.ListenAndServe(gctx) })

	logger.Info("worker started",
		logging.String("version", version),
		logging.Int("consumers", consumers),
		logging.String("topic", cfg.Kafka.RequestTopic),
		logging.String("health_addr", srv.Addr()),
	)
	err = g.Wait()
	logger.Info("worker stopped")
	return err
}

func createTopics(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()
	tm, err := kafka.NewTopicManager(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = tm.Close() }()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg))
}

// messageRecorder counts handled messages by outcome.
type messageRecorder interface {
	RecordMessage(outcome string)
}

func meteredHandler(next kafka.Handler, rec messageRecorder) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		err := next(ctx, msg)
		switch {
		case err == nil:
			rec.RecordMessage("ok")
		case kafka.IsPermanent(err):
			rec.RecordMessage("rejected")
		default:
			rec.RecordMessage("error")
		}
		return err
	}
}

//Personal.AI order the ending
