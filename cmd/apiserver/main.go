// Command apiserver serves the docking job REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/bootstrap"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/BlindDock/internal/interfaces/http"
	"github.com/turtacn/BlindDock/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file (empty: environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
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

	// With Kafka enabled jobs go to the workers and no engine is needed here.
	stack, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{SkipPipeline: cfg.Kafka.Enabled})
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("shutdown incomplete", logging.Err(err))
		}
	}()

	var (
		submitter app.Submitter
		inline    *app.InlineSubmitter
		query     handlers.JobQuery
	)
	if stack.Producer != nil {
		submitter = app.NewQueueSubmitter(stack.Producer, stack.Repository)
	} else {
		inline = app.NewInlineSubmitter(stack.Pipeline, stack.Repository)
		submitter = inline
	}
	if stack.Repository != nil {
		query = app.NewQueryService(stack.Repository, stack.Cache, logger)
	} else {
		logger.Warn("database disabled; job lookups are unavailable")
	}

	rc := httpserver.StackConfig(stack, version)
	rc.Jobs = handlers.NewJobHandler(submitter, query, logger)
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(rc), logger)

	logger.Info("api server starting",
		logging.String("version", version),
		logging.String("addr", srv.Addr()),
		logging.Bool("queued", stack.Producer != nil),
	)
	err = srv.ListenAndServe(ctx)
	if inline != nil {
		logger.Info("waiting for in-process jobs")
		inline.Wait()
	}
	return err
}

//Personal.AI order the ending
