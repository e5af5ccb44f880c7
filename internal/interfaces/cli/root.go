// Package cli implements the dockctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/bootstrap"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/database/postgres"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// BuildInfo is injected by the binary at link time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// JobExecutor runs docking jobs in-process.
type JobExecutor interface {
	Execute(ctx context.Context, req app.Request) (*app.Outcome, error)
	ExecuteBatch(ctx context.Context, reqs []app.Request) []*app.Outcome
}

// SchemaMigrator applies database migrations.
type SchemaMigrator interface {
	Up() error
	Down(steps int) error
	Status() (version uint, dirty bool, err error)
	Close() error
}

// Deps lets the binary and tests replace the heavy collaborators.
type Deps struct {
	// Executor builds the pipeline; the returned func releases it.
	Executor func(ctx context.Context, cfg *config.Config, log logging.Logger) (JobExecutor, func() error, error)
	// Migrator opens the schema migrator.
	Migrator func(cfg config.DatabaseConfig, log logging.Logger) (SchemaMigrator, error)
}

// DefaultDeps wires the real pipeline and migrator.  Kafka events are
// published when messaging is enabled in the configuration.
func DefaultDeps() Deps {
	return Deps{
		Executor: func(ctx context.Context, cfg *config.Config, log logging.Logger) (JobExecutor, func() error, error) {
			s, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{})
			if err != nil {
				return nil, nil, err
			}
			return s.Pipeline, s.Close, nil
		},
		Migrator: func(cfg config.DatabaseConfig, log logging.Logger) (SchemaMigrator, error) {
			return postgres.NewMigrator(cfg, log)
		},
	}
}

// RootOptions holds the persistent flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
}

// CLIContext carries the initialised configuration through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Deps         Deps
}

type cliContextKey struct{}

// NewRootCommand builds dockctl with every subcommand attached.
func NewRootCommand(info BuildInfo, deps Deps) *cobra.Command {
	opts := &RootOptions{}
	def := DefaultDeps()
	if deps.Executor == nil {
		deps.Executor = def.Executor
	}
	if deps.Migrator == nil {
		deps.Migrator = def.Migrator
	}

	cmd := &cobra.Command{
		Use:   "dockctl",
		Short: "Blind molecular docking orchestration",
		Long: "dockctl derives a docking box from the receptor, runs the docking engine\n" +
			"with several seeds, clusters and ranks the poses and exports the results.",
		Version: fmt.Sprintf("%s (commit %s, built %s)", info.Version, info.Commit, info.BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initContext(cmd, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: BLINDDOCK_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "override log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newBoxCmd(),
		newMigrateCmd(),
		newVersionCmd(info),
	)
	return cmd
}

func initContext(cmd *cobra.Command, opts *RootOptions, deps Deps) error {
	if opts.OutputFormat != "text" && opts.OutputFormat != "json" {
		return errors.InvalidParam("output must be text or json").WithDetail(opts.OutputFormat)
	}
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	logCfg := cfg.Log
	if len(logCfg.OutputPaths) == 0 {
		// stdout carries command output.
		logCfg.OutputPaths = []string{"stderr"}
	}
	log, err := bootstrap.NewLogger(logCfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &CLIContext{
		Config:       cfg,
		Logger:       log,
		OutputFormat: opts.OutputFormat,
		Deps:         deps,
	}))
	return nil
}

// GetCLIContext returns the context installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	if ctx := cmd.Context(); ctx != nil {
		if c, ok := ctx.Value(cliContextKey{}).(*CLIContext); ok {
			return c, nil
		}
	}
	return nil, errors.Internal("cli context not initialised")
}

// Execute runs dockctl with os.Args.
func Execute(info BuildInfo) error {
	return NewRootCommand(info, DefaultDeps()).Execute()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot create output file").WithDetail(path)
	}
	return f, nil
}

//Personal.AI order the ending
