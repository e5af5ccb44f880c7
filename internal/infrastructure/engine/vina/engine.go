// Package vina runs AutoDock Vina as a local subprocess.
package vina

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/turtacn/BlindDock/internal/config"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// OutputFormat is the pose format Vina writes.
const OutputFormat = "pdbqt"

// stderrTail bounds the stderr excerpt carried by ExitError.
const stderrTail = 512

// Options are the engine-wide Vina parameters.  Per-job values on the
// invocation take precedence over Exhaustiveness and NumModes.
type Options struct {
	Binary          string
	WorkDir         string
	Exhaustiveness  int
	NumModes        int
	Verbosity       int
	CPU             int
	KillGracePeriod time.Duration
}

// OptionsFromConfig maps the engine configuration section.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		Binary:          cfg.Binary,
		WorkDir:         cfg.WorkDir,
		Exhaustiveness:  cfg.Exhaustiveness,
		NumModes:        cfg.NumModes,
		Verbosity:       cfg.Verbosity,
		CPU:             cfg.CPU,
		KillGracePeriod: cfg.KillGracePeriod,
	}
}

// Args builds the Vina command line for inv writing poses to outPath.
func Args(opts Options, inv domain.Invocation, receptor, ligand, outPath string) []string {
	exh := inv.Exhaustiveness
	if exh <= 0 {
		exh = opts.Exhaustiveness
	}
	modes := inv.NumModes
	if modes <= 0 {
		modes = opts.NumModes
	}
	c, s := inv.Space.Center, inv.Space.Extents
	args := []string{
		"--receptor", receptor,
		"--ligand", ligand,
		"--center_x", ftoa(c[0]), "--center_y", ftoa(c[1]), "--center_z", ftoa(c[2]),
		"--size_x", ftoa(s[0]), "--size_y", ftoa(s[1]), "--size_z", ftoa(s[2]),
		"--seed", strconv.FormatInt(inv.Seed, 10),
	}
	if exh > 0 {
		args = append(args, "--exhaustiveness", strconv.Itoa(exh))
	}
	if modes > 0 {
		args = append(args, "--num_modes", strconv.Itoa(modes))
	}
	if opts.CPU > 0 {
		args = append(args, "--cpu", strconv.Itoa(opts.CPU))
	}
	if opts.Verbosity > 0 {
		args = append(args, "--verbosity", strconv.Itoa(opts.Verbosity))
	}
	return append(args, "--out", outPath)
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

// Engine implements docking.Engine on the vina binary.
type Engine struct {
	opts     Options
	logger   logging.Logger
	lookPath func(string) (string, error)
}

// New returns a subprocess engine.
func New(opts Options, log logging.Logger) *Engine {
	if opts.Binary == "" {
		opts.Binary = config.DefaultVinaBinary
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{opts: opts, logger: log.Named("vina"), lookPath: exec.LookPath}
}

// Name implements docking.Engine.
func (e *Engine) Name() string { return "vina" }

// Dock runs one seeded Vina invocation.  The process receives SIGINT when
// ctx is done and is killed after KillGracePeriod.
func (e *Engine) Dock(ctx context.Context, inv domain.Invocation) (*domain.Output, error) {
	bin, err := e.lookPath(e.opts.Binary)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "vina binary not found").WithDetail(e.opts.Binary)
	}

	dir, err := os.MkdirTemp(e.opts.WorkDir, "blinddock-"+inv.RunID+"-")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "cannot create work directory")
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, "out."+OutputFormat)

	args := Args(e.opts, inv, inv.Receptor.Path, inv.Ligand.Path, outPath)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = e.opts.KillGracePeriod

	e.logger.Debug("starting vina", logging.RunID(inv.RunID), logging.Seed(inv.Seed), logging.Int("attempt", inv.Attempt))
	start := time.Now()
	runErr := cmd.Run()
	log := append(stdout.Bytes(), stderr.Bytes()...)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			return nil, errors.New(errors.CodeEngineFailed, "vina exited with an error").
				WithDetail(inv.RunID).
				WithCause(&domain.ExitError{Code: exitCode(exitErr), Stderr: tail(stderr.Bytes())})
		}
		return nil, errors.Wrap(runErr, errors.CodeEngineUnavailable, "vina could not be started").WithDetail(bin)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.MalformedOutput("vina wrote no output file").WithDetail(inv.RunID).WithCause(err)
	}
	e.logger.Debug("vina finished", logging.RunID(inv.RunID), logging.Duration("elapsed", time.Since(start)))
	return &domain.Output{Format: OutputFormat, Data: data, Log: log}, nil
}

func exitCode(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return err.ExitCode()
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
	}
	return string(b)
}

//Personal.AI order the ending
