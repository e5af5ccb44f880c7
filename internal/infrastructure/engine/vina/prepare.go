package vina

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/turtacn/BlindDock/internal/config"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// InputFormats implements docking.InputFormatter.  Vina reads PDBQT only.
func (e *Engine) InputFormats() []structure.Format {
	return []structure.Format{structure.FormatPDBQT}
}

// ─────────────────────────────────────────────────────────────────────────────
// Preparer
// ─────────────────────────────────────────────────────────────────────────────

// PrepareOptions locate the MGLTools preparation scripts.
type PrepareOptions struct {
	Python         string
	ReceptorScript string
	LigandScript   string
	ReceptorArgs   []string
	LigandArgs     []string
	OutputDir      string
	Force          bool
	Timeout        time.Duration
}

// PrepareOptionsFromConfig maps the engine.prepare section.
func PrepareOptionsFromConfig(cfg config.PrepareConfig) PrepareOptions {
	return PrepareOptions{
		Python:         cfg.Python,
		ReceptorScript: cfg.ReceptorScript,
		LigandScript:   cfg.LigandScript,
		ReceptorArgs:   cfg.ReceptorArgs,
		LigandArgs:     cfg.LigandArgs,
		OutputDir:      cfg.OutputDir,
		Force:          cfg.Force,
		Timeout:        cfg.Timeout,
	}
}

// Preparer converts PDB, SDF and MOL2 inputs to PDBQT by running
// prepare_receptor4.py or prepare_ligand4.py.  Prepared files are reused
// until the source is modified again, unless Force is set.
type Preparer struct {
	opts     PrepareOptions
	logger   logging.Logger
	lookPath func(string) (string, error)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPreparer returns a subprocess preparer.
func NewPreparer(opts PrepareOptions, log logging.Logger) *Preparer {
	if opts.Python == "" {
		opts.Python = config.DefaultPreparePython
	}
	if opts.ReceptorScript == "" {
		opts.ReceptorScript = config.DefaultReceptorScript
	}
	if opts.LigandScript == "" {
		opts.LigandScript = config.DefaultLigandScript
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultPrepareTimeout
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Preparer{
		opts:     opts,
		logger:   log.Named("prepare"),
		lookPath: exec.LookPath,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Prepare implements docking.Preparer.  PDBQT inputs are returned as is.
func (p *Preparer) Prepare(ctx context.Context, in domain.Input, role domain.Role) (domain.Input, error) {
	if in.Format == structure.FormatPDBQT {
		return in, nil
	}
	src, err := filepath.Abs(in.Path)
	if err != nil {
		return in, errors.Wrap(err, errors.CodeInvalidStructure, "cannot resolve input path").WithDetail(in.Path)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return in, errors.Wrap(err, errors.CodeInvalidStructure, "input not found").WithDetail(src)
	}

	dst := p.outputPath(src, role)
	lock := p.lockFor(dst)
	lock.Lock()
	defer lock.Unlock()

	prepared := domain.Input{ID: in.ID, Path: dst, Format: structure.FormatPDBQT}
	if !p.opts.Force {
		if info, err := os.Stat(dst); err == nil && !info.ModTime().Before(srcInfo.ModTime()) {
			p.logger.Debug("prepared input reused", logging.String("path", dst))
			return prepared, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return in, errors.Wrap(err, errors.CodeStorage, "cannot create preparation directory").WithDetail(dst)
	}
	if err := p.run(ctx, src, dst, role); err != nil {
		return in, err
	}
	return prepared, nil
}

// Args builds the script arguments, writing to out.  Ligand scripts receive
// the bare file name and run inside the ligand's directory.
func (p *Preparer) Args(src, out string, role domain.Role) []string {
	if role == domain.RoleReceptor {
		args := []string{p.opts.ReceptorScript, "-r", src, "-o", out}
		return append(args, p.opts.ReceptorArgs...)
	}
	args := []string{p.opts.LigandScript, "-l", filepath.Base(src), "-o", out}
	return append(args, p.opts.LigandArgs...)
}

func (p *Preparer) run(ctx context.Context, src, dst string, role domain.Role) error {
	bin, err := p.lookPath(p.opts.Python)
	if err != nil {
		return errors.Wrap(err, errors.CodeEngineUnavailable, "preparation interpreter not found").WithDetail(p.opts.Python)
	}
	runCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	tmp := dst + ".tmp.pdbqt"
	defer os.Remove(tmp)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, bin, p.Args(src, tmp, role)...)
	cmd.Stderr = &stderr
	if role == domain.RoleLigand {
		cmd.Dir = filepath.Dir(src)
	}
	start := time.Now()
	runErr := cmd.Run()
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case runCtx.Err() != nil:
		return errors.Wrap(runCtx.Err(), errors.CodeInvalidStructure, "input preparation timed out").WithDetail(src)
	case runErr != nil:
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			return errors.InvalidStructure("input preparation failed").
				WithDetailf("%s %s", role, src).
				WithCause(&domain.ExitError{Code: exitErr.ExitCode(), Stderr: tail(stderr.Bytes())})
		}
		return errors.Wrap(runErr, errors.CodeEngineUnavailable, "preparation script could not be started").WithDetail(bin)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return errors.InvalidStructure("preparation script wrote no output").WithDetail(src).WithCause(err)
	}
	p.logger.Debug("preparation script finished",
		logging.String("role", string(role)),
		logging.String("source", src),
		logging.String("output", dst),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// outputPath is "<dir>/<role>s/<stem>-<hash>.pdbqt".  The hash of the source
// path keeps equally named inputs from different directories apart.
func (p *Preparer) outputPath(src string, role domain.Role) string {
	sum := sha1.Sum([]byte(src))
	name := structure.Stem(src) + "-" + hex.EncodeToString(sum[:4]) + ".pdbqt"
	return filepath.Join(p.opts.OutputDir, string(role)+"s", name)
}

func (p *Preparer) lockFor(path string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	return l
}

//Personal.AI order the ending
