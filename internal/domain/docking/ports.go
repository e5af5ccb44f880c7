package docking

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
)

// ─────────────────────────────────────────────────────────────────────────────
// Engine port
// ─────────────────────────────────────────────────────────────────────────────

// Invocation is everything an engine needs for one seeded run.
type Invocation struct {
	JobID          string
	RunID          string
	Seed           int64
	Attempt        int
	Receptor       Input
	Ligand         Input
	Space          searchspace.SearchSpace
	Exhaustiveness int
	NumModes       int
}

// Output is the raw result of an engine invocation.  Format is the pose
// format tag understood by the pose parser registry.
type Output struct {
	Format   string
	Data     []byte
	Log      []byte
	ExitCode int
}

// Engine runs the external docking program.  Implementations must stop the
// underlying process when ctx is done and return ctx.Err() (possibly
// wrapped).  Failures are reported as *errors.AppError:
//
//	CodeEngineUnavailable  binary, image or daemon missing (retried)
//	CodeEngineFailed       program exited non-zero; cause is *ExitError
type Engine interface {
	Name() string
	Dock(ctx context.Context, inv Invocation) (*Output, error)
}

// InputFormatter is implemented by engines that read only some structure
// formats.  Engines without it are assumed to read every format.
type InputFormatter interface {
	InputFormats() []structure.Format
}

// ExitError carries the exit status of a failed engine process.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("engine exited with status %d", e.Code)
	}
	return fmt.Sprintf("engine exited with status %d: %s", e.Code, e.Stderr)
}

// ─────────────────────────────────────────────────────────────────────────────
// Input preparation port
// ─────────────────────────────────────────────────────────────────────────────

// Role names the side of a job an input belongs to.
type Role string

const (
	RoleReceptor Role = "receptor"
	RoleLigand   Role = "ligand"
)

// Preparer converts a structure file into one the engine reads.  The
// returned Input keeps in.ID and points at the prepared file.
type Preparer interface {
	Prepare(ctx context.Context, in Input, role Role) (Input, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Output store port
// ─────────────────────────────────────────────────────────────────────────────

// OutputKey locates the raw output of one run.  Retries of the same seed
// overwrite the same location.
type OutputKey struct {
	JobID    string
	Seed     int64
	Receptor string
	Ligand   string
}

// Prefix is the job- and seed-partitioned directory of the run.
func (k OutputKey) Prefix() string {
	return path.Join(sanitize(k.JobID), fmt.Sprintf("seed-%d", k.Seed))
}

// JobPrefix is the directory holding every run of jobID, with a trailing
// slash.
func JobPrefix(jobID string) string { return sanitize(jobID) + "/" }

// OutputName is "<receptor>__<ligand>_out.<ext>".
func (k OutputKey) OutputName(format string) string {
	ext := format
	if ext == "" {
		ext = "out"
	}
	return fmt.Sprintf("%s__%s_out.%s", sanitize(k.Receptor), sanitize(k.Ligand), ext)
}

// LogName is "<receptor>__<ligand>.log".
func (k OutputKey) LogName() string {
	return fmt.Sprintf("%s__%s.log", sanitize(k.Receptor), sanitize(k.Ligand))
}

// sanitize turns s into one path segment.  Separators become '_' and a
// segment made only of dots, which would name the current or parent
// directory, has its dots replaced too.
func sanitize(s string) string {
	if s == "" {
		return "unnamed"
	}
	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, s)
	if strings.Trim(out, ".") == "" {
		out = strings.Repeat("_", len(out))
	}
	return out
}

// StoredOutput references persisted run artefacts.
type StoredOutput struct {
	OutputRef string
	LogRef    string
}

// OutputStore persists raw engine output.  References returned by Save are
// accepted by Load.
type OutputStore interface {
	Save(ctx context.Context, key OutputKey, out *Output) (StoredOutput, error)
	Load(ctx context.Context, ref string) ([]byte, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Observer port
// ─────────────────────────────────────────────────────────────────────────────

// Observer receives run lifecycle notifications, typically for metrics.
type Observer interface {
	RunFinished(run *Run)
	RunRetried(run *Run, err error)
	PoolUsage(inUse, size int)
}

type nopObserver struct{}

func (nopObserver) RunFinished(*Run)       {}
func (nopObserver) RunRetried(*Run, error) {}
func (nopObserver) PoolUsage(int, int)     {}

//Personal.AI order the ending
