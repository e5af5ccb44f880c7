package vina

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	apperrors "github.com/turtacn/BlindDock/pkg/errors"
)

func testInvocation() domain.Invocation {
	return domain.Invocation{
		JobID:    "job-1",
		RunID:    "job-1-s7",
		Seed:     7,
		Attempt:  1,
		Receptor: domain.Input{ID: "rec", Path: "/data/rec.pdbqt"},
		Ligand:   domain.Input{ID: "lig", Path: "/data/lig.pdbqt"},
		Space: searchspace.SearchSpace{
			Center:  [3]float64{1.5, -2, 10.25},
			Extents: [3]float64{30, 24, 26.5},
		},
	}
}

// fakeVina writes an executable shell script standing in for vina.
func fakeVina(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	path := filepath.Join(t.TempDir(), "vina")
	script := "#!/bin/sh\nout=\"\"\nfor a in \"$@\"; do\n  if [ \"$prev\" = \"--out\" ]; then out=\"$a\"; fi\n  prev=\"$a\"\ndone\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestArgs(t *testing.T) {
	opts := Options{Exhaustiveness: 8, NumModes: 9, Verbosity: 2, CPU: 4}
	inv := testInvocation()

	args := Args(opts, inv, "r.pdbqt", "l.pdbqt", "/tmp/out.pdbqt")
	assert.Equal(t, []string{
		"--receptor", "r.pdbqt",
		"--ligand", "l.pdbqt",
		"--center_x", "1.500", "--center_y", "-2.000", "--center_z", "10.250",
		"--size_x", "30.000", "--size_y", "24.000", "--size_z", "26.500",
		"--seed", "7",
		"--exhaustiveness", "8",
		"--num_modes", "9",
		"--cpu", "4",
		"--verbosity", "2",
		"--out", "/tmp/out.pdbqt",
	}, args)

	inv.Exhaustiveness = 32
	args = Args(Options{Exhaustiveness: 8}, inv, "r", "l", "o")
	assert.Contains(t, args, "32")
	assert.NotContains(t, args, "--cpu")
	assert.NotContains(t, args, "--num_modes")
}

func TestEngine_DockSuccess(t *testing.T) {
	bin := fakeVina(t, "echo \"$@\"\nprintf 'MODEL 1\\nREMARK VINA RESULT:    -7.1      0.000      0.000\\nENDMDL\\n' > \"$out\"\n")
	e := New(Options{Binary: bin, WorkDir: t.TempDir(), Verbosity: 2}, nil)

	out, err := e.Dock(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.Equal(t, OutputFormat, out.Format)
	assert.Contains(t, string(out.Data), "REMARK VINA RESULT:    -7.1")
	assert.Contains(t, string(out.Log), "--seed 7")
	assert.Equal(t, "vina", e.Name())
}

func TestEngine_DockExitFailure(t *testing.T) {
	bin := fakeVina(t, "echo 'bad receptor' >&2\nexit 3\n")
	e := New(Options{Binary: bin, WorkDir: t.TempDir()}, nil)

	_, err := e.Dock(context.Background(), testInvocation())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEngineFailed))

	var exit *domain.ExitError
	require.True(t, stderrors.As(err, &exit))
	assert.Equal(t, 3, exit.Code)
	assert.Equal(t, "bad receptor", exit.Stderr)
}

func TestEngine_DockMissingOutput(t *testing.T) {
	bin := fakeVina(t, "exit 0\n")
	e := New(Options{Binary: bin, WorkDir: t.TempDir()}, nil)

	_, err := e.Dock(context.Background(), testInvocation())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedOutput))
}

func TestEngine_BinaryMissing(t *testing.T) {
	e := New(Options{Binary: filepath.Join(t.TempDir(), "no-such-vina")}, nil)

	_, err := e.Dock(context.Background(), testInvocation())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEngineUnavailable))
	assert.True(t, apperrors.IsTransient(err))
}

func TestEngine_ContextCancelStopsProcess(t *testing.T) {
	bin := fakeVina(t, "exec sleep 10\n")
	e := New(Options{Binary: bin, WorkDir: t.TempDir(), KillGracePeriod: 200 * time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := e.Dock(ctx, testInvocation())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

//Personal.AI order the ending
