package local

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	apperrors "github.com/turtacn/BlindDock/pkg/errors"
)

func newMemStore(t *testing.T) (*OutputStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewOutputStoreFs(fs, "/results", nil)
	require.NoError(t, err)
	return s, fs
}

func TestOutputStore_SaveLoad(t *testing.T) {
	s, fs := newMemStore(t)
	ctx := context.Background()
	key := domain.OutputKey{JobID: "job-1", Seed: 2, Receptor: "1abc", Ligand: "aspirin"}

	stored, err := s.Save(ctx, key, &domain.Output{Format: "pdbqt", Data: []byte("MODEL 1\nENDMDL\n"), Log: []byte("mode | affinity")})
	require.NoError(t, err)
	assert.Equal(t, "job-1/seed-2/1abc__aspirin_out.pdbqt", stored.OutputRef)
	assert.Equal(t, "job-1/seed-2/1abc__aspirin.log", stored.LogRef)

	data, err := s.Load(ctx, stored.OutputRef)
	require.NoError(t, err)
	assert.Equal(t, "MODEL 1\nENDMDL\n", string(data))

	exists, err := afero.Exists(fs, "/results/job-1/seed-2/1abc__aspirin_out.pdbqt.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOutputStore_RetryOverwrites(t *testing.T) {
	s, _ := newMemStore(t)
	ctx := context.Background()
	key := domain.OutputKey{JobID: "j", Seed: 1, Receptor: "r", Ligand: "l"}

	_, err := s.Save(ctx, key, &domain.Output{Format: "pdbqt", Data: []byte("first")})
	require.NoError(t, err)
	stored, err := s.Save(ctx, key, &domain.Output{Format: "pdbqt", Data: []byte("second")})
	require.NoError(t, err)

	data, err := s.Load(ctx, stored.OutputRef)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestOutputStore_LoadErrors(t *testing.T) {
	s, _ := newMemStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "nope/seed-1/x.pdbqt")
	assert.True(t, apperrors.IsNotFound(err))

	for _, ref := range []string{"", "/etc/passwd", "../outside"} {
		_, err := s.Load(ctx, ref)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam), ref)
	}
}

func TestOutputStore_ReadOnlyFs(t *testing.T) {
	s, base := newMemStore(t)
	s.fs = afero.NewReadOnlyFs(base)

	_, err := s.Save(context.Background(), domain.OutputKey{JobID: "j", Seed: 1}, &domain.Output{Format: "pdbqt"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
}

func TestOutputStore_DeleteJob(t *testing.T) {
	s, fs := newMemStore(t)
	ctx := context.Background()
	for seed := int64(1); seed <= 2; seed++ {
		_, err := s.Save(ctx, domain.OutputKey{JobID: "job 9", Seed: seed}, &domain.Output{Format: "pdbqt"})
		require.NoError(t, err)
	}
	require.NoError(t, s.DeleteJob(ctx, "job 9"))

	exists, err := afero.DirExists(fs, "/results/job_9")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOutputStore_DotJobIDsStayInsideRoot(t *testing.T) {
	s, fs := newMemStore(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(fs, "/precious.txt", []byte("keep"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/results/other-job/seed-1/a.pdbqt", []byte("keep"), 0o644))

	for _, id := range []string{".", ".."} {
		require.NoError(t, s.DeleteJob(ctx, id))

		stored, err := s.Save(ctx, domain.OutputKey{JobID: id, Seed: 1, Receptor: "r", Ligand: "l"}, &domain.Output{Format: "pdbqt", Data: []byte("x")})
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(stored.OutputRef, "."), stored.OutputRef)
	}

	for _, p := range []string{"/precious.txt", "/results/other-job/seed-1/a.pdbqt"} {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.True(t, exists, p)
	}
}

func TestOutputStore_ResolveRejectsEscapes(t *testing.T) {
	s, _ := newMemStore(t)
	for _, ref := range []string{"", ".", "..", "../x", "a/../../x"} {
		_, err := s.resolve(ref)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam), ref)
	}
	p, err := s.resolve("job-1/seed-1/out.pdbqt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/results", "job-1", "seed-1", "out.pdbqt"), p)
}

func TestNewOutputStore_RequiresRoot(t *testing.T) {
	_, err := NewOutputStoreFs(afero.NewMemMapFs(), "", nil)
	assert.Error(t, err)
}

//Personal.AI order the ending
