// Package local persists raw docking run output on a filesystem.
package local

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// OutputStore writes run output under a root directory.  References are
// slash-separated paths relative to the root.
type OutputStore struct {
	fs     afero.Fs
	root   string
	logger logging.Logger
}

// NewOutputStore returns a store rooted at root on the OS filesystem.
func NewOutputStore(root string, log logging.Logger) (*OutputStore, error) {
	return NewOutputStoreFs(afero.NewOsFs(), root, log)
}

// NewOutputStoreFs returns a store on an arbitrary afero filesystem.
func NewOutputStoreFs(fs afero.Fs, root string, log logging.Logger) (*OutputStore, error) {
	if root == "" {
		return nil, errors.InvalidParam("local store: root directory is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "cannot create output root").WithDetail(root)
	}
	return &OutputStore{fs: fs, root: filepath.Clean(root), logger: log.Named("local-store")}, nil
}

// Root returns the store's root directory.
func (s *OutputStore) Root() string { return s.root }

// Save writes the output and log files.  Files are written to a temporary
// name and renamed so a reader never observes a partial output.
func (s *OutputStore) Save(ctx context.Context, key domain.OutputKey, out *domain.Output) (domain.StoredOutput, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredOutput{}, err
	}
	prefix := key.Prefix()
	dir, err := s.resolve(prefix)
	if err != nil {
		return domain.StoredOutput{}, err
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return domain.StoredOutput{}, errors.Wrap(err, errors.CodeStorage, "cannot create run directory").WithDetail(prefix)
	}
	stored := domain.StoredOutput{
		OutputRef: path.Join(prefix, key.OutputName(out.Format)),
		LogRef:    path.Join(prefix, key.LogName()),
	}
	if err := s.write(stored.OutputRef, out.Data); err != nil {
		return domain.StoredOutput{}, err
	}
	if err := s.write(stored.LogRef, out.Log); err != nil {
		return domain.StoredOutput{}, err
	}
	s.logger.Debug("run output written", logging.String("path", filepath.Join(dir, key.OutputName(out.Format))))
	return stored, nil
}

func (s *OutputStore) write(ref string, data []byte) error {
	dst, err := s.resolve(ref)
	if err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeStorage, "write failed").WithDetail(ref)
	}
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, errors.CodeStorage, "rename failed").WithDetail(ref)
	}
	return nil
}

// Load reads the file at ref.  References escaping the root are rejected.
func (s *OutputStore) Load(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" || path.IsAbs(ref) {
		return nil, errors.InvalidParam("invalid output reference").WithDetail(ref)
	}
	file, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("output not found").WithDetail(ref)
		}
		return nil, errors.Wrap(err, errors.CodeStorage, "read failed").WithDetail(ref)
	}
	return data, nil
}

// DeleteJob removes every run directory of jobID.
func (s *OutputStore) DeleteJob(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.resolve(strings.TrimSuffix(domain.JobPrefix(jobID), "/"))
	if err != nil {
		return err
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return errors.Wrap(err, errors.CodeStorage, "delete failed").WithDetail(jobID)
	}
	return nil
}

// resolve maps ref to a path strictly below the root.  The root itself and
// anything outside it are rejected.
func (s *OutputStore) resolve(ref string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.InvalidParam("output reference escapes the store root").WithDetail(ref)
	}
	return p, nil
}

//Personal.AI order the ending
