// Package docker runs AutoDock Vina inside a container through the Docker
// Engine API.  Inputs and the output directory are bind-mounted, so the
// daemon must share the host filesystem with this process.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/turtacn/BlindDock/internal/config"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/internal/infrastructure/engine/vina"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

const (
	inputDir  = "/in"
	outputDir = "/out"
)

// DockerAPI is the subset of the Docker client used by Engine.
type DockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// Engine implements docking.Engine with one container per run.
type Engine struct {
	api      DockerAPI
	image    string
	platform *ocispec.Platform
	opts     vina.Options
	logger   logging.Logger
}

// New connects to the daemon at cfg.DockerHost (or the environment default).
func New(cfg config.EngineConfig, log logging.Logger) (*Engine, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.DockerHost != "" {
		opts = append(opts, client.WithHost(cfg.DockerHost))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "create docker client")
	}
	return NewWithAPI(cli, cfg, log), nil
}

// NewWithAPI builds an Engine on an existing client.
func NewWithAPI(api DockerAPI, cfg config.EngineConfig, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	image := cfg.Image
	if image == "" {
		image = config.DefaultEngineImage
	}
	opts := vina.OptionsFromConfig(cfg)
	if opts.Binary == "" {
		opts.Binary = config.DefaultVinaBinary
	}
	return &Engine{
		api:      api,
		image:    image,
		platform: ParsePlatform(cfg.Platform),
		opts:     opts,
		logger:   log.Named("docker-engine"),
	}
}

// ParsePlatform reads "os/arch[/variant]".  An empty value leaves the choice
// to the daemon.
func ParsePlatform(s string) *ocispec.Platform {
	if s == "" {
		return nil
	}
	parts := strings.SplitN(s, "/", 3)
	p := &ocispec.Platform{OS: parts[0]}
	if len(parts) > 1 {
		p.Architecture = parts[1]
	}
	if len(parts) > 2 {
		p.Variant = parts[2]
	}
	return p
}

// Name implements docking.Engine.
func (e *Engine) Name() string { return "docker" }

// InputFormats implements docking.InputFormatter.
func (e *Engine) InputFormats() []structure.Format {
	return []structure.Format{structure.FormatPDBQT}
}

// Ping validates connectivity to the Docker daemon.
func (e *Engine) Ping(ctx context.Context) error {
	ping, err := e.api.Ping(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CodeEngineUnavailable, "docker ping")
	}
	if ping.APIVersion == "" {
		return errors.New(errors.CodeEngineUnavailable, "docker ping returned empty API version")
	}
	return nil
}

// Close releases the client.
func (e *Engine) Close() error { return e.api.Close() }

// Dock runs one seeded invocation in a fresh container.  The container is
// stopped when ctx is done and always removed.
func (e *Engine) Dock(ctx context.Context, inv domain.Invocation) (*domain.Output, error) {
	outHost, err := os.MkdirTemp(e.opts.WorkDir, "blinddock-"+inv.RunID+"-")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "cannot create work directory")
	}
	defer os.RemoveAll(outHost)

	mounts, recIn, ligIn, err := inputMounts(inv)
	if err != nil {
		return nil, err
	}
	mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: outHost, Target: outputDir})
	outName := "out." + vina.OutputFormat
	args := vina.Args(e.opts, inv, recIn, ligIn, outputDir+"/"+outName)

	created, err := e.api.ContainerCreate(ctx,
		&container.Config{
			Image:  e.image,
			Cmd:    append([]string{e.opts.Binary}, args...),
			Labels: map[string]string{"blinddock.job_id": inv.JobID, "blinddock.run_id": inv.RunID},
		},
		&container.HostConfig{Mounts: mounts, NetworkMode: "none"},
		nil, e.platform, "")
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "engine image not found").WithDetail(e.image)
		}
		return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "create container").WithDetail(e.image)
	}
	id := created.ID
	defer e.remove(id)

	if err := e.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, errors.Wrap(err, errors.CodeEngineUnavailable, "start container").WithDetail(id)
	}
	e.logger.Debug("container started", logging.RunID(inv.RunID), logging.String("container", shortID(id)))

	code, err := e.wait(ctx, id)
	if err != nil {
		return nil, err
	}
	stdout, stderr := e.logs(id)
	runLog := append(stdout, stderr...)
	if code != 0 {
		return nil, errors.New(errors.CodeEngineFailed, "vina container exited with an error").
			WithDetail(inv.RunID).
			WithCause(&domain.ExitError{Code: int(code), Stderr: string(bytes.TrimSpace(stderr))})
	}

	data, err := os.ReadFile(filepath.Join(outHost, outName))
	if err != nil {
		return nil, errors.MalformedOutput("vina container wrote no output file").WithDetail(inv.RunID).WithCause(err)
	}
	return &domain.Output{Format: vina.OutputFormat, Data: data, Log: runLog}, nil
}

func (e *Engine) wait(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := e.api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return 0, errors.New(errors.CodeEngineUnavailable, "container wait").WithDetail(status.Error.Message)
		}
		return status.StatusCode, nil
	case err := <-errCh:
		if ctx.Err() != nil {
			e.stop(id)
			return 0, ctx.Err()
		}
		return 0, errors.Wrap(err, errors.CodeEngineUnavailable, "container wait").WithDetail(id)
	case <-ctx.Done():
		e.stop(id)
		return 0, ctx.Err()
	}
}

func (e *Engine) stop(id string) {
	grace := int(e.opts.KillGracePeriod / time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.KillGracePeriod+10*time.Second)
	defer cancel()
	if err := e.api.ContainerStop(ctx, id, container.StopOptions{Signal: "SIGINT", Timeout: &grace}); err != nil {
		e.logger.Warn("container stop failed", logging.String("container", shortID(id)), logging.Err(err))
	}
}

func (e *Engine) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil && !client.IsErrNotFound(err) {
		e.logger.Warn("container remove failed", logging.String("container", shortID(id)), logging.Err(err))
	}
}

func (e *Engine) logs(id string) ([]byte, []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rc, err := e.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		e.logger.Warn("container logs unavailable", logging.String("container", shortID(id)), logging.Err(err))
		return nil, nil
	}
	defer rc.Close()
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		e.logger.Warn("container logs truncated", logging.String("container", shortID(id)), logging.Err(err))
	}
	return stdout.Bytes(), stderr.Bytes()
}

// inputMounts bind-mounts receptor and ligand read-only and returns their
// in-container paths.
func inputMounts(inv domain.Invocation) ([]mount.Mount, string, string, error) {
	var mounts []mount.Mount
	paths := make([]string, 2)
	for i, in := range []domain.Input{inv.Receptor, inv.Ligand} {
		src, err := filepath.Abs(in.Path)
		if err != nil {
			return nil, "", "", errors.InvalidParam("invalid input path").WithDetail(in.Path)
		}
		target := fmt.Sprintf("%s/%d-%s", inputDir, i, filepath.Base(src))
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: src, Target: target, ReadOnly: true})
		paths[i] = target
	}
	return mounts, paths[0], paths[1], nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

//Personal.AI order the ending
