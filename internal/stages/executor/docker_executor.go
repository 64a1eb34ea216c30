package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/docker"
	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
)

type dockerExecutor struct {
	logger *zap.SugaredLogger
	docker docker.DockerClient
	image  string
}

// NewDockerExecutor runs the program inside a throwaway container with the working directory
// bind mounted, so the memory ceiling is enforced by the container runtime.
func NewDockerExecutor(dCli docker.DockerClient, image string) Executor {
	return &dockerExecutor{
		logger: logger.NewNamedLogger("docker-executor"),
		docker: dCli,
		image:  image,
	}
}

func (d *dockerExecutor) Execute(ctx context.Context, cfg CommandConfig) (*ExecutionResult, error) {
	if len(cfg.Program) == 0 {
		return nil, customErr.ErrEmptyProgram
	}

	rel, err := filepath.Rel(cfg.WorkDir, cfg.InputPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", customErr.ErrInputOutsideWorkDir, cfg.InputPath)
	}

	d.logger.Infof("Starting execution in %s [RunID: %s, Test: %s]", d.image, cfg.RunID, cfg.TestName)

	cmd := append(append([]string{}, cfg.Program...), path.Join(".", filepath.ToSlash(rel)))
	containerCfg := buildContainerConfig(d.image, cmd)
	hostCfg := buildHostConfig(cfg.WorkDir, cfg.MemoryLimitKB)

	if err := d.docker.EnsureImage(ctx, d.image); err != nil {
		return nil, err
	}

	containerName := SanitizeContainerName(cfg.RunID + "-" + cfg.TestName)
	containerID, err := d.docker.CreateContainer(ctx, containerCfg, hostCfg, containerName)
	if err != nil {
		return nil, err
	}

	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), constants.ContainerCleanupTimeout)
		defer cleanupCancel()
		if err := d.docker.ContainerRemove(cleanupCtx, containerID); err != nil {
			d.logger.Warnf("Failed to remove container %s: %s", containerID, err)
		}
	}()

	if err := d.docker.StartContainer(ctx, containerID); err != nil {
		return nil, err
	}
	start := time.Now()

	result := &ExecutionResult{}
	statusCode, err := d.docker.WaitContainer(ctx, containerID, cfg.TimeLimit)
	result.Duration = time.Since(start)
	if err != nil {
		if !errors.Is(err, customErr.ErrContainerTimeout) {
			return nil, err
		}
		if killErr := d.docker.ContainerKill(ctx, containerID, "SIGKILL"); killErr != nil {
			d.logger.Warnf("Failed to kill container %s: %s", containerID, killErr)
		}
		result.TimedOut = true
		statusCode = constants.ExitCodeTimeLimitExceeded
	}
	result.ExitCode = int(statusCode)

	stdout := newCappedBuffer(constants.MaxCapturedOutputBytes)
	stderr := newCappedBuffer(constants.MaxCapturedOutputBytes)
	if err := d.docker.ContainerLogs(ctx, containerID, stdout, stderr); err != nil {
		d.logger.Warnf("Failed to read container logs: %s [Test: %s]", err, cfg.TestName)
	}
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()

	d.logger.Infof("Container exited with code %d in %s [Test: %s]", result.ExitCode, result.Duration, cfg.TestName)
	return result, nil
}

func buildContainerConfig(image string, cmd []string) *container.Config {
	stopTimeout := int(2)

	return &container.Config{
		Image:           image,
		Cmd:             cmd,
		WorkingDir:      constants.ContainerWorkspaceDir,
		User:            fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		Env:             []string{"OMP_NUM_THREADS=1", "MKL_NUM_THREADS=1", "NUMEXPR_NUM_THREADS=1"},
		NetworkDisabled: true,
		StopTimeout:     &stopTimeout,
		StopSignal:      "SIGKILL",
	}
}

func buildHostConfig(workDir string, memoryLimitKB int64) *container.HostConfig {
	memoryBytes := memoryLimitKB * 1024

	return &container.HostConfig{
		AutoRemove:  false,
		Binds:       []string{workDir + ":" + constants.ContainerWorkspaceDir},
		NetworkMode: container.NetworkMode("none"),
		Resources: container.Resources{
			Memory:     memoryBytes,
			MemorySwap: memoryBytes,
			PidsLimit:  func(v int64) *int64 { return &v }(64),
			CPUPeriod:  100_000,
			CPUQuota:   100_000,
		},
		SecurityOpt: []string{"no-new-privileges"},
		IpcMode:     container.IpcMode("private"),
		CapDrop:     []string{"ALL"},
	}
}
