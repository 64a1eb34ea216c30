//go:build integration

package docker_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/mini-maxit/harness/internal/docker"
	"github.com/mini-maxit/harness/pkg/constants"
	pkgerrors "github.com/mini-maxit/harness/pkg/errors"
)

const testImage = "busybox:1.36"

func newClient(t *testing.T) docker.DockerClient {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dc, err := docker.NewDockerClient()
	if err != nil {
		t.Fatalf("failed to create docker client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := dc.EnsureImage(ctx, testImage); err != nil {
		t.Fatalf("failed to ensure image %s: %v", testImage, err)
	}
	return dc
}

func runContainer(t *testing.T, dc docker.DockerClient, cmd []string) string {
	t.Helper()
	ctx := context.Background()

	id, err := dc.CreateContainer(ctx, &container.Config{Image: testImage, Cmd: cmd}, &container.HostConfig{}, "")
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), constants.ContainerCleanupTimeout)
		defer cancel()
		_ = dc.ContainerRemove(cleanupCtx, id)
	})

	if err := dc.StartContainer(ctx, id); err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	return id
}

func TestWaitContainer_ExitCodeAndLogs(t *testing.T) {
	dc := newClient(t)
	id := runContainer(t, dc, []string{"sh", "-c", "echo out; echo err >&2; exit 3"})

	code, err := dc.WaitContainer(context.Background(), id, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}

	var stdout, stderr bytes.Buffer
	if err := dc.ContainerLogs(context.Background(), id, &stdout, &stderr); err != nil {
		t.Fatalf("failed to read logs: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "out" || strings.TrimSpace(stderr.String()) != "err" {
		t.Fatalf("unexpected logs stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func TestWaitContainer_Timeout(t *testing.T) {
	dc := newClient(t)
	id := runContainer(t, dc, []string{"sleep", "30"})

	_, err := dc.WaitContainer(context.Background(), id, 500*time.Millisecond)
	if !errors.Is(err, pkgerrors.ErrContainerTimeout) {
		t.Fatalf("expected ErrContainerTimeout, got %v", err)
	}
	if err := dc.ContainerKill(context.Background(), id, "SIGKILL"); err != nil {
		t.Fatalf("failed to kill container: %v", err)
	}
}
