//go:build unix

package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
)

// waitDelay bounds how long Wait keeps reading pipes held open by leftover children.
const waitDelay = 2 * time.Second

// memoryLimitScript sets the address space limit in the shell and then replaces itself with
// the program, so the limit holds from the first instruction and is inherited by children.
const memoryLimitScript = `ulimit -v "$1" || echo "failed to set memory limit of $1 KB" >&2; shift; exec "$@"`

type localExecutor struct {
	logger *zap.SugaredLogger
}

// NewLocalExecutor runs the program as a child process in its own process group.
// The memory ceiling is applied as an address space rlimit set before the program starts.
func NewLocalExecutor() Executor {
	return &localExecutor{logger: logger.NewNamedLogger("local-executor")}
}

func (e *localExecutor) Execute(ctx context.Context, cfg CommandConfig) (*ExecutionResult, error) {
	if len(cfg.Program) == 0 {
		return nil, customErr.ErrEmptyProgram
	}

	e.logger.Infof("Starting execution [RunID: %s, Test: %s]", cfg.RunID, cfg.TestName)

	argv := LimitedCommand(cfg.Program, cfg.InputPath, cfg.MemoryLimitKB)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cfg.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay

	stdout := newCappedBuffer(constants.MaxCapturedOutputBytes)
	stderr := newCappedBuffer(constants.MaxCapturedOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			e.logger.Errorf("Failed to start program %v: %s [Test: %s]", cfg.Program, err, cfg.TestName)
			return &ExecutionResult{
				ExitCode: constants.ExitCodeCommandNotFound,
				Stderr:   []byte(err.Error()),
			}, nil
		}
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(cfg.TimeLimit)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer.C:
		killProcessGroup(cmd)
		<-done
		e.logger.Infof("Program timed out after %s [Test: %s]", cfg.TimeLimit, cfg.TestName)
		return &ExecutionResult{
			ExitCode: constants.ExitCodeTimeLimitExceeded,
			TimedOut: true,
			Duration: time.Since(start),
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
		}, nil
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	}
	duration := time.Since(start)

	exitCode, err := exitCodeOf(waitErr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}

	e.logger.Infof("Program exited with code %d in %s [Test: %s]", exitCode, duration, cfg.TestName)
	return &ExecutionResult{
		ExitCode: exitCode,
		Duration: duration,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}

// exitCodeOf follows the shell convention of 128+signal for processes killed by a signal,
// so an out of memory kill is reported as 137.
// LimitedCommand returns the command line that runs program on input. With a positive
// limitKB the program is started through /bin/sh, which applies the limit and execs it.
func LimitedCommand(program []string, input string, limitKB int64) []string {
	argv := make([]string, 0, len(program)+5)
	if limitKB > 0 {
		argv = append(argv, "/bin/sh", "-c", memoryLimitScript, "harness", strconv.FormatInt(limitKB, 10))
	}
	argv = append(argv, program...)
	return append(argv, input)
}

func exitCodeOf(waitErr error) (int, error) {
	if waitErr == nil {
		return constants.ExitCodeSuccess, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		// WaitDelay expired with the process already reaped.
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			return constants.ExitCodeSuccess, nil
		}
		return 0, waitErr
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative PID targets the whole group.
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
