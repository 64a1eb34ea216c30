//go:build !unix

package executor

import (
	"context"
	"fmt"
	"runtime"

	customErr "github.com/mini-maxit/harness/pkg/errors"
)

type localExecutor struct{}

// NewLocalExecutor returns an executor that refuses to run, process groups and rlimits are
// only available on unix systems. Use the docker sandbox instead.
func NewLocalExecutor() Executor {
	return localExecutor{}
}

func (localExecutor) Execute(context.Context, CommandConfig) (*ExecutionResult, error) {
	return nil, fmt.Errorf("%w: local sandbox on %s", customErr.ErrInvalidSandbox, runtime.GOOS)
}
