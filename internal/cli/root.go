// Package cli provides the command-line interface of the harness.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/config"
	"github.com/mini-maxit/harness/internal/docker"
	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/internal/pipeline"
	"github.com/mini-maxit/harness/internal/rabbitmq/responder"
	"github.com/mini-maxit/harness/internal/stages/executor"
	"github.com/mini-maxit/harness/internal/stages/packager"
	"github.com/mini-maxit/harness/internal/stages/verifier"
	"github.com/mini-maxit/harness/pkg/constants"
)

// Dependencies builds the pieces of a harness that talk to the outside world. Tests replace
// them to run the commands without real processes or a broker.
type Dependencies struct {
	NewExecutor  func(cfg *config.Config) (executor.Executor, error)
	NewResponder func(cfg *config.Config) (responder.Responder, error)
}

// DefaultDependencies selects the sandbox and the report sink from the configuration.
func DefaultDependencies() Dependencies {
	return Dependencies{
		NewExecutor:  newExecutor,
		NewResponder: newResponder,
	}
}

func newExecutor(cfg *config.Config) (executor.Executor, error) {
	if cfg.Sandbox == constants.SandboxDocker {
		dCli, err := docker.NewDockerClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}
		return executor.NewDockerExecutor(dCli, cfg.SandboxImage), nil
	}
	return executor.NewLocalExecutor(), nil
}

func newResponder(cfg *config.Config) (responder.Responder, error) {
	if cfg.ReportAMQPURL == "" {
		return responder.NewNoopResponder(), nil
	}
	return responder.Dial(cfg.ReportAMQPURL, cfg.ReportQueue)
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	flags  *GlobalFlags
	deps   Dependencies
	cfg    *config.Config
	logger *zap.SugaredLogger
}

// newHarness wires a harness for the loaded configuration. The returned close function
// releases the report sink.
func (a *app) newHarness() (pipeline.Harness, func(), error) {
	ex, err := a.deps.NewExecutor(a.cfg)
	if err != nil {
		return nil, nil, err
	}

	resp, err := a.deps.NewResponder(a.cfg)
	if err != nil {
		a.logger.Warnf("Score reports will not be published: %s", err)
		resp = responder.NewNoopResponder()
	}
	closeFn := func() {
		if err := resp.Close(); err != nil {
			a.logger.Warnf("Failed to close report publisher: %s", err)
		}
	}

	h := pipeline.NewHarness(a.cfg, packager.NewPackager(a.cfg), ex, verifier.NewVerifier(), resp)
	return h, closeFn, nil
}

func newRootCmd(flags *GlobalFlags, deps Dependencies) *cobra.Command {
	a := &app{flags: flags, deps: deps, logger: logger.NewNamedLogger("cli")}

	cmd := &cobra.Command{
		Use:   "harness",
		Short: "Run a graph processing program against test cases and score its outputs",
		Long: `harness runs the processing program once per .graph test case under a time limit and a
memory ceiling, annotates every output with its exit status, routes the outputs of the
student and common test sets to separate results directories and scores them against the
.truth files.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewConfig(flags.WorkDir)
			ApplyGlobalFlags(cmd, flags, cfg)
			if err := cfg.ResolveWorkDir(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	AddRunCommand(cmd, a)
	AddScoreCommand(cmd, a)
	AddCleanCommand(cmd, a)
	AddVerifyCommand(cmd, a)

	return cmd
}

// Execute runs the root command with the provided context.
func Execute(ctx context.Context) error {
	return ExecuteWith(ctx, DefaultDependencies(), nil, nil)
}

// ExecuteWith runs the root command with the given dependencies and arguments. Nil args
// means the process arguments, a nil out means standard output.
func ExecuteWith(ctx context.Context, deps Dependencies, args []string, out io.Writer) error {
	cmd := newRootCmd(&GlobalFlags{}, deps)
	if args != nil {
		cmd.SetArgs(args)
	}
	if out != nil {
		cmd.SetOut(out)
	}
	return cmd.ExecuteContext(ctx)
}
