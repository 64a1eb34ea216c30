package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/config"
	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/internal/rabbitmq/responder"
	"github.com/mini-maxit/harness/internal/stages/executor"
	"github.com/mini-maxit/harness/internal/stages/packager"
	"github.com/mini-maxit/harness/internal/stages/verifier"
	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
	"github.com/mini-maxit/harness/pkg/result"
)

// Harness drives one batch: every test case of both sets is run one at a time in discovery
// order, and the results of each set are scored against its truth files.
type Harness interface {
	RunID() string
	Clean() error
	Run(ctx context.Context) ([]result.RunResult, error)
	Score(ctx context.Context, w io.Writer) ([]result.ScoreReport, error)
}

type harness struct {
	runID     string
	cfg       *config.Config
	packager  packager.Packager
	executor  executor.Executor
	verifier  verifier.Verifier
	responder responder.Responder
	logger    *zap.SugaredLogger
}

func NewHarness(
	cfg *config.Config,
	packager packager.Packager,
	executor executor.Executor,
	verifier verifier.Verifier,
	responder responder.Responder,
) Harness {
	runID := uuid.New().String()

	return &harness{
		runID:     runID,
		cfg:       cfg,
		packager:  packager,
		executor:  executor,
		verifier:  verifier,
		responder: responder,
		logger:    logger.NewNamedLogger("harness").With("run_id", runID),
	}
}

func (h *harness) RunID() string {
	return h.runID
}

func (h *harness) Clean() error {
	return h.packager.Clean()
}

// Run executes every test case. A failing or timed out test case is recorded in its result
// and never stops the batch; an error is returned only when results cannot be written or
// ctx is cancelled.
func (h *harness) Run(ctx context.Context) ([]result.RunResult, error) {
	h.logger.Infof("Starting run of %v in %s", h.cfg.Program, h.cfg.WorkDir)

	var all []result.RunResult
	for _, set := range h.cfg.TestSets() {
		cases, err := h.packager.DiscoverTestCases(set)
		if err != nil {
			return all, err
		}

		runs := make([]result.RunResult, 0, len(cases))
		for _, tc := range cases {
			if err := ctx.Err(); err != nil {
				return all, fmt.Errorf("run interrupted before %s: %w", tc.Name, err)
			}

			runResult, err := h.runTestCase(ctx, tc)
			if err != nil {
				return all, err
			}
			runs = append(runs, runResult)
			all = append(all, runResult)
		}

		if len(runs) > 0 {
			if err := h.packager.WriteManifest(set.ResultsDir, h.runID, runs); err != nil {
				return all, fmt.Errorf("failed to write run manifest for %s: %w", set.Name, err)
			}
		}
	}

	h.logger.Infof("Finished run of %d test cases", len(all))
	return all, nil
}

func (h *harness) runTestCase(ctx context.Context, tc packager.TestCase) (result.RunResult, error) {
	if err := h.packager.PrepareInterim(tc); err != nil {
		return result.RunResult{}, err
	}

	execResult, err := h.executor.Execute(ctx, executor.CommandConfig{
		RunID:         h.runID,
		TestName:      tc.Name,
		Program:       h.cfg.Program,
		InputPath:     tc.GraphPath,
		WorkDir:       h.cfg.WorkDir,
		TimeLimit:     h.cfg.TimeLimit,
		MemoryLimitKB: h.cfg.MemoryLimitKB,
	})

	var runResult result.RunResult
	if err != nil {
		if ctx.Err() != nil {
			return result.RunResult{}, err
		}
		h.logger.Errorf("Failed to execute test %s: %s", tc.Name, err)
		runResult = result.NewRunResult(h.runID, tc.Name, tc.Set, constants.ExitCodeNotObserved, false, 0)
		execResult = nil
	} else {
		runResult = result.NewRunResult(h.runID, tc.Name, tc.Set,
			execResult.ExitCode, execResult.TimedOut, execResult.Duration.Milliseconds())
	}

	if runErr := runResult.Err(); errors.Is(runErr, customErr.ErrTimeout) {
		h.logger.Warnf("%s after %s", runErr, h.cfg.TimeLimit)
	} else if runErr != nil {
		h.logger.Warnf("%s", runErr)
	}

	if err := h.packager.Collect(tc, execResult, &runResult); err != nil {
		return result.RunResult{}, err
	}
	return runResult, nil
}

// Score scores the student set and then the common set, printing a report for each. Every
// report adds its total to the accumulated score file.
func (h *harness) Score(ctx context.Context, w io.Writer) ([]result.ScoreReport, error) {
	var reports []result.ScoreReport
	for _, set := range h.cfg.TestSets() {
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("scoring interrupted: %w", err)
		}

		report, err := h.verifier.ScoreDirectory(set.Name, set.TestsDir, set.ResultsDir)
		if err != nil {
			return reports, err
		}
		report.RunID = h.runID

		if err := report.WriteText(w); err != nil {
			return reports, err
		}

		accumulated, err := verifier.AccumulateScore(h.cfg.Path(h.cfg.ScoreFile), report.Total)
		if err != nil {
			return reports, err
		}
		if _, err := fmt.Fprintf(w, "Final Total Score across all tests: %d\n", accumulated); err != nil {
			return reports, err
		}

		if err := h.responder.PublishScoreReport(report); err != nil {
			h.logger.Errorf("Failed to publish %s score report: %s", set.Name, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
