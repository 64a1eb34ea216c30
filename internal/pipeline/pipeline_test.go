package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/mini-maxit/harness/internal/config"
	"github.com/mini-maxit/harness/internal/pipeline"
	"github.com/mini-maxit/harness/internal/stages/executor"
	"github.com/mini-maxit/harness/internal/stages/packager"
	"github.com/mini-maxit/harness/internal/stages/verifier"
	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
	"github.com/mini-maxit/harness/pkg/result"
	"github.com/mini-maxit/harness/tests"
	mocks "github.com/mini-maxit/harness/tests/mocks"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		WorkDir:           t.TempDir(),
		Program:           []string{"python3", "main.py"},
		StudentTestsDir:   constants.DefaultStudentTestsDir,
		CommonTestsDir:    constants.CommonTestsDir,
		OutputDir:         constants.DefaultOutputDir,
		StudentResultsDir: constants.StudentResultsDir,
		CommonResultsDir:  constants.CommonResultsDir,
		ScoreFile:         constants.ScoreFileName,
		TimeLimit:         time.Second,
		MemoryLimitKB:     constants.DefaultMemoryLimitKB,
		Sandbox:           constants.SandboxLocal,
	}
}

// writeOutput emulates a program that writes its decomposition to the interim directory.
func writeOutput(cfg *config.Config, name, content string) error {
	dir := cfg.Path(cfg.OutputDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+constants.OutputFileExt), []byte(content), 0644)
}

func newHarness(cfg *config.Config, ex executor.Executor, resp *mocks.MockResponder) pipeline.Harness {
	return pipeline.NewHarness(cfg, packager.NewPackager(cfg), ex, verifier.NewVerifier(), resp)
}

func TestRun_CompletedAndTimedOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockExecutor := mocks.NewMockExecutor(ctrl)
	mockResponder := mocks.NewMockResponder(ctrl)

	cfg := newConfig(t)
	commonDir := cfg.Path(cfg.CommonTestsDir)
	tests.WriteFile(t, commonDir, "a.graph", tests.SampleGraph)
	tests.WriteFile(t, commonDir, "a.truth", tests.SampleTruth)
	tests.WriteFile(t, commonDir, "b.graph", tests.SampleGraph)
	tests.WriteFile(t, commonDir, "b.truth", tests.SampleTruth)

	gomock.InOrder(
		mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c executor.CommandConfig) (*executor.ExecutionResult, error) {
				if c.TestName != "a" || c.InputPath != filepath.Join(commonDir, "a.graph") || c.WorkDir != cfg.WorkDir {
					t.Errorf("unexpected command config %+v", c)
				}
				return &executor.ExecutionResult{ExitCode: 0}, writeOutput(cfg, "a", tests.SampleTruth)
			}),
		mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			Return(&executor.ExecutionResult{ExitCode: 124, TimedOut: true}, nil),
	)

	h := newHarness(cfg, mockExecutor, mockResponder)
	if err := h.Clean(); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	runs, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 run results, got %d", len(runs))
	}
	if runs[0].Status != result.Completed || runs[0].ExitCode != 0 {
		t.Fatalf("unexpected result for a: %+v", runs[0])
	}
	if runs[1].Status != result.TimedOut || runs[1].ExitCode != constants.ExitCodeTimeLimitExceeded {
		t.Fatalf("unexpected result for b: %+v", runs[1])
	}
	if runs[0].Err() != nil || !errors.Is(runs[1].Err(), customErr.ErrTimeout) {
		t.Fatalf("expected only b to fail with a timeout, got %v and %v", runs[0].Err(), runs[1].Err())
	}

	resultsDir := cfg.Path(cfg.CommonResultsDir)
	aOut := tests.ReadFile(t, filepath.Join(resultsDir, "a.out"))
	if !strings.HasPrefix(aOut, tests.SampleTruth) || !strings.HasSuffix(aOut, "TEST. EXIT CODE 0\n") {
		t.Fatalf("unexpected a.out content %q", aOut)
	}
	bOut := tests.ReadFile(t, filepath.Join(resultsDir, "b.out"))
	if !strings.Contains(bOut, "TEST. EXIT CODE 124\nTIMED OUT\n") {
		t.Fatalf("unexpected b.out content %q", bOut)
	}

	manifest, err := packager.ReadManifest(filepath.Join(resultsDir, constants.RunManifestFileName))
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if manifest.RunID != h.RunID() || len(manifest.Results) != 2 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}

	var published []result.ScoreReport
	mockResponder.EXPECT().PublishScoreReport(gomock.Any()).
		DoAndReturn(func(r result.ScoreReport) error {
			published = append(published, r)
			return nil
		}).Times(2)

	var out bytes.Buffer
	reports, err := h.Score(context.Background(), &out)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if len(reports) != 2 || len(published) != 2 {
		t.Fatalf("expected 2 reports, got %d (%d published)", len(reports), len(published))
	}
	if reports[0].Set != constants.TestSetStudent || len(reports[0].Cases) != 0 {
		t.Fatalf("expected an empty student report, got %+v", reports[0])
	}

	common := reports[1]
	if common.RunID != h.RunID() {
		t.Fatalf("expected report run id %s, got %s", h.RunID(), common.RunID)
	}
	a, _ := common.Case("a")
	if a.Outcome != result.CasePassed || a.Score != constants.BaseScore {
		t.Fatalf("expected a to match, got %s score %d", a.Outcome, a.Score)
	}
	b, _ := common.Case("b")
	if b.Outcome != result.CaseMalformedResult || b.RunStatus != result.TimedOut.String() {
		t.Fatalf("expected b to fail after timing out, got %s run=%s", b.Outcome, b.RunStatus)
	}

	text := out.String()
	if !strings.Contains(text, "Total Score across all tests: 40") ||
		!strings.Contains(text, "Final Total Score across all tests: 40") {
		t.Fatalf("unexpected score output:\n%s", text)
	}
	if got := tests.ReadFile(t, cfg.Path(cfg.ScoreFile)); got != "40\n" {
		t.Fatalf("unexpected accumulated score %q", got)
	}
}

func TestRun_RoutesSetsToSeparateResultDirs(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockExecutor := mocks.NewMockExecutor(ctrl)

	cfg := newConfig(t)
	tests.WriteFile(t, cfg.Path(cfg.StudentTestsDir), "s.graph", tests.SampleGraph)
	tests.WriteFile(t, cfg.Path(cfg.CommonTestsDir), "c.graph", tests.SampleGraph)

	mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c executor.CommandConfig) (*executor.ExecutionResult, error) {
			return &executor.ExecutionResult{ExitCode: 0}, writeOutput(cfg, c.TestName, "1 0\n")
		}).Times(2)

	h := newHarness(cfg, mockExecutor, mocks.NewMockResponder(ctrl))
	runs, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if runs[0].Set != constants.TestSetStudent || runs[1].Set != constants.TestSetCommon {
		t.Fatalf("expected the student set to run first, got %s then %s", runs[0].Set, runs[1].Set)
	}

	for path, want := range map[string]bool{
		filepath.Join(cfg.Path(cfg.StudentResultsDir), "s.out"): true,
		filepath.Join(cfg.Path(cfg.StudentResultsDir), "c.out"): false,
		filepath.Join(cfg.Path(cfg.CommonResultsDir), "c.out"):  true,
		filepath.Join(cfg.Path(cfg.CommonResultsDir), "s.out"):  false,
	} {
		_, err := os.Stat(path)
		if exists := err == nil; exists != want {
			t.Fatalf("expected %s to exist=%v", path, want)
		}
	}
	tests.AssertEmptyDir(t, cfg.Path(cfg.OutputDir))
}

func TestRun_RecordsExitCodeAndContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockExecutor := mocks.NewMockExecutor(ctrl)

	cfg := newConfig(t)
	for _, name := range []string{"a.graph", "b.graph", "c.graph"} {
		tests.WriteFile(t, cfg.Path(cfg.CommonTestsDir), name, tests.SampleGraph)
	}

	gomock.InOrder(
		mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			Return(&executor.ExecutionResult{ExitCode: 137, Stdout: []byte("2 1\n")}, nil),
		mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("sandbox unavailable")),
		mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			Return(&executor.ExecutionResult{ExitCode: 0}, nil),
	)

	runs, err := newHarness(cfg, mockExecutor, mocks.NewMockResponder(ctrl)).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected all 3 test cases to run, got %d", len(runs))
	}
	if runs[0].Status != result.RuntimeError || runs[0].ExitCode != 137 {
		t.Fatalf("unexpected result for a: %+v", runs[0])
	}
	if runs[1].Status != result.RuntimeError || runs[1].ExitCode != constants.ExitCodeNotObserved {
		t.Fatalf("unexpected result for b: %+v", runs[1])
	}
	if !errors.Is(runs[0].Err(), customErr.ErrAbnormalExit) {
		t.Fatalf("expected abnormal exit error for a, got %v", runs[0].Err())
	}
	if runs[2].Status != result.Completed {
		t.Fatalf("unexpected result for c: %+v", runs[2])
	}

	aOut := tests.ReadFile(t, filepath.Join(cfg.Path(cfg.CommonResultsDir), "a.out"))
	if aOut != "2 1\nTEST. EXIT CODE 137\nRUNTIME ERROR\n" {
		t.Fatalf("unexpected a.out content %q", aOut)
	}
}

func TestRun_CancelledContextStopsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockExecutor := mocks.NewMockExecutor(ctrl)

	cfg := newConfig(t)
	tests.WriteFile(t, cfg.Path(cfg.CommonTestsDir), "a.graph", tests.SampleGraph)
	tests.WriteFile(t, cfg.Path(cfg.CommonTestsDir), "b.graph", tests.SampleGraph)

	ctx, cancel := context.WithCancel(context.Background())
	mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ executor.CommandConfig) (*executor.ExecutionResult, error) {
			cancel()
			return nil, ctx.Err()
		}).Times(1)

	_, err := newHarness(cfg, mockExecutor, mocks.NewMockResponder(ctrl)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_CollectFailureIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockPackager := mocks.NewMockPackager(ctrl)
	mockExecutor := mocks.NewMockExecutor(ctrl)

	cfg := newConfig(t)
	writeErr := errors.New("disk full")
	tc := packager.TestCase{Name: "a", Set: constants.TestSetStudent}

	gomock.InOrder(
		mockPackager.EXPECT().DiscoverTestCases(gomock.Any()).Return([]packager.TestCase{tc}, nil),
		mockPackager.EXPECT().PrepareInterim(tc).Return(nil),
		mockExecutor.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(&executor.ExecutionResult{}, nil),
		mockPackager.EXPECT().Collect(tc, gomock.Any(), gomock.Any()).Return(writeErr),
	)

	h := pipeline.NewHarness(cfg, mockPackager, mockExecutor, verifier.NewVerifier(), mocks.NewMockResponder(ctrl))
	if _, err := h.Run(context.Background()); !errors.Is(err, writeErr) {
		t.Fatalf("expected collect error, got %v", err)
	}
}

func TestScore_PublishFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockResponder := mocks.NewMockResponder(ctrl)
	mockResponder.EXPECT().PublishScoreReport(gomock.Any()).Return(errors.New("broker down")).Times(2)

	cfg := newConfig(t)
	h := newHarness(cfg, mocks.NewMockExecutor(ctrl), mockResponder)

	var out bytes.Buffer
	reports, err := h.Score(context.Background(), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
}
