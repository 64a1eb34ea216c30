package verifier_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/mini-maxit/harness/internal/stages/verifier"
	"github.com/mini-maxit/harness/pkg/constants"
	pkgerrors "github.com/mini-maxit/harness/pkg/errors"
	"github.com/mini-maxit/harness/pkg/graph"
	"github.com/mini-maxit/harness/pkg/result"
	"github.com/mini-maxit/harness/tests"
)

func writeCase(t *testing.T, testsDir, resultsDir, name, truth, out string) {
	t.Helper()
	tests.WriteFile(t, testsDir, name+constants.GraphFileExt, tests.SampleGraph)
	if truth != "" {
		tests.WriteFile(t, testsDir, name+constants.TruthFileExt, truth)
	}
	if out != "" {
		tests.WriteFile(t, resultsDir, name+constants.OutputFileExt, out)
	}
}

func TestVerifyCase_OptimalResult(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, dir, "a", tests.SampleTruth, tests.SampleTruth+"TEST. EXIT CODE 0\n")

	cs := NewVerifier().VerifyCase(
		filepath.Join(dir, "a.graph"), filepath.Join(dir, "a.truth"), filepath.Join(dir, "a.out"))
	if cs.Outcome != result.CasePassed {
		t.Fatalf("expected pass, got %s: %s", cs.Outcome, cs.Message)
	}
	if cs.Score != constants.BaseScore {
		t.Fatalf("expected score %d, got %d", constants.BaseScore, cs.Score)
	}
	if cs.RunStatus != result.Completed.String() || cs.ExitCode == nil || *cs.ExitCode != 0 {
		t.Fatalf("expected trailer status COMPLETED/0, got %s/%v", cs.RunStatus, cs.ExitCode)
	}
}

func TestVerifyCase_SuboptimalResult(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, dir, "a", tests.SampleTruth, tests.SampleSuboptimal)

	cs := NewVerifier().VerifyCase(
		filepath.Join(dir, "a.graph"), filepath.Join(dir, "a.truth"), filepath.Join(dir, "a.out"))
	if cs.Outcome != result.CasePassed || cs.Score != constants.BaseScore-1 {
		t.Fatalf("expected pass with score %d, got %s score %d", constants.BaseScore-1, cs.Outcome, cs.Score)
	}
	if cs.Paths != 3 || cs.Cycles != 1 {
		t.Fatalf("expected 3 paths and 1 cycle, got %d and %d", cs.Paths, cs.Cycles)
	}
}

func TestVerifyCase_Failures(t *testing.T) {
	cases := []struct {
		name    string
		truth   string
		out     string
		outcome result.CaseOutcome
	}{
		{"mismatch", tests.SampleTruth, tests.SampleMismatch, result.CaseMismatch},
		{"timed out without output", tests.SampleTruth, "TEST. EXIT CODE 124\nTIMED OUT\n", result.CaseMalformedResult},
		{"missing result", tests.SampleTruth, "", result.CaseMissingResult},
		{"missing truth", "", tests.SampleTruth, result.CaseMissingTruth},
		{"malformed truth", "x y\n", tests.SampleTruth, result.CaseMalformedTest},
		{"truth without paths", "2 1\n", tests.SampleTruth, result.CaseMalformedTest},
		{"truth with non-integer path", "1 0\n4 1 x 4\n", tests.SampleTruth, result.CaseMalformedTest},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCase(t, dir, dir, "a", c.truth, c.out)

			cs := NewVerifier().VerifyCase(
				filepath.Join(dir, "a.graph"), filepath.Join(dir, "a.truth"), filepath.Join(dir, "a.out"))
			if cs.Outcome != c.outcome {
				t.Fatalf("expected %s, got %s: %s", c.outcome, cs.Outcome, cs.Message)
			}
			if cs.Score != 0 {
				t.Fatalf("expected score 0, got %d", cs.Score)
			}
			if !cs.Outcome.Failed() {
				t.Fatalf("expected %s to count as a failure", cs.Outcome)
			}
		})
	}
}

func TestVerifyCase_TimedOutTrailerIsReported(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, dir, "b", tests.SampleTruth, "TEST. EXIT CODE 124\nTIMED OUT\n")

	cs := NewVerifier().VerifyCase(
		filepath.Join(dir, "b.graph"), filepath.Join(dir, "b.truth"), filepath.Join(dir, "b.out"))
	if cs.RunStatus != result.TimedOut.String() {
		t.Fatalf("expected run status %s, got %q", result.TimedOut, cs.RunStatus)
	}
}

func TestVerifyCase_InvalidTestAwardsBaseScore(t *testing.T) {
	dir := t.TempDir()
	// Truth is missing the cycle, so the test case itself is broken.
	writeCase(t, dir, dir, "a", tests.SampleMismatch, tests.SampleMismatch)

	cs := NewVerifier().VerifyCase(
		filepath.Join(dir, "a.graph"), filepath.Join(dir, "a.truth"), filepath.Join(dir, "a.out"))
	if cs.Outcome != result.CaseInvalidTest || cs.Score != constants.BaseScore {
		t.Fatalf("expected invalid test with base score, got %s score %d", cs.Outcome, cs.Score)
	}
	if cs.Outcome.Failed() {
		t.Fatal("invalid test must not count as a failure")
	}
}

func TestValidateTestCase_Constraints(t *testing.T) {
	dir := t.TempDir()
	graphPath := tests.WriteFile(t, dir, "big.graph", "2 1\n1 2 1001\n")
	truthPath := tests.WriteFile(t, dir, "big.truth", "1 0\n1001 1 2\n")

	err := NewVerifier().ValidateTestCase(graphPath, truthPath)
	if !errors.Is(err, pkgerrors.ErrTestConstraints) {
		t.Fatalf("expected ErrTestConstraints, got %v", err)
	}

	graphPath = tests.WriteFile(t, dir, "ok.graph", tests.SampleGraph)
	truthPath = tests.WriteFile(t, dir, "ok.truth", tests.SampleTruth)
	if err := NewVerifier().ValidateTestCase(graphPath, truthPath); err != nil {
		t.Fatalf("expected valid test case, got %v", err)
	}
}

func TestCheckDecomposition(t *testing.T) {
	n, err := graph.ParseNetwork(strings.NewReader(tests.SampleGraph))
	if err != nil {
		t.Fatalf("failed to parse network: %v", err)
	}

	cases := []struct {
		name  string
		input string
		valid bool
	}{
		{"optimal", tests.SampleTruth, true},
		{"suboptimal", tests.SampleSuboptimal, true},
		{"missing cycle", tests.SampleMismatch, false},
		{"path not from source", "1 0\n3 2 4\n", false},
		{"non-existent edge", "1 0\n3 1 4\n", false},
	}

	for _, c := range cases {
		d, err := graph.ParseDecomposition(strings.NewReader(c.input))
		if err != nil {
			t.Fatalf("%s: failed to parse decomposition: %v", c.name, err)
		}
		err = CheckDecomposition(n, d)
		if c.valid && err != nil {
			t.Fatalf("%s: expected valid decomposition, got %v", c.name, err)
		}
		if !c.valid && !errors.Is(err, pkgerrors.ErrScoringMismatch) {
			t.Fatalf("%s: expected ErrScoringMismatch, got %v", c.name, err)
		}
	}
}

func TestScore_NeverBelowMinimum(t *testing.T) {
	d := &graph.Decomposition{Paths: make([]graph.Walk, 60)}
	if got := Score(1, 0, d); got != constants.MinPassingScore {
		t.Fatalf("expected %d, got %d", constants.MinPassingScore, got)
	}
}

func TestScoreDirectory_PairsByBaseName(t *testing.T) {
	testsDir := t.TempDir()
	resultsDir := t.TempDir()
	writeCase(t, testsDir, resultsDir, "a", tests.SampleTruth, tests.SampleTruth+"TEST. EXIT CODE 0\n")
	writeCase(t, testsDir, resultsDir, "b", tests.SampleTruth, "")
	writeCase(t, testsDir, resultsDir, "c", "", tests.SampleTruth)
	tests.WriteFile(t, resultsDir, "orphan.out", tests.SampleTruth)

	report, err := NewVerifier().ScoreDirectory(constants.TestSetStudent, testsDir, resultsDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]result.CaseOutcome{
		"a":      result.CasePassed,
		"b":      result.CaseMissingResult,
		"c":      result.CaseMissingTruth,
		"orphan": result.CaseOrphanResult,
	}
	if len(report.Cases) != len(want) {
		t.Fatalf("expected %d cases, got %d", len(want), len(report.Cases))
	}
	for name, outcome := range want {
		cs, ok := report.Case(name)
		if !ok {
			t.Fatalf("case %s missing from report", name)
		}
		if cs.Outcome != outcome {
			t.Fatalf("case %s: expected %s, got %s", name, outcome, cs.Outcome)
		}
	}
	if report.Total != constants.BaseScore || report.Failures != 3 {
		t.Fatalf("expected total %d with 3 failures, got %d with %d", constants.BaseScore, report.Total, report.Failures)
	}

	var sb strings.Builder
	if err := report.WriteText(&sb); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	if !strings.Contains(sb.String(), "Total Score across all tests: 40") {
		t.Fatalf("unexpected report text:\n%s", sb.String())
	}
}

func TestScoreDirectory_MissingDirectoriesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	report, err := NewVerifier().ScoreDirectory(constants.TestSetCommon,
		filepath.Join(dir, "nope"), filepath.Join(dir, "none"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Cases) != 0 || report.Total != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestAccumulateScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), constants.ScoreFileName)

	got, err := AccumulateScore(path, 40)
	if err != nil || got != 40 {
		t.Fatalf("expected 40, got %d (%v)", got, err)
	}
	got, err = AccumulateScore(path, 39)
	if err != nil || got != 79 {
		t.Fatalf("expected 79, got %d (%v)", got, err)
	}
	if content := tests.ReadFile(t, path); content != "79\n" {
		t.Fatalf("unexpected score file content %q", content)
	}
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() != 0o644 {
		t.Fatalf("expected score file with mode 0644, got %v (%v)", info, err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected only the score file to be left, got %d entries (%v)", len(entries), err)
	}

	tests.WriteFile(t, filepath.Dir(path), constants.ScoreFileName, "garbage")
	if _, err := AccumulateScore(path, 1); err == nil {
		t.Fatal("expected error for invalid score file")
	}
}
