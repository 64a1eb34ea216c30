package verifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
	"github.com/mini-maxit/harness/pkg/graph"
	"github.com/mini-maxit/harness/pkg/result"
	"github.com/mini-maxit/harness/utils"
)

// Verifier scores produced decompositions against the input networks and truth files.
type Verifier interface {
	// VerifyCase scores a single result. It never returns an error, every problem is
	// reported through the outcome of the returned CaseScore.
	VerifyCase(graphPath, truthPath, outPath string) result.CaseScore
	// ValidateTestCase reports whether the test case itself satisfies the size constraints
	// and whether its truth file is a valid decomposition.
	ValidateTestCase(graphPath, truthPath string) error
	// ScoreDirectory pairs every test case in testsDir with its result in resultsDir.
	ScoreDirectory(set, testsDir, resultsDir string) (result.ScoreReport, error)
}

type decompositionVerifier struct {
	logger *zap.SugaredLogger
}

func NewVerifier() Verifier {
	return &decompositionVerifier{
		logger: logger.NewNamedLogger("verifier"),
	}
}

func (v *decompositionVerifier) VerifyCase(graphPath, truthPath, outPath string) result.CaseScore {
	name := utils.BaseName(graphPath)
	cs := result.CaseScore{Name: name}

	if !utils.FileExists(truthPath) {
		return v.fail(cs, result.CaseMissingTruth, fmt.Errorf("%w: %s", customErr.ErrMissingTruth, truthPath))
	}
	if !utils.FileExists(outPath) {
		return v.fail(cs, result.CaseMissingResult, fmt.Errorf("%w: %s", customErr.ErrMissingResult, outPath))
	}

	if content, err := os.ReadFile(outPath); err == nil {
		if status, exitCode, ok := result.ParseTrailer(string(content)); ok {
			cs.RunStatus = status.String()
			cs.ExitCode = &exitCode
		}
	}

	network, err := graph.ReadNetworkFile(graphPath)
	if err != nil {
		return v.fail(cs, result.CaseMalformedTest, err)
	}
	truth, err := graph.ReadDecompositionFile(truthPath)
	if err != nil {
		return v.fail(cs, result.CaseMalformedTest, err)
	}
	optPaths, optCycles := len(truth.Paths), len(truth.Cycles)
	cs.OptimalPaths, cs.OptimalCycles = optPaths, optCycles

	produced, err := graph.ReadDecompositionFile(outPath)
	if err != nil {
		return v.fail(cs, result.CaseMalformedResult, err)
	}
	cs.Paths, cs.Cycles = len(produced.Paths), len(produced.Cycles)

	if err := v.ValidateTestCase(graphPath, truthPath); err != nil {
		if !errors.Is(err, customErr.ErrTestConstraints) {
			return v.fail(cs, result.CaseMalformedTest, err)
		}
		v.logger.Warnf("Test case %s is invalid, awarding base score: %s", name, err)
		cs.Outcome = result.CaseInvalidTest
		cs.Score = constants.BaseScore
		cs.Message = err.Error()
		return cs
	}

	if err := CheckDecomposition(network, produced); err != nil {
		return v.fail(cs, result.CaseMismatch, err)
	}

	cs.Outcome = result.CasePassed
	cs.Score = Score(optPaths, optCycles, produced)
	v.logger.Infof("Test case %s passed with %d paths and %d cycles, score %d", name, cs.Paths, cs.Cycles, cs.Score)
	return cs
}

func (v *decompositionVerifier) fail(cs result.CaseScore, outcome result.CaseOutcome, err error) result.CaseScore {
	v.logger.Infof("Test case %s failed with %s: %s", cs.Name, outcome, err)
	cs.Outcome = outcome
	cs.Score = 0
	cs.Message = err.Error()
	return cs
}

func (v *decompositionVerifier) ValidateTestCase(graphPath, truthPath string) error {
	network, err := graph.ReadNetworkFile(graphPath)
	if err != nil {
		return err
	}
	truth, err := graph.ReadDecompositionFile(truthPath)
	if err != nil {
		return err
	}

	switch {
	case network.Vertices > constants.MaxVertices:
		return fmt.Errorf("%w: %d vertices, at most %d allowed", customErr.ErrTestConstraints, network.Vertices, constants.MaxVertices)
	case network.Edges > constants.MaxEdges:
		return fmt.Errorf("%w: %d edges, at most %d allowed", customErr.ErrTestConstraints, network.Edges, constants.MaxEdges)
	case network.MaxFlow() > constants.MaxEdgeFlow:
		return fmt.Errorf("%w: edge flow %d, at most %d allowed", customErr.ErrTestConstraints, network.MaxFlow(), constants.MaxEdgeFlow)
	case len(truth.Paths) > constants.MaxTruthPaths:
		return fmt.Errorf("%w: truth has %d paths, at most %d allowed", customErr.ErrTestConstraints, len(truth.Paths), constants.MaxTruthPaths)
	case len(truth.Cycles) > constants.MaxTruthCycles:
		return fmt.Errorf("%w: truth has %d cycles, at most %d allowed", customErr.ErrTestConstraints, len(truth.Cycles), constants.MaxTruthCycles)
	}

	if err := CheckDecomposition(network, truth); err != nil {
		return fmt.Errorf("%w: truth is not a valid decomposition: %w", customErr.ErrTestConstraints, err)
	}
	return nil
}

// CheckDecomposition verifies that every path runs from the source to the sink, every walk
// uses only edges of the network and the weights add up to the flow on every edge.
func CheckDecomposition(n *graph.Network, d *graph.Decomposition) error {
	calculated := make(map[graph.Edge]int, len(n.Flow))
	for e := range n.Flow {
		calculated[e] = 0
	}

	addWalk := func(kind string, idx int, w graph.Walk) error {
		for i := 0; i+1 < len(w.Nodes); i++ {
			e := graph.Edge{From: w.Nodes[i], To: w.Nodes[i+1]}
			if _, ok := calculated[e]; !ok {
				return fmt.Errorf("%w: %s %d uses non-existent edge (%d, %d)",
					customErr.ErrScoringMismatch, kind, idx+1, e.From, e.To)
			}
			calculated[e] += w.Weight
		}
		return nil
	}

	for i, p := range d.Paths {
		first, last := p.Nodes[0], p.Nodes[len(p.Nodes)-1]
		if first != n.Source() || last != n.Sink() {
			return fmt.Errorf("%w: path %d does not start at source (%d) or end at sink (%d): %v",
				customErr.ErrScoringMismatch, i+1, n.Source(), n.Sink(), p.Nodes)
		}
		if err := addWalk("path", i, p); err != nil {
			return err
		}
	}
	for i, c := range d.Cycles {
		if err := addWalk("cycle", i, c); err != nil {
			return err
		}
	}

	var mismatches []string
	for e, flow := range n.Flow {
		if got := calculated[e]; got != flow {
			mismatches = append(mismatches, fmt.Sprintf("(%d, %d) expected %d got %d", e.From, e.To, flow, got))
		}
	}
	if len(mismatches) > 0 {
		sort.Strings(mismatches)
		return fmt.Errorf("%w: flow mismatch on %s", customErr.ErrScoringMismatch, strings.Join(mismatches, ", "))
	}
	return nil
}

// Score rewards decompositions that use no more walks than the truth. A valid result
// always earns at least MinPassingScore.
func Score(optPaths, optCycles int, d *graph.Decomposition) int {
	return max(constants.MinPassingScore, constants.BaseScore+optPaths+optCycles-d.Size())
}

func (v *decompositionVerifier) ScoreDirectory(set, testsDir, resultsDir string) (result.ScoreReport, error) {
	report := result.ScoreReport{Set: set, TestsDir: testsDir, ResultsDir: resultsDir}
	v.logger.Infof("Scoring %s tests in %s against %s", set, testsDir, resultsDir)

	graphs, err := utils.ListFilesWithExt(testsDir, constants.GraphFileExt)
	if err != nil {
		return report, fmt.Errorf("failed to list test cases in %s: %w", testsDir, err)
	}
	outputs, err := utils.ListFilesWithExt(resultsDir, constants.OutputFileExt)
	if err != nil {
		return report, fmt.Errorf("failed to list results in %s: %w", resultsDir, err)
	}

	names := make([]string, 0, len(graphs))
	for _, g := range graphs {
		name := utils.BaseName(g)
		names = append(names, name)
		truthPath := filepath.Join(testsDir, name+constants.TruthFileExt)
		outPath := filepath.Join(resultsDir, name+constants.OutputFileExt)
		report.Add(v.VerifyCase(g, truthPath, outPath))
	}

	for _, o := range outputs {
		name := utils.BaseName(o)
		if utils.Contains(names, name) {
			continue
		}
		report.Add(v.fail(result.CaseScore{Name: name}, result.CaseOrphanResult,
			fmt.Errorf("%w: %s", customErr.ErrOrphanResult, o)))
	}

	v.logger.Infof("Scored %d %s cases, total %d, %d failures", len(report.Cases), set, report.Total, report.Failures)
	return report, nil
}

// AccumulateScore adds total to the running score kept in path and returns the new value.
// A missing or empty file counts as zero.
func AccumulateScore(path string, total int) (int, error) {
	current := 0
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if trimmed := strings.TrimSpace(string(content)); trimmed != "" {
			current, err = strconv.Atoi(trimmed)
			if err != nil {
				return 0, fmt.Errorf("invalid score in %s: %w", path, err)
			}
		}
	case !errors.Is(err, os.ErrNotExist):
		return 0, fmt.Errorf("failed to read score file %s: %w", path, err)
	}

	updated := current + total
	if err := atomicwriter.WriteFile(path, []byte(strconv.Itoa(updated)+"\n"), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write score file %s: %w", path, err)
	}
	return updated, nil
}
