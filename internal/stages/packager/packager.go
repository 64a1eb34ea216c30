package packager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/moby/sys/atomicwriter"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/config"
	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/internal/stages/executor"
	"github.com/mini-maxit/harness/pkg/constants"
	"github.com/mini-maxit/harness/pkg/result"
	"github.com/mini-maxit/harness/utils"
)

// Packager owns the harness directories: it discovers test cases, prepares the interim
// output location before each invocation and routes annotated artifacts to the results
// directory of their set.
type Packager interface {
	Clean() error
	ResetResultDirs() error
	DiscoverTestCases(set config.TestSet) ([]TestCase, error)
	PrepareInterim(tc TestCase) error
	Collect(tc TestCase, execResult *executor.ExecutionResult, runResult *result.RunResult) error
	WriteManifest(resultsDir, runID string, runs []result.RunResult) error
}

type TestCase struct {
	Name        string // base name shared by the .graph, .truth and .out files
	Set         string
	GraphPath   string
	TruthPath   string // may not exist
	InterimPath string // where the program writes its artifact
	ResultPath  string // where the annotated artifact is routed to
}

type Manifest struct {
	RunID   string             `json:"run_id"`
	Results []result.RunResult `json:"results"`
}

type packager struct {
	logger *zap.SugaredLogger
	cfg    *config.Config
}

func NewPackager(cfg *config.Config) Packager {
	return &packager{
		logger: logger.NewNamedLogger("packager"),
		cfg:    cfg,
	}
}

// Clean resets the results directories and removes the accumulated score.
func (p *packager) Clean() error {
	if err := p.ResetResultDirs(); err != nil {
		return err
	}

	scoreFile := p.cfg.Path(p.cfg.ScoreFile)
	if err := os.Remove(scoreFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Errorf("Failed to remove score file %s: %s", scoreFile, err)
		return fmt.Errorf("failed to remove score file %s: %w", scoreFile, err)
	}
	return nil
}

func (p *packager) ResetResultDirs() error {
	for _, d := range p.cfg.ResultsDirs() {
		if err := utils.ResetDir(d); err != nil {
			p.logger.Errorf("Failed to reset results directory %s: %s", d, err)
			return fmt.Errorf("failed to reset results directory %s: %w", d, err)
		}
	}
	p.logger.Infof("Reset results directories %v", p.cfg.ResultsDirs())
	return nil
}

func (p *packager) DiscoverTestCases(set config.TestSet) ([]TestCase, error) {
	if _, err := os.Stat(set.TestsDir); errors.Is(err, os.ErrNotExist) {
		p.logger.Warnf("Test directory %s of the %s set does not exist, no tests to run", set.TestsDir, set.Name)
		return nil, nil
	}

	graphs, err := utils.ListFilesWithExt(set.TestsDir, constants.GraphFileExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases in %s: %w", set.TestsDir, err)
	}

	interimDir := p.cfg.Path(p.cfg.OutputDir)
	cases := make([]TestCase, 0, len(graphs))
	for _, g := range graphs {
		name := utils.BaseName(g)
		cases = append(cases, TestCase{
			Name:        name,
			Set:         set.Name,
			GraphPath:   g,
			TruthPath:   filepath.Join(set.TestsDir, name+constants.TruthFileExt),
			InterimPath: filepath.Join(interimDir, name+constants.OutputFileExt),
			ResultPath:  filepath.Join(set.ResultsDir, name+constants.OutputFileExt),
		})
	}

	p.logger.Infof("Discovered %d test cases in %s", len(cases), set.TestsDir)
	return cases, nil
}

// PrepareInterim removes a stale artifact left by an earlier invocation, so that only
// output produced by the next invocation can be routed to the results directory.
func (p *packager) PrepareInterim(tc TestCase) error {
	if err := os.MkdirAll(filepath.Dir(tc.InterimPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Remove(tc.InterimPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale output %s: %w", tc.InterimPath, err)
	}
	return nil
}

// Collect appends the run status trailer to the program's artifact and writes it to the
// results directory, replacing any earlier result of the same test case. When the program
// produced no artifact its captured standard output is used instead.
func (p *packager) Collect(tc TestCase, execResult *executor.ExecutionResult, runResult *result.RunResult) error {
	content, err := os.ReadFile(tc.InterimPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		p.logger.Debugf("No output file for test %s, using captured stdout", tc.Name)
		if execResult != nil {
			content = execResult.Stdout
		}
	default:
		return fmt.Errorf("failed to read output %s: %w", tc.InterimPath, err)
	}

	if len(content) > 0 && content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}
	content = append(content, runResult.Trailer()...)

	if err := os.MkdirAll(filepath.Dir(tc.ResultPath), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	if err := atomicwriter.WriteFile(tc.ResultPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write result %s: %w", tc.ResultPath, err)
	}
	if err := utils.RemoveIO(tc.InterimPath, false, true); err != nil {
		return err
	}

	runResult.OutputPath = tc.ResultPath
	p.logger.Infof("Routed %s result to %s [Status: %s]", tc.Name, tc.ResultPath, runResult.Status)
	return nil
}

// WriteManifest records the run results of a results directory in a JSON file. Entries of
// test cases that were not part of this run are kept.
func (p *packager) WriteManifest(resultsDir, runID string, runs []result.RunResult) error {
	path := filepath.Join(resultsDir, constants.RunManifestFileName)

	byName := make(map[string]result.RunResult)
	if existing, err := ReadManifest(path); err == nil {
		for _, r := range existing.Results {
			byName[r.Name] = r
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		p.logger.Warnf("Ignoring unreadable manifest %s: %s", path, err)
	}
	for _, r := range runs {
		byName[r.Name] = r
	}

	manifest := Manifest{RunID: runID, Results: make([]result.RunResult, 0, len(byName))}
	for _, r := range byName {
		manifest.Results = append(manifest.Results, r)
	}
	sort.Slice(manifest.Results, func(i, j int) bool {
		return manifest.Results[i].Name < manifest.Results[j].Name
	})

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	return atomicwriter.WriteFile(path, append(data, '\n'), 0644)
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
