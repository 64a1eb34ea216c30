package result

import (
	"fmt"
	"io"
)

type CaseOutcome int

const (
	// Means the result is a valid decomposition of the input flow.
	CasePassed CaseOutcome = iota + 1
	// Means the result parsed but does not decompose the input flow.
	CaseMismatch
	// Means the result file could not be parsed.
	CaseMalformedResult
	// Means the input or truth file could not be parsed.
	CaseMalformedTest
	// Means the test case itself violates the size constraints. Awarded the base score.
	CaseInvalidTest
	// Means there is no result for the test case.
	CaseMissingResult
	// Means there is no truth file for the test case.
	CaseMissingTruth
	// Means there is a result without a test case.
	CaseOrphanResult
)

var outcomeNames = map[CaseOutcome]string{
	CasePassed:          "PASS",
	CaseMismatch:        "MISMATCH",
	CaseMalformedResult: "MALFORMED_RESULT",
	CaseMalformedTest:   "MALFORMED_TEST",
	CaseInvalidTest:     "INVALID_TEST",
	CaseMissingResult:   "MISSING_RESULT",
	CaseMissingTruth:    "MISSING_TRUTH",
	CaseOrphanResult:    "ORPHAN_RESULT",
}

func (o CaseOutcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

func (o CaseOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Failed reports whether the outcome counts as a scoring failure.
func (o CaseOutcome) Failed() bool {
	return o != CasePassed && o != CaseInvalidTest
}

type CaseScore struct {
	Name          string      `json:"name"`
	Outcome       CaseOutcome `json:"outcome"`
	Score         int         `json:"score"`
	Paths         int         `json:"paths"`
	Cycles        int         `json:"cycles"`
	OptimalPaths  int         `json:"optimal_paths"`
	OptimalCycles int         `json:"optimal_cycles"`
	RunStatus     string      `json:"run_status,omitempty"` // status read back from the result trailer
	ExitCode      *int        `json:"exit_code,omitempty"`
	Message       string      `json:"message,omitempty"`
}

type ScoreReport struct {
	RunID      string      `json:"run_id"`
	Set        string      `json:"set"`
	TestsDir   string      `json:"tests_dir"`
	ResultsDir string      `json:"results_dir"`
	Cases      []CaseScore `json:"cases"`
	Total      int         `json:"total"`
	Failures   int         `json:"failures"`
}

// Add appends a case and updates the aggregates.
func (r *ScoreReport) Add(c CaseScore) {
	r.Cases = append(r.Cases, c)
	r.Total += c.Score
	if c.Outcome.Failed() {
		r.Failures++
	}
}

// Case returns the score of the named case.
func (r *ScoreReport) Case(name string) (CaseScore, bool) {
	for _, c := range r.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return CaseScore{}, false
}

// WriteText prints a human readable report.
func (r *ScoreReport) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Scoring %s tests in %s against %s\n", r.Set, r.TestsDir, r.ResultsDir); err != nil {
		return err
	}
	for _, c := range r.Cases {
		line := fmt.Sprintf("  %-24s %-16s score=%d", c.Name, c.Outcome, c.Score)
		if c.Outcome == CasePassed {
			line += fmt.Sprintf(" paths=%d cycles=%d optimal=%d",
				c.Paths, c.Cycles, c.OptimalPaths+c.OptimalCycles)
		}
		if c.RunStatus != "" {
			line += " run=" + c.RunStatus
		}
		if c.Message != "" {
			line += " (" + c.Message + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total Score across all tests: %d (%d failures)\n", r.Total, r.Failures)
	return err
}
