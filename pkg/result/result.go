package result

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
)

type Status int

const (
	// Means the program exited on its own. The exit code is recorded as is.
	Completed Status = iota + 1
	// Means the program was killed after exceeding the time limit.
	TimedOut
	// Means the program exited with a non-zero exit code that is not a timeout.
	RuntimeError
)

var statusNames = map[Status]string{
	Completed:    "COMPLETED",
	TimedOut:     "TIMED_OUT",
	RuntimeError: "RUNTIME_ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown run status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown run status %q", string(text))
}

// Classify maps an observed process exit to its terminal status.
// Exit code 124 is treated as a timeout by convention of the timeout mechanism.
func Classify(exitCode int, timedOut bool) Status {
	switch {
	case timedOut || exitCode == constants.ExitCodeTimeLimitExceeded:
		return TimedOut
	case exitCode == constants.ExitCodeSuccess:
		return Completed
	default:
		return RuntimeError
	}
}

type RunResult struct {
	RunID      string `json:"run_id"`
	Name       string `json:"name"`        // base name shared by the .graph, .truth and .out files
	Set        string `json:"set"`         // student or common
	Status     Status `json:"status"`      // terminal status, never changed once written
	ExitCode   int    `json:"exit_code"`   // 124 for timeouts, not asserted
	DurationMs int64  `json:"duration_ms"` // wall clock time of the invocation
	OutputPath string `json:"output_path"` // location of the annotated artifact in the results dir
	Error      string `json:"error,omitempty"`
}

// NewRunResult builds a result record for one test case.
func NewRunResult(runID, name, set string, exitCode int, timedOut bool, durationMs int64) RunResult {
	status := Classify(exitCode, timedOut)
	if status == TimedOut {
		exitCode = constants.ExitCodeTimeLimitExceeded
	}
	r := RunResult{
		RunID:      runID,
		Name:       name,
		Set:        set,
		Status:     status,
		ExitCode:   exitCode,
		DurationMs: durationMs,
	}
	if err := r.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}

// Err returns nil for a completed invocation, otherwise an error wrapping ErrTimeout or
// ErrAbnormalExit.
func (r RunResult) Err() error {
	switch r.Status {
	case TimedOut:
		return fmt.Errorf("%w: test %s", customErr.ErrTimeout, r.Name)
	case RuntimeError:
		return fmt.Errorf("%w: test %s exited with %d", customErr.ErrAbnormalExit, r.Name, r.ExitCode)
	}
	return nil
}

// Trailer renders the status annotation appended to the program's output artifact.
func (r RunResult) Trailer() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, constants.TrailerExitCodeFormat, r.ExitCode)
	sb.WriteByte('\n')
	switch r.Status {
	case TimedOut:
		sb.WriteString(constants.TrailerTimedOut)
		sb.WriteByte('\n')
	case RuntimeError:
		sb.WriteString(constants.TrailerRuntimeError)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseTrailer recovers the status annotation from the content of an annotated artifact.
// It returns false when the content carries no annotation.
func ParseTrailer(content string) (Status, int, bool) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	idx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), constants.TrailerExitCodePrefix) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, false
	}

	codeStr := strings.TrimPrefix(strings.TrimSpace(lines[idx]), constants.TrailerExitCodePrefix)
	exitCode, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return 0, 0, false
	}

	timedOut := idx+1 < len(lines) && strings.TrimSpace(lines[idx+1]) == constants.TrailerTimedOut

	return Classify(exitCode, timedOut), exitCode, true
}
