package errors

import "errors"

// Error messages.
var (
	ErrTimeout                = errors.New("program exceeded the time limit")
	ErrAbnormalExit           = errors.New("program exited with a non-zero exit code")
	ErrScoringMismatch        = errors.New("result is not a valid decomposition of the input flow")
	ErrMalformedGraph         = errors.New("malformed graph file")
	ErrMalformedDecomposition = errors.New("malformed decomposition file")
	ErrMissingResult          = errors.New("test case has no result")
	ErrMissingTruth           = errors.New("test case has no truth file")
	ErrOrphanResult           = errors.New("result has no matching test case")
	ErrTestConstraints        = errors.New("test case violates constraints")
	ErrContainerTimeout       = errors.New("container runtime timed out")
	ErrInvalidSandbox         = errors.New("invalid sandbox type")
	ErrEmptyProgram           = errors.New("program command is empty")
	ErrInputOutsideWorkDir    = errors.New("input file is outside of the working directory")
)
