package constants

import "time"

// Test set names.
const (
	TestSetStudent = "student"
	TestSetCommon  = "common"
)

// Run status trailer lines appended to every result artifact.
const (
	TrailerExitCodeFormat = "TEST. EXIT CODE %d"
	TrailerExitCodePrefix = "TEST. EXIT CODE "
	TrailerTimedOut       = "TIMED OUT"
	TrailerRuntimeError   = "RUNTIME ERROR"
)

// Exit codes.
const (
	ExitCodeSuccess           = 0
	ExitCodeTimeLimitExceeded = 124
	ExitCodeCommandNotFound   = 127
	// ExitCodeNotObserved is recorded when the harness could not obtain an exit code at all.
	ExitCodeNotObserved = -1
)

// File extensions.
const (
	GraphFileExt  = ".graph"
	TruthFileExt  = ".truth"
	OutputFileExt = ".out"
)

// Fixed configuration.
const (
	DefaultTimeLimit        = 10 * time.Second
	DefaultMemoryLimitKB    = int64(1024 * 1024) // 1 GiB
	CommonTestsDir          = "test_cases"
	StudentResultsDir       = "student_outputs"
	CommonResultsDir        = "common_outputs"
	ScoreFileName           = "test_scores.txt"
	RunManifestFileName     = "run.json"
	MaxCapturedOutputBytes  = 10 * 1024 * 1024 // 10 MB per stream
	ContainerWorkspaceDir   = "/workspace"
	ContainerCleanupTimeout = 10 * time.Second
)

// Overridable configuration defaults.
const (
	DefaultProgram         = "python3 main.py"
	DefaultStudentTestsDir = "student_test_cases"
	DefaultOutputDir       = "outputs"
	DefaultWorkDir         = "."
	DefaultSandbox         = SandboxLocal
	DefaultSandboxImage    = "python:3.12-slim"
	DefaultReportQueue     = "harness_reports"
	DefaultLogDir          = "logs"
	DefaultLogLevel        = "info"
)

// Sandbox kinds.
const (
	SandboxLocal  = "local"
	SandboxDocker = "docker"
)

// Scoring rules.
const (
	BaseScore       = 40
	MinPassingScore = 1
	MaxVertices     = 50
	MaxEdges        = 100
	MaxEdgeFlow     = 1000
	MaxTruthPaths   = 20
	MaxTruthCycles  = 20
	SourceVertex    = 1
)

// Queue message types.
const (
	QueueMessageTypeScoreReport = "score_report"
)

// RabbitMQ specific constants.
const (
	RabbitMQContentType = "application/json"
)
