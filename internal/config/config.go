package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
)

type Config struct {
	WorkDir           string
	Program           []string
	StudentTestsDir   string
	CommonTestsDir    string
	OutputDir         string
	StudentResultsDir string
	CommonResultsDir  string
	ScoreFile         string
	TimeLimit         time.Duration
	MemoryLimitKB     int64
	Sandbox           string
	SandboxImage      string
	ReportAMQPURL     string
	ReportQueue       string
}

// TestSet ties a directory of test cases to the results directory its outputs are routed to.
type TestSet struct {
	Name       string
	TestsDir   string
	ResultsDir string
}

// NewConfig reads the configuration from the environment. A non-empty workDir takes
// precedence over WORK_DIR. The .env file of the current directory is loaded first and the
// one of the work dir fills in what is still unset; the process environment always wins.
func NewConfig(workDir string) *Config {
	logger := logger.NewNamedLogger("config")

	loadEnvFile(logger, ".env")
	if workDir == "" {
		workDir = os.Getenv("WORK_DIR")
	}
	if workDir == "" {
		workDir = constants.DefaultWorkDir
	}
	if workDirEnv := filepath.Join(workDir, ".env"); filepath.Clean(workDirEnv) != ".env" {
		loadEnvFile(logger, workDirEnv)
	}

	program := programConfig()
	studentTestsDir, outputDir := directoriesConfig()
	sandbox, sandboxImage := sandboxConfig()
	reportURL, reportQueue := reportConfig()

	return &Config{
		WorkDir:           workDir,
		Program:           program,
		StudentTestsDir:   studentTestsDir,
		CommonTestsDir:    constants.CommonTestsDir,
		OutputDir:         outputDir,
		StudentResultsDir: constants.StudentResultsDir,
		CommonResultsDir:  constants.CommonResultsDir,
		ScoreFile:         constants.ScoreFileName,
		TimeLimit:         constants.DefaultTimeLimit,
		MemoryLimitKB:     constants.DefaultMemoryLimitKB,
		Sandbox:           sandbox,
		SandboxImage:      sandboxImage,
		ReportAMQPURL:     reportURL,
		ReportQueue:       reportQueue,
	}
}

func loadEnvFile(logger *zap.SugaredLogger, path string) {
	_, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("failed to stat %s file with error: %v", path, err)
		}
		return
	}
	// Values already present in the environment win over the file.
	if err := godotenv.Load(path); err != nil {
		logger.Fatalf("failed to load %s file with error: %v", path, err)
	}
}

func programConfig() []string {
	logger := logger.NewNamedLogger("config")

	programStr := os.Getenv("PROGRAM")
	if programStr == "" {
		programStr = constants.DefaultProgram
		logger.Warnf("PROGRAM is not set, using default value %s", constants.DefaultProgram)
	}

	return ParseProgram(programStr)
}

func directoriesConfig() (string, string) {
	logger := logger.NewNamedLogger("config")

	studentTestsDir := os.Getenv("STUDENT_TESTS_DIR")
	if studentTestsDir == "" {
		studentTestsDir = constants.DefaultStudentTestsDir
		logger.Debugf("STUDENT_TESTS_DIR is not set, using default value %s", constants.DefaultStudentTestsDir)
	}

	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = constants.DefaultOutputDir
		logger.Debugf("OUTPUT_DIR is not set, using default value %s", constants.DefaultOutputDir)
	}

	return studentTestsDir, outputDir
}

func sandboxConfig() (string, string) {
	logger := logger.NewNamedLogger("config")

	sandbox := strings.ToLower(os.Getenv("SANDBOX"))
	if sandbox == "" {
		sandbox = constants.DefaultSandbox
	}

	sandboxImage := os.Getenv("SANDBOX_IMAGE")
	if sandboxImage == "" {
		sandboxImage = constants.DefaultSandboxImage
		if sandbox == constants.SandboxDocker {
			logger.Warnf("SANDBOX_IMAGE is not set, using default value %s", constants.DefaultSandboxImage)
		}
	}

	return sandbox, sandboxImage
}

func reportConfig() (string, string) {
	reportURL := os.Getenv("REPORT_AMQP_URL")

	reportQueue := os.Getenv("REPORT_QUEUE")
	if reportQueue == "" {
		reportQueue = constants.DefaultReportQueue
	}

	return reportURL, reportQueue
}

// ParseProgram splits a program command line on whitespace.
func ParseProgram(program string) []string {
	return strings.Fields(program)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if len(c.Program) == 0 {
		return customErr.ErrEmptyProgram
	}
	switch c.Sandbox {
	case constants.SandboxLocal, constants.SandboxDocker:
	default:
		return fmt.Errorf("%w: %q", customErr.ErrInvalidSandbox, c.Sandbox)
	}
	if c.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive, got %s", c.TimeLimit)
	}
	if c.MemoryLimitKB <= 0 {
		return fmt.Errorf("memory limit must be positive, got %d KB", c.MemoryLimitKB)
	}
	return nil
}

// ResolveWorkDir makes WorkDir absolute so that paths handed to the program stay valid
// regardless of its working directory.
func (c *Config) ResolveWorkDir() error {
	abs, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to resolve work dir %s: %w", c.WorkDir, err)
	}
	c.WorkDir = abs
	return nil
}

// Path resolves p against the working directory unless it is absolute.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

// TestSets returns the student set followed by the common set.
func (c *Config) TestSets() []TestSet {
	return []TestSet{
		{
			Name:       constants.TestSetStudent,
			TestsDir:   c.Path(c.StudentTestsDir),
			ResultsDir: c.Path(c.StudentResultsDir),
		},
		{
			Name:       constants.TestSetCommon,
			TestsDir:   c.Path(c.CommonTestsDir),
			ResultsDir: c.Path(c.CommonResultsDir),
		},
	}
}

// ResultsDirs returns every directory reset by a cleanup.
func (c *Config) ResultsDirs() []string {
	return []string{c.Path(c.StudentResultsDir), c.Path(c.CommonResultsDir)}
}
