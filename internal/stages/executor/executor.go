package executor

import (
	"context"
	"regexp"
	"sync"
	"time"
)

var containerNameRegex = regexp.MustCompile("[^a-zA-Z0-9_.-]")

type CommandConfig struct {
	RunID         string
	TestName      string
	Program       []string // program and its fixed arguments, the input path is appended
	InputPath     string   // absolute path of the .graph file
	WorkDir       string   // absolute working directory of the program
	TimeLimit     time.Duration
	MemoryLimitKB int64
}

type ExecutionResult struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Stdout   []byte
	Stderr   []byte
}

// Executor runs the processing program once for a single test case.
//
// A program that runs and fails is not an error: its exit code, or the timeout, is reported
// in the ExecutionResult. An error is returned only when the run could not be attempted or
// ctx was cancelled.
type Executor interface {
	Execute(ctx context.Context, cfg CommandConfig) (*ExecutionResult, error)
}

func SanitizeContainerName(raw string) string {
	cleaned := containerNameRegex.ReplaceAllString(raw, "-")
	if cleaned == "" {
		cleaned = "untitled"
	}
	return "harness-" + cleaned
}

// cappedBuffer keeps at most limit bytes and silently drops the rest.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if room := b.limit - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}
