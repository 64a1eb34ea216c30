package tests

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleGraph is a 4 vertex network with two s-t paths and one cycle through 2 and 3.
const SampleGraph = `4 6
1 2 3
2 4 3
1 3 2
3 4 2
2 3 1
3 2 1
`

// SampleTruth is an optimal decomposition of SampleGraph.
const SampleTruth = `2 1
3 1 2 4
2 1 3 4
1 2 3 2
`

// SampleSuboptimal is a valid decomposition of SampleGraph that uses one walk more than SampleTruth.
const SampleSuboptimal = `3 1
1 1 2 4
2 1 2 4
2 1 3 4
1 2 3 2
`

// SampleMismatch misses the cycle, so the flow on (2,3) and (3,2) does not add up.
const SampleMismatch = `2 0
3 1 2 4
2 1 3 4
`

func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return p
}

func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(data)
}

// AssertEmptyDir fails unless dir exists and has no entries.
func AssertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("expected directory %s to exist: %v", dir, err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected directory %s to be empty, got %d entries", dir, len(entries))
	}
}
