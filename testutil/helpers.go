package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Script writes body as an executable file named name under the test's
// temporary directory and returns its absolute path. The directory is
// removed automatically when the test ends.
func Script(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", name, err)
	}
	return path
}

// Eventually polls cond every interval until it returns true or timeout
// elapses, failing the test with msg on timeout.
func Eventually(t *testing.T, timeout, interval time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(interval)
	}
}

// FindLogFiles returns the files in dir matching the glob pattern,
// failing the test when the glob itself is invalid.
func FindLogFiles(t *testing.T, dir, pattern string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		t.Fatalf("bad glob pattern %q: %v", pattern, err)
	}
	return matches
}
