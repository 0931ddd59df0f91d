package testutil

import (
	"os"
	"testing"
	"time"
)

func TestScript(t *testing.T) {
	path := Script(t, "hello", "#!/bin/sh\necho hello\n")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("script not written: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("expected executable mode, got %v", info.Mode())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	if string(data) != "#!/bin/sh\necho hello\n" {
		t.Errorf("unexpected script body: %q", data)
	}
}

func TestEventually(t *testing.T) {
	calls := 0
	Eventually(t, time.Second, time.Millisecond, func() bool {
		calls++
		return calls >= 3
	}, "condition never held")

	if calls < 3 {
		t.Errorf("expected at least 3 calls, got %d", calls)
	}
}

func TestFindLogFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/run_cat_20240101000000.stdout.log", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir+"/other.txt", nil, 0o644); err != nil {
		t.Fatal(err)
	}

	matches := FindLogFiles(t, dir, "*.stdout.log")
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %v", len(matches), matches)
	}
}
