package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	GitCommit = ""
	BuildTime = ""

	info := Get()
	if info == nil {
		t.Fatal("expected non-nil Info")
	}
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
}

func TestGetLdflagsWin(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	GitCommit = "abcdef1234567890"
	BuildTime = "2024-03-05T14:30:09Z"

	info := Get()
	if info.Version != "1.2.0" {
		t.Errorf("expected version '1.2.0', got %q", info.Version)
	}
	if info.GitCommit != "abcdef1234567890" {
		t.Errorf("expected ldflags commit to win, got %q", info.GitCommit)
	}
	if info.BuildDate.IsZero() {
		t.Error("expected build date parsed from ldflags")
	}
}

func TestShort(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	GitCommit = "abcdef1234567890"
	BuildTime = ""

	s := Short()
	if !strings.HasPrefix(s, "1.2.0-abcdef1") {
		t.Errorf("unexpected short version: %q", s)
	}
}
