package process

import (
	"testing"

	"github.com/kbukum/prockit/testutil"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{LogDir: "/var/log", LogFilePrefix: "run"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	bad := Config{LogFilePrefix: "a/b"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for prefix containing a path separator")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := Config{LogDir: "/tmp/logs", ClearEnv: true}
	cmd := NewFromConfig(cfg, "cat", "-n")

	if cmd.AppName() != "cat" {
		t.Errorf("expected binary cat, got %s", cmd.AppName())
	}
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	if cmd.logDir != "/tmp/logs" {
		t.Errorf("expected log dir from config, got %s", cmd.logDir)
	}
	if !cmd.env.clear {
		t.Error("expected clear env from config")
	}
}

func TestLogToFilesUsesConfigPrefix(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{LogDir: dir, LogFilePrefix: "svc"}
	cmd := NewFromConfig(cfg, "sh", "-c", "echo both; echo err 1>&2").LogToFiles()

	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if code, _ := cmd.Wait(); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	if got := testutil.FindLogFiles(t, dir, "svc_sh_*.stdout.log"); len(got) != 1 {
		t.Errorf("expected stdout log with config prefix, got %v", got)
	}
	if got := testutil.FindLogFiles(t, dir, "svc_sh_*.stderr.log"); len(got) != 1 {
		t.Errorf("expected stderr log with config prefix, got %v", got)
	}
}
