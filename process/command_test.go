package process

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/kbukum/prockit/errors"
	"github.com/kbukum/prockit/testutil"
)

func TestCommandStartWait(t *testing.T) {
	cmd := New("sh", "-c", "exit 3")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	code, err := cmd.Wait()
	if err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit 3, got %d", code)
	}
	if cmd.State() != StateExited {
		t.Errorf("expected state exited, got %v", cmd.State())
	}
	if cmd.Running() {
		t.Error("expected Running to report false after exit")
	}
	if cmd.ExitCode() != 3 {
		t.Errorf("expected recorded exit code 3, got %d", cmd.ExitCode())
	}
}

func TestCommandWaitWithoutStart(t *testing.T) {
	cmd := New("sh", "-c", "exit 1")
	code, err := cmd.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0 for never-spawned command, got %d", code)
	}
}

func TestCommandStartNoBinary(t *testing.T) {
	cmd := New("")
	err := cmd.Start()
	if err == nil {
		t.Fatal("expected error for empty binary")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Fatalf("expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestCommandExecFailureAbsolutePath(t *testing.T) {
	cmd := New("/nonexistent/path/to/binary")
	if err := cmd.Start(); err != nil {
		t.Fatalf("missing binary must not be a start error, got %v", err)
	}

	code, err := cmd.Wait()
	if err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if code != ExecFailureExitCode {
		t.Fatalf("expected exit %d, got %d", ExecFailureExitCode, code)
	}
	if cmd.State() != StateExited {
		t.Errorf("expected state exited, got %v", cmd.State())
	}
}

func TestCommandExecFailureLookup(t *testing.T) {
	cmd := New("definitely-not-a-real-command-xyz")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed lookup must not be a start error, got %v", err)
	}
	if cmd.Running() {
		t.Error("expected Running false after failed lookup")
	}

	code, err := cmd.Wait()
	if err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if code != ExecFailureExitCode {
		t.Fatalf("expected exit %d, got %d", ExecFailureExitCode, code)
	}
}

func TestCommandExecFailureNotExecutable(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/plain.txt"
	if err := os.WriteFile(path, []byte("not a program\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := New(path)
	if err := cmd.Start(); err != nil {
		t.Fatalf("non-executable file must not be a start error, got %v", err)
	}
	code, _ := cmd.Wait()
	if code != ExecFailureExitCode {
		t.Fatalf("expected exit %d, got %d", ExecFailureExitCode, code)
	}
}

func TestCommandDoubleStart(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	cmd := New(bin)
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer cmd.Terminate(true)

	err := cmd.Start()
	if err == nil {
		t.Fatal("expected second start to fail")
	}
	if !errors.IsCode(err, errors.ErrCodeAlreadyRunning) {
		t.Fatalf("expected ALREADY_RUNNING, got %v", err)
	}
}

func TestCommandConcurrentStart(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	cmd := New(bin)
	defer cmd.Terminate(true)

	const n = 8
	var ok, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := cmd.Start(); {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.IsCode(err, errors.ErrCodeAlreadyRunning):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Errorf("expected exactly 1 successful start, got %d", ok)
	}
	if rejected != n-1 {
		t.Errorf("expected %d rejections, got %d", n-1, rejected)
	}
}

func TestCommandRunningPolls(t *testing.T) {
	bin := testutil.Script(t, "brief", "#!/bin/sh\nsleep 0.1\nexit 2\n")
	cmd := New(bin)
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	testutil.Eventually(t, 5*time.Second, 10*time.Millisecond, func() bool {
		return !cmd.Running()
	}, "process did not exit")

	// Running reaped the child; Wait returns the recorded code.
	code, err := cmd.Wait()
	if err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestCommandEnvOverride(t *testing.T) {
	cmd := New("sh", "-c", `exit "$CODE"`).Setenv("CODE", "7")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	code, _ := cmd.Wait()
	if code != 7 {
		t.Fatalf("expected exit 7 from env override, got %d", code)
	}
}

func TestCommandClearEnv(t *testing.T) {
	cmd := New("sh", "-c", `test -z "$HOME"`).SetClearEnv(true)
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	code, _ := cmd.Wait()
	if code != 0 {
		t.Fatalf("expected HOME to be absent with cleared env, exit %d", code)
	}
}

func TestCommandLogFiles(t *testing.T) {
	dir := t.TempDir()
	cmd := New("sh", "-c", "echo out; echo err 1>&2").
		SetLogDir(dir).
		LogStdoutToFile("run").
		LogStderrToFile("run")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if code, _ := cmd.Wait(); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	stdoutRe := regexp.MustCompile(`^run_sh_\d{14}\.stdout\.log$`)
	stderrRe := regexp.MustCompile(`^run_sh_\d{14}\.stderr\.log$`)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var stdoutFile, stderrFile string
	for _, e := range entries {
		if stdoutRe.MatchString(e.Name()) {
			stdoutFile = e.Name()
		}
		if stderrRe.MatchString(e.Name()) {
			stderrFile = e.Name()
		}
	}
	if stdoutFile == "" || stderrFile == "" {
		t.Fatalf("expected stdout and stderr log files, found %v", entries)
	}

	data, err := os.ReadFile(dir + "/" + stdoutFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "out\n" {
		t.Errorf("expected stdout log 'out\\n', got %q", data)
	}
	data, err = os.ReadFile(dir + "/" + stderrFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "err\n" {
		t.Errorf("expected stderr log 'err\\n', got %q", data)
	}
}

func TestCommandLogFileEmptyPrefix(t *testing.T) {
	dir := t.TempDir()
	cmd := New("sh", "-c", "echo hi").SetLogDir(dir).LogStdoutToFile("")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	cmd.Wait()

	matches := testutil.FindLogFiles(t, dir, "sh_*.stdout.log")
	if len(matches) != 1 {
		t.Fatalf("expected 1 log file without prefix segment, got %v", matches)
	}
	if strings.Contains(matches[0], "_sh_") {
		t.Errorf("expected no prefix underscore in %s", matches[0])
	}
}

func TestCommandArg0Override(t *testing.T) {
	dir := t.TempDir()
	cmd := New("sh", "-c", "echo named").
		SetArg0("renamed").
		SetLogDir(dir).
		LogStdoutToFile("run")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	cmd.Wait()

	matches := testutil.FindLogFiles(t, dir, "run_renamed_*.stdout.log")
	if len(matches) != 1 {
		t.Fatalf("expected log file named after argv[0] override, got %v", matches)
	}
	if cmd.Arg0() != "renamed" {
		t.Errorf("expected Arg0 'renamed', got %s", cmd.Arg0())
	}
}

func TestCommandTerminate(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	cmd := New(bin)
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	if err := cmd.Terminate(true); err != nil {
		t.Fatalf("unexpected terminate error: %v", err)
	}
	if cmd.State() != StateExited {
		t.Errorf("expected state exited after collect, got %v", cmd.State())
	}
	if cmd.ExitCode() != 128+int(syscall.SIGTERM) {
		t.Errorf("expected exit %d for SIGTERM death, got %d", 128+int(syscall.SIGTERM), cmd.ExitCode())
	}
}

func TestCommandTerminateIdle(t *testing.T) {
	cmd := New("sh", "-c", "exit 0")
	if err := cmd.Terminate(true); err != nil {
		t.Fatalf("terminate on idle command must be a no-op, got %v", err)
	}
}

func TestCommandTerminateSignalsOnce(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	cmd := New(bin)
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	var delivered int32
	cmd.mu.Lock()
	real := cmd.handle.signal
	cmd.handle.signal = func(pid int, sig syscall.Signal) error {
		atomic.AddInt32(&delivered, 1)
		return real(pid, sig)
	}
	cmd.mu.Unlock()

	if err := cmd.Terminate(false); err != nil {
		t.Fatalf("unexpected terminate error: %v", err)
	}
	if err := cmd.Terminate(false); err != nil {
		t.Fatalf("unexpected second terminate error: %v", err)
	}
	if _, err := cmd.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}

	if got := atomic.LoadInt32(&delivered); got != 1 {
		t.Fatalf("expected exactly 1 signal delivery, got %d", got)
	}
}

func TestCommandRun(t *testing.T) {
	code, err := New("sh", "-c", "exit 5").Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 5 {
		t.Fatalf("expected exit 5, got %d", code)
	}
}

func TestCommandRunContextCancel(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	code, err := New(bin).Run(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("run did not return promptly after cancel")
	}
	if code != 128+int(syscall.SIGTERM) {
		t.Errorf("expected exit %d, got %d", 128+int(syscall.SIGTERM), code)
	}
}

func TestCommandResetAndRespawn(t *testing.T) {
	cmd := New("sh", "-c", "exit 2")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if code, _ := cmd.Wait(); code != 2 {
		t.Fatal("expected exit 2")
	}

	firstRun := cmd.RunID()
	if err := cmd.Reset(); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}
	if cmd.State() != StateIdle {
		t.Errorf("expected state idle after reset, got %v", cmd.State())
	}
	if cmd.ExitCode() != 0 {
		t.Errorf("expected exit code cleared, got %d", cmd.ExitCode())
	}

	// Configuration survives reset; the same command runs again.
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected respawn error: %v", err)
	}
	if code, _ := cmd.Wait(); code != 2 {
		t.Fatal("expected exit 2 on respawn")
	}
	if cmd.RunID() == firstRun {
		t.Error("expected a fresh run id on respawn")
	}
}

func TestCommandResetWhileRunning(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	cmd := New(bin)
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer cmd.Terminate(true)

	if err := cmd.Reset(); !errors.IsCode(err, errors.ErrCodeAlreadyRunning) {
		t.Fatalf("expected ALREADY_RUNNING, got %v", err)
	}
}

func TestCommandClear(t *testing.T) {
	cmd := New("sh", "-c", "exit 0").Setenv("K", "v").SetDir("/tmp")
	if err := cmd.Clear(); err != nil {
		t.Fatalf("unexpected clear error: %v", err)
	}
	if cmd.AppName() != "" {
		t.Errorf("expected binary cleared, got %s", cmd.AppName())
	}
	if cmd.State() != StateIdle {
		t.Errorf("expected state idle, got %v", cmd.State())
	}
}

func TestCommandConfigFrozenWhileRunning(t *testing.T) {
	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
	cmd := New(bin, "a")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer cmd.Terminate(true)

	cmd.AppendArgs("b").SetBinary("/bin/true").SetDir("/tmp")

	if cmd.AppName() != bin {
		t.Errorf("binary changed while running: %s", cmd.AppName())
	}
	cmd.mu.Lock()
	nargs := len(cmd.args)
	cmd.mu.Unlock()
	if nargs != 1 {
		t.Errorf("args changed while running: %d", nargs)
	}
}

func TestCommandWorkingDir(t *testing.T) {
	dir := t.TempDir()
	logDir := t.TempDir()
	cmd := New("sh", "-c", "pwd").
		SetDir(dir).
		SetLogDir(logDir).
		LogStdoutToFile("cwd")
	if err := cmd.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if code, _ := cmd.Wait(); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	matches := testutil.FindLogFiles(t, logDir, "cwd_sh_*.stdout.log")
	if len(matches) != 1 {
		t.Fatalf("expected 1 log file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != dir {
		t.Errorf("expected working dir %s, got %q", dir, data)
	}
}

func TestCommandSpawnFailureBadLogDir(t *testing.T) {
	cmd := New("sh", "-c", "exit 0").
		SetLogDir("/nonexistent-dir-for-logs").
		LogStdoutToFile("run")
	err := cmd.Start()
	if err == nil {
		t.Fatal("expected spawn failure for unwritable log dir")
	}
	if !errors.IsCode(err, errors.ErrCodeSpawnFailure) {
		t.Fatalf("expected SPAWN_FAILURE, got %v", err)
	}
	if cmd.State() != StateIdle {
		t.Errorf("expected state idle after spawn failure, got %v", cmd.State())
	}

	// The command is reusable once the policy is fixed.
	cmd.InheritStdout()
	if err := cmd.Start(); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	if code, _ := cmd.Wait(); code != 0 {
		t.Fatal("expected exit 0")
	}
}
