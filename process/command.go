package process

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/prockit/errors"
	"github.com/kbukum/prockit/logger"
	"github.com/kbukum/prockit/observability"
)

// ExecFailureExitCode is the distinguished exit code a Command reports
// when its binary could not be located or executed. Spawning such a
// Command is not an error; the failure surfaces through Wait or Running,
// mirroring how a shell reports "command not found".
const ExecFailureExitCode = 127

// Command describes one program invocation and manages the resulting
// child process through its lifecycle. The zero value is not usable;
// create Commands with New or NewFromConfig.
//
// Configuration methods (SetBinary, AppendArgs, Setenv, ...) return the
// receiver for chaining and are no-ops once a spawn is in flight;
// transient state (pid, exit code) resets on re-spawn, configuration
// does not.
type Command struct {
	mu sync.Mutex

	// configuration
	binary string
	arg0   string
	args   []string
	dir       string
	env       envPlan
	stdout    streamPolicy
	stderr    streamPolicy
	logDir    string
	logPrefix string

	// transient state, reset on each spawn
	state    State
	handle   *Handle
	exitCode int
	termSent bool
	reaping  bool
	done     chan struct{}
	spawned  chan struct{}
	runID    string

	log *logger.Logger
}

// New creates a Command for the given binary. The binary may be an
// absolute path or a bare name resolved against PATH at spawn time.
// argv[0] defaults to the binary's basename.
func New(binary string, args ...string) *Command {
	return &Command{
		binary: binary,
		args:   append([]string(nil), args...),
		log:    logger.WithComponent("process"),
	}
}

// NewFromConfig creates a Command with package-level defaults applied.
func NewFromConfig(cfg Config, binary string, args ...string) *Command {
	c := New(binary, args...)
	c.logDir = cfg.LogDir
	c.logPrefix = cfg.LogFilePrefix
	c.env.clear = cfg.ClearEnv
	return c
}

// --- configuration ---

// configurable reports whether configuration mutation is currently allowed.
// Callers must hold c.mu.
func (c *Command) configurable() bool {
	return c.state == StateIdle || c.state == StateExited
}

// SetBinary sets the binary to execute.
func (c *Command) SetBinary(binary string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.binary = binary
	}
	return c
}

// SetArg0 overrides argv[0], which otherwise defaults to the binary's basename.
func (c *Command) SetArg0(arg0 string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.arg0 = arg0
	}
	return c
}

// AppendArgs appends arguments to the argument vector, preserving order.
func (c *Command) AppendArgs(args ...string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.args = append(c.args, args...)
	}
	return c
}

// SetDir sets the child's working directory.
func (c *Command) SetDir(dir string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.dir = dir
	}
	return c
}

// Setenv records an environment override applied on top of the inherited
// environment at spawn time. The override wins on key collision.
func (c *Command) Setenv(key, value string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.env.set(key, value)
	}
	return c
}

// SetClearEnv controls whether the child inherits the parent environment.
// When true, the child receives only the recorded overrides.
func (c *Command) SetClearEnv(clear bool) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.env.clear = clear
	}
	return c
}

// SetLogDir sets the directory log-file redirections are written to.
func (c *Command) SetLogDir(dir string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.logDir = dir
	}
	return c
}

// LogStdoutToFile redirects the child's stdout to a timestamped log file
// with the given prefix. See logFileName for the naming scheme.
func (c *Command) LogStdoutToFile(prefix string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.stdout = streamPolicy{mode: modeLogFile, prefix: prefix}
	}
	return c
}

// LogStderrToFile redirects the child's stderr to a timestamped log file
// with the given prefix.
func (c *Command) LogStderrToFile(prefix string) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.stderr = streamPolicy{mode: modeLogFile, prefix: prefix}
	}
	return c
}

// LogToFiles redirects both stdout and stderr to timestamped log files
// using the configured default prefix (see NewFromConfig).
func (c *Command) LogToFiles() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.stdout = streamPolicy{mode: modeLogFile, prefix: c.logPrefix}
		c.stderr = streamPolicy{mode: modeLogFile, prefix: c.logPrefix}
	}
	return c
}

// InheritStdout reverts stdout to the parent's descriptor.
func (c *Command) InheritStdout() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.stdout = streamPolicy{}
	}
	return c
}

// InheritStderr reverts stderr to the parent's descriptor.
func (c *Command) InheritStderr() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configurable() {
		c.stderr = streamPolicy{}
	}
	return c
}

// SetLogger replaces the logger used for lifecycle events.
func (c *Command) SetLogger(l *logger.Logger) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = l
	return c
}

// --- accessors ---

// AppName returns the configured binary path.
func (c *Command) AppName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binary
}

// Arg0 returns the effective argv[0].
func (c *Command) Arg0() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveArg0()
}

func (c *Command) effectiveArg0() string {
	if c.arg0 != "" {
		return c.arg0
	}
	return filepath.Base(c.binary)
}

// State returns the current lifecycle state.
func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PID returns the child's process id, or 0 when none is owned.
func (c *Command) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.handle.PID()
}

// ExitCode returns the recorded exit code. Zero until the child has been
// reaped.
func (c *Command) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// RunID returns the unique id assigned to the current (or most recent)
// spawn, for log correlation.
func (c *Command) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// --- lifecycle ---

// Start spawns the child process and returns without waiting for it.
//
// It fails with INVALID_CONFIGURATION when no binary is set, with
// ALREADY_RUNNING when a live process is owned or another Start is in
// flight, and with SPAWN_FAILURE when the OS could not create the
// process. A binary that cannot be located or executed is not a Start
// error: the Command moves straight to Exited with ExecFailureExitCode.
func (c *Command) Start() error {
	return c.start(nil, nil)
}

// start is the single spawn path, shared by Start and the pipeline
// orchestrator. stdin/stdout connectors, when present, are duplicated
// onto the child's standard streams and take precedence over log-file
// policies for the same stream.
func (c *Command) start(stdin, stdout *Connector) error {
	c.mu.Lock()
	if c.binary == "" {
		c.mu.Unlock()
		return errors.InvalidConfiguration("binary", "no binary path is set")
	}
	if !c.configurable() {
		binary := c.binary
		c.mu.Unlock()
		return errors.AlreadyRunning(binary)
	}

	// Claim the state machine before doing any real work so a racing
	// Start observes Starting and fails instead of double-forking.
	c.state = StateStarting
	c.exitCode = 0
	c.termSent = false
	c.reaping = false
	c.handle = nil
	c.done = make(chan struct{})
	c.spawned = make(chan struct{})
	c.runID = uuid.NewString()

	spec := spawnSpec{
		binary:    c.binary,
		argv:      append([]string{c.effectiveArg0()}, c.args...),
		env:       c.env.copy(),
		dir:       c.dir,
		stdin:     stdin,
		stdout:    stdout,
		outPolicy: c.stdout,
		errPolicy: c.stderr,
		logDir:    c.logDir,
	}
	log := c.log.WithFields(logger.Fields(
		logger.FieldRunID, c.runID,
		logger.FieldBinary, c.binary,
	))
	c.mu.Unlock()

	handle, execFailed, err := spawn(spec)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(c.spawned)
	switch {
	case execFailed:
		// The binary could not be located or executed. Observable via
		// Wait/Running only, like a child that _exit()ed after a failed
		// exec.
		c.exitCode = ExecFailureExitCode
		c.state = StateExited
		close(c.done)
		log.Debug("binary not executable", logger.Fields(
			logger.FieldExitCode, ExecFailureExitCode,
			logger.FieldError, err.Error(),
		))
		return nil
	case err != nil:
		c.state = StateIdle
		close(c.done)
		c.done = nil
		log.Error("spawn failed", logger.ErrorFields("start", err))
		return errors.SpawnFailure(spec.binary, err)
	default:
		c.handle = handle
		c.state = StateRunning
		observability.RecordSpawn(context.Background(), spec.binary)
		log.Debug("process spawned", logger.Fields(logger.FieldPID, handle.PID()))
		return nil
	}
}

// Running performs a non-blocking poll. It returns false when no process
// is owned; otherwise it checks the child without blocking, reaping it
// and recording the exit code if it has terminated.
func (c *Command) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle, StateExited:
		return false
	case StateStarting:
		return true
	}
	if c.reaping {
		// A Wait is reaping on another goroutine; the child is live
		// until it records the result.
		return true
	}

	exited, code, err := c.handle.Poll()
	if err != nil {
		// ECHILD or similar: the child is gone but its status is lost.
		c.recordExitLocked(ExecFailureExitCode)
		return false
	}
	if !exited {
		return true
	}
	c.recordExitLocked(code)
	return false
}

// Wait blocks until the owned process exits, reaps it, and returns its
// exit code. It returns 0 immediately when no process was ever spawned
// or the child has already been reaped. Exactly one caller performs the
// blocking reap; concurrent callers block until the result is recorded
// and then observe it.
func (c *Command) Wait() (int, error) {
	for {
		c.mu.Lock()
		switch c.state {
		case StateIdle:
			c.mu.Unlock()
			return 0, nil
		case StateExited:
			code := c.exitCode
			c.mu.Unlock()
			return code, nil
		case StateStarting:
			// A spawn is mid-flight; wait for it to settle, then
			// re-evaluate.
			ch := c.spawned
			c.mu.Unlock()
			<-ch
			continue
		}

		if c.reaping {
			// Someone else reaps; park on the done channel and read
			// the recorded result on the next pass.
			ch := c.done
			c.mu.Unlock()
			<-ch
			continue
		}

		c.reaping = true
		handle := c.handle
		c.mu.Unlock()

		start := time.Now()
		code, err := handle.Wait()

		c.mu.Lock()
		if err != nil {
			// Reap failed; record what we can so waiters are released.
			c.recordExitLocked(ExecFailureExitCode)
			code = c.exitCode
			c.mu.Unlock()
			return code, errors.Internal(err)
		}
		c.recordExitLocked(code)
		c.mu.Unlock()
		observability.RecordExit(context.Background(), c.binary, code, time.Since(start))
		return code, nil
	}
}

// recordExitLocked moves the command to Exited and releases waiters.
// Callers must hold c.mu.
func (c *Command) recordExitLocked(code int) {
	pid := 0
	if c.handle != nil {
		pid = c.handle.PID()
	}
	c.exitCode = code
	c.state = StateExited
	c.handle = nil
	c.reaping = false
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.log.Debug("process reaped", logger.Fields(
		logger.FieldRunID, c.runID,
		logger.FieldBinary, c.binary,
		logger.FieldPID, pid,
		logger.FieldExitCode, code,
	))
}

// Terminate sends the termination signal (SIGTERM) to the owned process
// if one is running. The signal is sent at most once per live process;
// concurrent or repeated calls while a termination is already pending do
// not re-signal. When collect is true, Terminate additionally waits for
// the child and reaps it before returning.
func (c *Command) Terminate(collect bool) error {
	c.mu.Lock()
	for c.state == StateStarting {
		// Let the in-flight spawn settle so the signal reaches the
		// child instead of being skipped.
		ch := c.spawned
		c.mu.Unlock()
		<-ch
		c.mu.Lock()
	}
	switch c.state {
	case StateIdle, StateExited:
		c.mu.Unlock()
		return nil
	}

	if !c.termSent && c.handle != nil {
		c.termSent = true
		if err := c.handle.Signal(syscall.SIGTERM); err != nil {
			binary := c.binary
			c.mu.Unlock()
			return errors.TerminateFailure(binary, err)
		}
		c.state = StateTerminating
		observability.RecordTerminate(context.Background(), c.binary)
		c.log.Debug("termination signal sent", logger.Fields(
			logger.FieldRunID, c.runID,
			logger.FieldBinary, c.binary,
			logger.FieldPID, c.handle.PID(),
			logger.FieldSignal, "SIGTERM",
		))
	}
	c.mu.Unlock()

	if collect {
		_, err := c.Wait()
		return err
	}
	return nil
}

// Run starts the command and waits for it to complete, returning the
// exit code. If the context is canceled while the child runs, the child
// is terminated and Run returns the context error alongside whatever
// exit code was collected.
func (c *Command) Run(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "process.run")
	defer span.End()

	if err := c.Start(); err != nil {
		return 0, err
	}
	return c.waitContext(ctx)
}

type waitResult struct {
	code int
	err  error
}

func (c *Command) waitContext(ctx context.Context) (int, error) {
	done := make(chan waitResult, 1)
	go func() {
		code, err := c.Wait()
		done <- waitResult{code: code, err: err}
	}()

	select {
	case r := <-done:
		return r.code, r.err
	case <-ctx.Done():
		_ = c.Terminate(false)
		r := <-done
		return r.code, fmt.Errorf("process: killed by context: %w", ctx.Err())
	}
}

// Reset returns an exited Command to Idle, clearing transient state
// (pid, exit code, run id) but not configuration. Resetting a live
// Command fails with ALREADY_RUNNING.
func (c *Command) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configurable() {
		return errors.AlreadyRunning(c.binary)
	}
	c.state = StateIdle
	c.exitCode = 0
	c.termSent = false
	c.reaping = false
	c.handle = nil
	c.done = nil
	c.spawned = nil
	c.runID = ""
	return nil
}

// Clear terminates any running child, collects it, and resets the
// Command to a fresh unconfigured state.
func (c *Command) Clear() error {
	if err := c.Terminate(true); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binary = ""
	c.arg0 = ""
	c.args = nil
	c.dir = ""
	c.env = envPlan{}
	c.stdout = streamPolicy{}
	c.stderr = streamPolicy{}
	c.logDir = ""
	c.logPrefix = ""
	c.state = StateIdle
	c.exitCode = 0
	c.termSent = false
	c.reaping = false
	c.handle = nil
	c.done = nil
	c.spawned = nil
	c.runID = ""
	return nil
}

// --- spawning ---

// spawnSpec is the immutable snapshot of everything spawn needs, taken
// under the Command lock so the spawn itself can run outside it.
type spawnSpec struct {
	binary    string
	argv      []string
	env       envPlan
	dir       string
	stdin     *Connector
	stdout    *Connector
	outPolicy streamPolicy
	errPolicy streamPolicy
	logDir    string
}

// spawn creates the child process. execFailed is true when the binary
// could not be located or executed; err then carries the lookup/exec
// error but the caller reports it through the exit code, not as a spawn
// error. Log files opened here are handed to the child and the parent
// copies closed on every path.
func spawn(spec spawnSpec) (handle *Handle, execFailed bool, err error) {
	path := spec.binary
	if !strings.Contains(path, "/") {
		resolved, lookErr := exec.LookPath(path)
		if lookErr != nil {
			return nil, true, lookErr
		}
		path = resolved
	}

	files := []*os.File{os.Stdin, os.Stdout, os.Stderr}
	var logFiles []*os.File
	defer func() {
		for _, f := range logFiles {
			f.Close()
		}
	}()

	now := time.Now()
	arg0 := spec.argv[0]

	if spec.stdin != nil {
		files[0] = spec.stdin.read
	}

	switch {
	case spec.stdout != nil:
		// Pipeline connection wins over a log-file policy.
		files[1] = spec.stdout.write
	case spec.outPolicy.mode == modeLogFile:
		f, openErr := openLogFile(spec.logDir, spec.outPolicy.prefix, arg0, "stdout", now)
		if openErr != nil {
			return nil, false, openErr
		}
		logFiles = append(logFiles, f)
		files[1] = f
	}

	if spec.errPolicy.mode == modeLogFile {
		f, openErr := openLogFile(spec.logDir, spec.errPolicy.prefix, arg0, "stderr", now)
		if openErr != nil {
			return nil, false, openErr
		}
		logFiles = append(logFiles, f)
		files[2] = f
	}

	proc, startErr := os.StartProcess(path, spec.argv, &os.ProcAttr{
		Dir:   spec.dir,
		Env:   spec.env.materialize(),
		Files: files,
	})
	if startErr != nil {
		if isExecFailure(startErr) {
			return nil, true, startErr
		}
		return nil, false, startErr
	}
	return newHandle(proc), false, nil
}

// isExecFailure reports whether err means the binary cannot be located
// or executed, as opposed to the OS failing to create a process at all.
func isExecFailure(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist) ||
		stderrors.Is(err, fs.ErrPermission) ||
		stderrors.Is(err, syscall.ENOEXEC) ||
		stderrors.Is(err, syscall.ENOTDIR) ||
		stderrors.Is(err, exec.ErrNotFound)
}
