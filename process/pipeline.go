package process

import (
	"context"
	"sync"

	"github.com/kbukum/prockit/errors"
	"github.com/kbukum/prockit/logger"
	"github.com/kbukum/prockit/observability"
)

// PipelineStatus summarizes the aggregate liveness of a pipeline's stages.
type PipelineStatus int

const (
	// StatusNotRunning means no stage is currently running.
	StatusNotRunning PipelineStatus = iota
	// StatusRunning means a contiguous suffix of stages, ending at the
	// tail, is still running. Upstream stages having exited is the
	// normal draining pattern for a pipeline.
	StatusRunning
	// StatusBroken means a stage is running while some stage downstream
	// of it has already exited, so the running stage's output has no
	// consumer.
	StatusBroken
)

func (s PipelineStatus) String() string {
	switch s {
	case StatusNotRunning:
		return "not-running"
	case StatusRunning:
		return "running"
	case StatusBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Pipeline chains Commands so that each stage's stdout feeds the next
// stage's stdin, the way a shell builds `a | b | c`. Stages are spawned
// head to tail; the head inherits the parent's stdin and the tail writes
// to the parent's stdout (or its own log-file policy).
//
// A Pipeline can be executed repeatedly, but only one execution may be
// in flight at a time.
type Pipeline struct {
	mu sync.Mutex

	stages     []*Command
	connectors []*Connector
	executing  bool
	broken     bool
	exitStatus int

	log *logger.Logger
}

// NewPipeline creates a Pipeline over the given stages in order.
// Stages may also be added later with Append.
func NewPipeline(stages ...*Command) (*Pipeline, error) {
	p := &Pipeline{log: logger.WithComponent("pipeline")}
	if err := p.AppendAll(stages...); err != nil {
		return nil, err
	}
	return p, nil
}

// Append adds a stage to the tail of the pipeline. The stage is
// validated immediately: it must have a binary configured and must not
// currently be running. Appending while an execution is in flight fails
// with PIPELINE_BUSY.
func (p *Pipeline) Append(cmd *Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.executing {
		return errors.PipelineBusy()
	}
	return p.appendLocked(cmd)
}

// AppendAll appends stages in order, stopping at the first invalid one.
func (p *Pipeline) AppendAll(cmds ...*Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.executing {
		return errors.PipelineBusy()
	}
	for _, cmd := range cmds {
		if err := p.appendLocked(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) appendLocked(cmd *Command) error {
	if cmd == nil {
		return errors.InvalidConfiguration("stage", "stage is nil")
	}
	if cmd.AppName() == "" {
		return errors.InvalidConfiguration("stage", "stage has no binary path set")
	}
	switch cmd.State() {
	case StateIdle, StateExited:
	default:
		return errors.AlreadyRunning(cmd.AppName())
	}
	p.stages = append(p.stages, cmd)
	return nil
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stages)
}

// Stage returns the i'th stage, or nil when out of range.
func (p *Pipeline) Stage(i int) *Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.stages) {
		return nil
	}
	return p.stages[i]
}

// ExitStatus returns the aggregate exit status recorded by the most
// recent Wait.
func (p *Pipeline) ExitStatus() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitStatus
}

// Broken reports whether the most recent execution was cut short, by a
// stage failing to spawn or by a nonzero exit forcing downstream
// termination.
func (p *Pipeline) Broken() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.broken
}

// Execute spawns every stage, head to tail, wiring each stage's stdout
// to the next stage's stdin through a pipe. The parent's copies of each
// pipe are closed as soon as both of its stages hold it, so stage EOF
// propagates correctly.
//
// On a spawn failure the already-spawned stages are terminated and
// collected, all pipes are closed, and Execute returns a
// PIPELINE_SPAWN_FAILURE naming the failed stage. Calling Execute while
// a previous execution is still in flight fails with PIPELINE_BUSY.
func (p *Pipeline) Execute() error {
	p.mu.Lock()
	if p.executing {
		p.mu.Unlock()
		return errors.PipelineBusy()
	}
	if len(p.stages) == 0 {
		p.mu.Unlock()
		return errors.InvalidConfiguration("stages", "pipeline has no stages")
	}
	for _, cmd := range p.stages {
		switch cmd.State() {
		case StateIdle, StateExited:
		default:
			binary := cmd.AppName()
			p.mu.Unlock()
			return errors.AlreadyRunning(binary)
		}
	}
	p.executing = true
	p.broken = false
	p.exitStatus = 0
	p.connectors = make([]*Connector, 0, len(p.stages)-1)
	stages := p.stages
	p.mu.Unlock()

	var prev *Connector
	for i, cmd := range stages {
		var next *Connector
		if i < len(stages)-1 {
			conn, err := NewConnector()
			if err != nil {
				p.abort(i, prev, err)
				return errors.PipelineSpawnFailure(i, cmd.AppName(), err)
			}
			next = conn
			p.mu.Lock()
			p.connectors = append(p.connectors, conn)
			p.mu.Unlock()
		}

		if err := cmd.start(prev, next); err != nil {
			if next != nil {
				next.Close()
			}
			p.abort(i, prev, err)
			return errors.PipelineSpawnFailure(i, cmd.AppName(), err)
		}

		// Both stages of the consumed pipe now hold their end; the
		// parent's copies must go so the reader sees EOF when the
		// writer exits.
		if prev != nil {
			prev.Close()
		}
		prev = next

		p.log.Debug("stage spawned", logger.Fields(
			logger.FieldStage, i,
			logger.FieldBinary, cmd.AppName(),
			logger.FieldPID, cmd.PID(),
		))
	}
	return nil
}

// abort tears down a partially-spawned pipeline: stages before failed
// are terminated and collected, and every parent-held pipe end is
// closed.
func (p *Pipeline) abort(failed int, pending *Connector, cause error) {
	p.mu.Lock()
	stages := p.stages[:failed]
	conns := p.connectors
	p.connectors = nil
	p.broken = true
	p.executing = false
	p.mu.Unlock()

	for _, cmd := range stages {
		_ = cmd.Terminate(true)
	}
	if pending != nil {
		pending.Close()
	}
	for _, conn := range conns {
		conn.Close()
	}
	p.log.Error("pipeline spawn aborted", logger.Fields(
		logger.FieldStage, failed,
		logger.FieldError, cause.Error(),
	))
}

// Status polls every stage and classifies the pipeline. A healthy
// in-flight pipeline drains head to tail, so the running stages always
// form a suffix; a running stage upstream of an exited one means the
// pipeline is broken.
func (p *Pipeline) Status() PipelineStatus {
	p.mu.Lock()
	stages := p.stages
	p.mu.Unlock()

	running := make([]bool, len(stages))
	any := false
	for i, cmd := range stages {
		running[i] = cmd.Running()
		any = any || running[i]
	}
	if !any {
		return StatusNotRunning
	}

	// Walk tailward: once a non-running stage is seen, any running
	// stage before it is writing into a dead consumer.
	seenStopped := false
	for i := len(stages) - 1; i >= 0; i-- {
		if !running[i] {
			seenStopped = true
			continue
		}
		if seenStopped {
			return StatusBroken
		}
	}
	return StatusRunning
}

// Wait collects every stage, head to tail, and returns the aggregate
// exit status. When a stage exits nonzero, the remaining stages are sent
// SIGTERM without being collected here; their exit codes are still
// gathered so the aggregate reflects the last stage actually waited on.
// The aggregate is the tail stage's exit code when all stages ran to
// completion.
func (p *Pipeline) Wait() (int, error) {
	p.mu.Lock()
	stages := p.stages
	p.mu.Unlock()

	aggregate := 0
	terminateRest := false
	var firstErr error
	for i, cmd := range stages {
		if terminateRest {
			// Do not block on stages we just signaled; a stage that
			// ignores SIGTERM must not wedge Wait.
			if err := cmd.Terminate(false); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		code, err := cmd.Wait()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		aggregate = code
		if code != 0 && i < len(stages)-1 {
			terminateRest = true
		}
	}

	p.mu.Lock()
	p.exitStatus = aggregate
	p.executing = false
	if terminateRest {
		p.broken = true
	}
	p.mu.Unlock()

	p.log.Debug("pipeline collected", logger.Fields(
		logger.FieldExitCode, aggregate,
		logger.FieldStatus, terminateRest,
	))
	return aggregate, firstErr
}

// Terminate sends SIGTERM to every running stage. Every stage is
// attempted even when earlier ones fail; the first failure is returned.
// When collect is true each stage is also reaped.
func (p *Pipeline) Terminate(collect bool) error {
	p.mu.Lock()
	stages := p.stages
	p.mu.Unlock()

	var firstErr error
	for _, cmd := range stages {
		if err := cmd.Terminate(collect); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ExecuteAndWait runs the pipeline to completion and returns the
// aggregate exit status. If the context is canceled while stages run,
// every stage is terminated and the stages are still collected before
// returning the context error.
func (p *Pipeline) ExecuteAndWait(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.run")
	defer span.End()

	if err := p.Execute(); err != nil {
		return 0, err
	}

	done := make(chan waitResult, 1)
	go func() {
		code, err := p.Wait()
		done <- waitResult{code: code, err: err}
	}()

	select {
	case r := <-done:
		return r.code, r.err
	case <-ctx.Done():
		_ = p.Terminate(false)
		r := <-done
		if r.err != nil {
			return r.code, r.err
		}
		return r.code, ctx.Err()
	}
}
