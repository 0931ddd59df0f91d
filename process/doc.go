// Package process provides subprocess execution and shell-style pipeline
// orchestration.
//
// A Command describes one program invocation: binary path, argument
// vector, environment overrides, and per-stream redirection (inherit,
// log file, or pipe). Once started it owns a Handle to the child process
// and tracks it through an explicit lifecycle:
//
//	Idle → Starting → Running → {Exited | Terminating → Exited}
//
// All lifecycle operations on a Command are safe for concurrent use;
// state transitions are serialized by a single mutex and the child is
// reaped exactly once.
//
// A Pipeline chains Commands so that each stage's stdout feeds the next
// stage's stdin through an anonymous pipe. The pipeline owns the
// connectors between stages, spawns stages head-to-tail, closes the
// parent-side descriptors as soon as both adjoining stages hold their
// own copies, and detects broken chains (a stage that died while its
// producer or consumer is still running).
//
// Basic usage:
//
//	cmd := process.New("/usr/bin/sort", "-u").LogStderrToFile("run")
//	code, err := cmd.Run(ctx)
//
//	p, _ := process.NewPipeline(
//	    process.New("cat", "access.log"),
//	    process.New("grep", "500"),
//	    process.New("wc", "-l"),
//	)
//	code, err := p.ExecuteAndWait(ctx)
//
// Fan-out/fan-in topologies, spawn retry, and SIGKILL escalation are
// intentionally out of scope; callers wanting a deadline race a context
// against Run or ExecuteAndWait.
package process
