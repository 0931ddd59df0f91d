package process

import (
	"os"
	"syscall"
)

// signalFunc delivers a signal to the process with the given pid.
// It is a seam so tests can count or suppress signal deliveries.
type signalFunc func(pid int, sig syscall.Signal) error

// Handle owns the OS-level identity of one spawned process: its pid and,
// once collected, its exit status. It exposes the poll/wait/signal
// primitives the Command lifecycle is built on. A Handle is reaped at
// most once; Command serializes access to it.
type Handle struct {
	pid    int
	proc   *os.Process
	signal signalFunc
}

func newHandle(proc *os.Process) *Handle {
	return &Handle{
		pid:    proc.Pid,
		proc:   proc,
		signal: syscall.Kill,
	}
}

// PID returns the child's process id.
func (h *Handle) PID() int { return h.pid }

// Poll performs a non-blocking status check. If the child has exited it
// is reaped and its exit code returned with exited=true; otherwise
// exited=false and the child is still running.
func (h *Handle) Poll() (exited bool, code int, err error) {
	var ws syscall.WaitStatus
	wpid, err := syscall.Wait4(h.pid, &ws, syscall.WNOHANG, nil)
	if err != nil {
		return false, 0, err
	}
	if wpid == 0 {
		return false, 0, nil
	}
	return true, exitCode(ws), nil
}

// Wait blocks until the child exits, reaps it, and returns its exit code.
func (h *Handle) Wait() (int, error) {
	var ws syscall.WaitStatus
	for {
		_, err := syscall.Wait4(h.pid, &ws, 0, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return exitCode(ws), nil
	}
}

// Signal delivers sig to the child.
func (h *Handle) Signal(sig syscall.Signal) error {
	return h.signal(h.pid, sig)
}

// exitCode maps a wait status to a single exit code. Children that died
// from a signal report 128+signal, following shell convention.
func exitCode(ws syscall.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}
