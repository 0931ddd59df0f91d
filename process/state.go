package process

// State is a Command's position in the process lifecycle.
type State int

const (
	// StateIdle means no process has been spawned (or the command was reset).
	StateIdle State = iota
	// StateStarting means a spawn is in flight.
	StateStarting
	// StateRunning means a live child process is owned.
	StateRunning
	// StateTerminating means the termination signal has been sent but the
	// child has not been reaped yet.
	StateTerminating
	// StateExited means the child has been reaped and its exit code recorded.
	StateExited
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}
