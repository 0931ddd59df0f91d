package process

import (
	"io"
	"testing"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:        "idle",
		StateStarting:    "starting",
		StateRunning:     "running",
		StateTerminating: "terminating",
		StateExited:      "exited",
		State(99):        "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestPipelineStatusString(t *testing.T) {
	cases := map[PipelineStatus]string{
		StatusNotRunning:   "not-running",
		StatusRunning:      "running",
		StatusBroken:       "broken",
		PipelineStatus(99): "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("PipelineStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestConnectorCloseIdempotent(t *testing.T) {
	conn, err := NewConnector()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
}

func TestConnectorCarriesData(t *testing.T) {
	conn, err := NewConnector()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		conn.write.Write([]byte("through the pipe"))
		conn.write.Close()
	}()

	data, err := io.ReadAll(conn.read)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(data) != "through the pipe" {
		t.Errorf("unexpected pipe contents: %q", data)
	}
	conn.read.Close()
}
