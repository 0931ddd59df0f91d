// Package testutil provides test helpers for exercising real child
// processes.
//
// Script writes a throwaway executable shell script into the test's
// temporary directory:
//
//	bin := testutil.Script(t, "slow", "#!/bin/sh\nsleep 30\n")
//	cmd := process.New(bin)
//
// Eventually polls a condition until it holds or a deadline passes,
// for asserting on asynchronous process state:
//
//	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
//	    return !cmd.Running()
//	}, "process did not exit")
package testutil
