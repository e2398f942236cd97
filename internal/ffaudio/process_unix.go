//go:build !windows

package ffaudio

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setupProcessGroup starts the engine in its own process group so that a kill
// also reaches any helper processes it spawned
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup kills the engine and its children with SIGKILL
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	// Ignore "no such process" errors as the process may have already exited
	if err == unix.ESRCH {
		return nil
	}
	return err
}
