//go:build windows

package ffaudio

import (
	"os/exec"
	"strconv"
	"syscall"
)

// setupProcessGroup sets up a process group on Windows
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup kills the engine and its children on Windows
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run(); err != nil {
		// If taskkill fails, try direct process termination
		return cmd.Process.Kill()
	}
	return nil
}
