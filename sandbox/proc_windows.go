//go:build windows

package sandbox

import "os/exec"

// Windows has no process groups in the POSIX sense; killing the direct child
// is the best available reclaim.
func configureProcess(cmd *exec.Cmd) {}

func terminateProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
