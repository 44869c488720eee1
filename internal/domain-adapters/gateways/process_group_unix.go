//go:build unix

package gateways

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs the shell in its own process group and kills the
// whole group on cancellation, so commands forked by the script stop too.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
