//go:build !unix

package executor

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// terminate kills outright where there is no graceful signal.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
