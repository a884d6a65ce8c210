//go:build windows

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminateGroup asks the tree to close. Console programs usually ignore
// it, in which case the grace period runs out and killGroup follows.
func terminateGroup(p *os.Process) error {
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(p.Pid)).Run()
}

func killGroup(p *os.Process) error {
	err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(p.Pid)).Run()
	if err != nil {
		err = p.Kill()
	}
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
