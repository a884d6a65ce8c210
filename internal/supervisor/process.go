package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// SpawnConfig describes a child process.
type SpawnConfig struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Process is a started child. Stdout and Stderr must be drained by the
// caller; Wait must be called exactly once.
type Process interface {
	Pid() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits and returns its exit code. The
	// error is non-nil only when waiting itself failed.
	Wait() (int, error)
	// Terminate asks the process and its children to exit.
	Terminate() error
	// Kill forcibly ends the process and every descendant.
	Kill() error
}

// Spawner starts child processes.
type Spawner interface {
	Spawn(ctx context.Context, launch SpawnConfig) (Process, error)
}

// ExecSpawner starts real processes with os/exec.
type ExecSpawner struct {
	// WaitDelay bounds how long Wait waits for output after the process
	// exits, e.g. when a grandchild keeps the pipes open.
	WaitDelay time.Duration
}

var _ Spawner = ExecSpawner{}

// Spawn starts the configured command. Output is delivered through synchronous pipes, so
// nothing is written before the caller starts reading.
func (s ExecSpawner) Spawn(_ context.Context, launch SpawnConfig) (Process, error) {
	cmd := exec.Command(launch.Path, launch.Args...)
	cmd.Dir = launch.Dir
	cmd.Env = launch.Env
	cmd.WaitDelay = s.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	setProcessGroup(cmd)

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return nil, err
	}

	return &execProcess{
		cmd:     cmd,
		stdoutR: stdoutR,
		stdoutW: stdoutW,
		stderrR: stderrR,
		stderrW: stderrW,
	}, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
}

func (p *execProcess) Pid() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.Reader { return p.stdoutR }
func (p *execProcess) Stderr() io.Reader { return p.stderrR }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	p.stdoutW.Close()
	p.stderrW.Close()

	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.As(err, &exitErr):
		return p.cmd.ProcessState.ExitCode(), nil
	case errors.Is(err, exec.ErrWaitDelay):
		return p.cmd.ProcessState.ExitCode(), nil
	default:
		return -1, fmt.Errorf("wait: %w", err)
	}
}

func (p *execProcess) Terminate() error {
	return terminateGroup(p.cmd.Process)
}

// Kill ends every descendant found in the process table, then the process
// group itself. Descendants are collected first because they are reparented
// once their parent dies.
func (p *execProcess) Kill() error {
	pid := p.cmd.Process.Pid
	descendants := descendantsOf(int32(pid))

	err := killGroup(p.cmd.Process)
	for _, d := range descendants {
		_ = d.Kill()
	}
	return err
}

// descendantsOf walks the process tree below pid depth first.
func descendantsOf(pid int32) []*process.Process {
	root, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}

	var out []*process.Process
	var walk func(p *process.Process, depth int)
	walk = func(p *process.Process, depth int) {
		if depth > 32 {
			return
		}
		children, err := p.Children()
		if err != nil {
			return
		}
		for _, c := range children {
			out = append(out, c)
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return out
}
