package supervisor

import (
	"errors"
	"fmt"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
)

var (
	// ErrAlreadyRunning is returned when a child is already owned. It is a
	// no-op signal, not a failure.
	ErrAlreadyRunning = errors.New("server is already running")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("supervisor closed")

	// ErrStopped is returned by Install when Stop cancelled it.
	ErrStopped = errors.New("process stopped")
)

// ToolchainMissingError means no package-manager executable was found.
type ToolchainMissingError struct {
	Err error
}

func (e *ToolchainMissingError) Error() string {
	return fmt.Sprintf("toolchain missing: %v", e.Err)
}

func (e *ToolchainMissingError) Unwrap() error {
	return e.Err
}

// Hint returns remediation text for the user.
func (e *ToolchainMissingError) Hint() string {
	var nf *toolchain.NotFoundError
	if errors.As(e.Err, &nf) {
		return nf.Hint()
	}
	return toolchain.InstallHint(toolchain.NPM)
}

// SpawnError means the child could not be started.
type SpawnError struct {
	Path string
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// AbnormalExitError is a natural exit with an unexpected code.
type AbnormalExitError struct {
	Code int
}

func (e *AbnormalExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// StreamReadError is a failure reading one of the child's output streams.
type StreamReadError struct {
	Stream string
	Err    error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Stream, e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}
