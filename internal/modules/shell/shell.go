package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single command when the executor has none set.
const DefaultTimeout = 2 * time.Minute

// Command is one shell command line plus the name it is reported under.
// Name never contains secrets; Line may.
type Command struct {
	Name string
	Line string
}

func (c Command) String() string { return c.Name }

// Outcome is the result of a command that was started. A non-zero
// ExitStatus is a normal outcome, not an error.
type Outcome struct {
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
}

// Success reports whether the command exited with status 0.
func (o Outcome) Success() bool { return o.ExitStatus == 0 }

// Diagnostic returns trimmed stderr, falling back to stdout.
func (o Outcome) Diagnostic() string {
	if msg := strings.TrimSpace(string(o.Stderr)); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(o.Stdout))
}

// LaunchError means a command could not be run to completion at all: the
// shell was missing, not executable, the transport broke or the timeout hit.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Executor runs command lines and reports their exit status.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Outcome, error)
}

// Local executes commands on this host through `sh -c`.
type Local struct {
	Shell   string
	Timeout time.Duration
}

// NewLocal returns a Local executor using /bin/sh and the given timeout.
func NewLocal(timeout time.Duration) *Local {
	return &Local{Shell: "/bin/sh", Timeout: timeout}
}

func (l *Local) Run(ctx context.Context, cmd Command) (Outcome, error) {
	shellPath := l.Shell
	if shellPath == "" {
		shellPath = "/bin/sh"
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, shellPath, "-c", cmd.Line)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	c.WaitDelay = time.Second

	err := c.Run()
	out := Outcome{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, &LaunchError{Command: cmd.Name, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitStatus = exitErr.ExitCode()
		return out, nil
	}
	return Outcome{}, &LaunchError{Command: cmd.Name, Err: err}
}

// Quote wraps s in single quotes for POSIX shells.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
