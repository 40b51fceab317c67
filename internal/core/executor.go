package core

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// timeoutExitCode follows the conventional shell exit code for a killed,
// timed-out command.
const timeoutExitCode = 124

// ExecResult captures one command execution for display and logging.
// CollaboratorErr marks failures of the runner itself (spawn error,
// panic) as opposed to the command exiting nonzero.
type ExecResult struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	TimedOut        bool
	CollaboratorErr bool
	Err             error
}

// Output joins the captured streams for display.
func (r *ExecResult) Output() string {
	out := r.Stdout
	if r.Stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += r.Stderr
	}
	return strings.TrimSpace(out)
}

// Executor runs a single validated command through the platform shell with a
// timeout. It is only ever invoked from the EXECUTING state.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an executor with the given per-command timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Run executes the command and always returns a result: a failed spawn or a
// timeout is reported through the result so the caller can record it and
// keep the session consistent.
func (e *Executor) Run(ctx context.Context, command string) *ExecResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var execCmd *exec.Cmd
	if runtime.GOOS == "windows" {
		execCmd = exec.CommandContext(ctx, "cmd", "/c", command)
	} else {
		execCmd = exec.CommandContext(ctx, "sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	result := &ExecResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = timeoutExitCode
		result.Err = ctx.Err()
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure (shell missing, permissions): no exit code from
			// the process itself.
			result.ExitCode = 1
			result.CollaboratorErr = true
		}
		result.Err = err
	}

	return result
}
