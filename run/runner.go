package run

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ardnew/tasq/lang"
)

// defaultShell interprets command strings when none is configured.
const defaultShell = "sh"

// ShellRunner executes command strings through a POSIX shell. It satisfies
// [lang.Runner] for both build-time capture (shell, from-shell, git-root)
// and task execution.
type ShellRunner struct {
	Shell  string    // interpreter, defaults to sh
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

func (r *ShellRunner) shell() string {
	if r.Shell != "" {
		return r.Shell
	}

	return defaultShell
}

func (r *ShellRunner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}

	return os.Stdout
}

func (r *ShellRunner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}

	return os.Stderr
}

// Output runs command and returns its captured standard output. Standard
// error passes through to the runner's stderr stream.
func (r *ShellRunner) Output(ctx context.Context, command string) (string, error) {
	var out bytes.Buffer

	cmd := exec.CommandContext(ctx, r.shell(), "-c", command)
	cmd.Stdout = &out
	cmd.Stderr = r.stderr()

	if err := cmd.Run(); err != nil {
		return out.String(), newCommandError(command, err)
	}

	return out.String(), nil
}

// Run runs command with the runner's standard streams attached.
func (r *ShellRunner) Run(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, r.shell(), "-c", command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	if err := cmd.Run(); err != nil {
		return newCommandError(command, err)
	}

	return nil
}

// CommandError reports a failed external command along with the exit code
// to propagate as the process status.
type CommandError struct {
	Command string
	Code    int
	err     error
}

func newCommandError(command string, err error) *CommandError {
	code := 1

	ee := &exec.ExitError{}
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}

	return &CommandError{
		Command: command,
		Code:    code,
		err:     err,
	}
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	var sb strings.Builder

	sb.WriteString("command failed")

	if e.Command != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Command)
	}

	sb.WriteString(" (exit ")
	sb.WriteString(strconv.Itoa(e.Code))
	sb.WriteString(")")

	return sb.String()
}

// Unwrap ties every CommandError to the [lang.ErrExternalCommand] sentinel
// while preserving the underlying cause for [errors.As].
func (e *CommandError) Unwrap() []error {
	return []error{lang.ErrExternalCommand, e.err}
}
