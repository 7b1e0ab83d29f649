// Package execx runs external commands with explicit argv, never shell
// strings. Every invocation carries a hard timeout with escalating
// termination: SIGTERM on expiry, SIGKILL if the process lingers.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// DefaultTimeout bounds runtime CLI calls that don't choose their own.
const DefaultTimeout = 60 * time.Second

// killGrace is how long a SIGTERM'd process gets before SIGKILL.
const killGrace = 3 * time.Second

// Result holds the captured output of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Command execution hooks, override in tests to mock system commands.
var (
	execCommand = exec.CommandContext

	// startDetached launches cmd in its own session and does not wait.
	startDetached = func(cmd *exec.Cmd) error {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		return cmd.Start()
	}
)

// Run executes bin with args under the given timeout and returns captured
// output. A non-zero exit code is reported in Result, not as an error;
// errors mean the command could not run at all or was killed on timeout.
func Run(ctx context.Context, timeout time.Duration, bin string, args ...string) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := execCommand(ctx, bin, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() == context.DeadlineExceeded {
				return res, fmt.Errorf("%s timed out after %s", bin, timeout)
			}
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", bin, err)
	}
	return res, nil
}

// RunWithStdin is Run with the given string piped to the command's stdin.
func RunWithStdin(ctx context.Context, timeout time.Duration, stdin string, bin string, args ...string) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := execCommand(ctx, bin, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace
	cmd.Stdin = bytes.NewReader([]byte(stdin))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() == context.DeadlineExceeded {
				return res, fmt.Errorf("%s timed out after %s", bin, timeout)
			}
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", bin, err)
	}
	return res, nil
}

// StartDetached launches bin in a new session with stdout and stderr
// appended to logPath, and returns the child PID without waiting. Used to
// spawn the power daemon from a short-lived CLI invocation.
func StartDetached(logPath string, bin string, args ...string) (int, error) {
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening daemon log %s: %w", logPath, err)
	}
	defer logf.Close()

	cmd := exec.Command(bin, args...)
	cmd.Stdin = nil
	cmd.Stdout = logf
	cmd.Stderr = logf
	if err := startDetached(cmd); err != nil {
		return 0, fmt.Errorf("starting %s: %w", bin, err)
	}
	pid := cmd.Process.Pid
	// Reap the child when it exits so a long-lived parent doesn't
	// accumulate zombies.
	go cmd.Wait()
	return pid, nil
}

// Attach runs bin with the caller's stdio inherited. Used for interactive
// sessions where the external runtime owns the terminal.
func Attach(bin string, args ...string) error {
	cmd := exec.Command(bin, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Pipe describes a started command with live stdin/stdout pipes, used by the
// proxy bridge to relay socket bytes through a subprocess.
type Pipe struct {
	Cmd    *exec.Cmd
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
}

// StartPipe starts bin with stdin/stdout pipes attached. Stderr is
// discarded: bridge subprocesses are pure byte relays and anything they
// print would corrupt no stream but helps nobody.
func StartPipe(bin string, args ...string) (*Pipe, error) {
	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", bin, err)
	}
	return &Pipe{Cmd: cmd, Stdin: stdin, Stdout: stdout}, nil
}
