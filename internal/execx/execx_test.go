package execx

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesStdout(t *testing.T) {
	res, err := Run(context.Background(), 0, "echo", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d", res.ExitCode)
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	res, err := Run(context.Background(), 0, "sh", "-c", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("a clean non-zero exit must not be an error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), 0, "definitely-not-a-real-binary-4821")
	if err == nil {
		t.Fatal("expected error for a missing binary")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("err = %v, want exec.ErrNotFound in the chain", err)
	}
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), 100*time.Millisecond, "sleep", "10")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timed-out command held us for %s", elapsed)
	}
}

func TestRunWithStdin(t *testing.T) {
	res, err := RunWithStdin(context.Background(), 0, "line one\nline two\n", "wc", "-l")
	if err != nil {
		t.Fatalf("RunWithStdin: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "2" {
		t.Errorf("wc -l = %q, want 2", res.Stdout)
	}
}

func TestRunRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	res, err := Run(ctx, time.Minute, "sleep", "10")
	// Cancellation surfaces as a signal-terminated exit, not a timeout error.
	if err == nil && res.ExitCode == 0 {
		t.Error("cancelled command reported a clean exit")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancelled command held us for %s", elapsed)
	}
}

func TestStartDetachedWritesLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "detached.log")
	pid, err := StartDetached(logPath, "sh", "-c", "echo from the child")
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(logPath); err == nil && strings.Contains(string(data), "from the child") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("child output never reached the log file")
}

func TestStartPipeRoundTrip(t *testing.T) {
	p, err := StartPipe("cat")
	if err != nil {
		t.Fatalf("StartPipe: %v", err)
	}
	defer p.Cmd.Process.Kill()

	if _, err := p.Stdin.Write([]byte("echo me\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(p.Stdout).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "echo me\n" {
		t.Errorf("line = %q", line)
	}

	p.Stdin.Close()
	done := make(chan error, 1)
	go func() { done <- p.Cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cat did not exit after stdin close")
	}
}
