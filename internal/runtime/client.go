// Package runtime drives the external virtualization CLI. The runtime is an
// opaque collaborator: the only contract is one executable accepting
// argument vectors and returning exit code, stdout, and stderr under a
// timeout.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/execx"
)

const (
	queryTimeout     = 30 * time.Second
	lifecycleTimeout = 2 * time.Minute
	createTimeout    = 5 * time.Minute
)

// Command execution hooks, override in tests to mock the runtime binary.
var (
	runCmd      = execx.Run
	runCmdStdin = execx.RunWithStdin
)

// Client invokes one external runtime binary.
type Client struct {
	bin string
}

// NewClient returns a Client for the given runtime binary (name on PATH or
// absolute path).
func NewClient(bin string) *Client {
	return &Client{bin: bin}
}

// Bin returns the runtime binary path, for callers that must build their
// own exec.Cmd (the proxy bridge pipes stdio itself).
func (c *Client) Bin() string {
	return c.bin
}

// run executes a runtime subcommand and normalizes failure modes: a missing
// binary is a dependency error, a non-zero exit is a runtime error carrying
// the stderr tail as detail.
func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (execx.Result, error) {
	res, err := runCmd(ctx, timeout, c.bin, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return res, apperr.Wrap(apperr.Dependency, err, "runtime binary %q not found", c.bin).
				WithHint("install the virtualization runtime or set runtime.bin in config.yml")
		}
		return res, apperr.Wrap(apperr.Runtime, err, "%s %s: %v", c.bin, args[0], err)
	}
	return res, nil
}

// runOK is run plus a non-zero-exit check.
func (c *Client) runOK(ctx context.Context, timeout time.Duration, args ...string) (execx.Result, error) {
	res, err := c.run(ctx, timeout, args...)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, apperr.New(apperr.Runtime, "%s %s exited with %d", c.bin, args[0], res.ExitCode).
			WithDetail(tail(res.Stderr, 20))
	}
	return res, nil
}

// List returns all instances known to the runtime. Structured JSON output
// is preferred; when it is unavailable or unparsable the tabular listing is
// parsed into minimal entries. Only total failure of both forms is an error;
// there is nothing to reconcile without a bulk list.
func (c *Client) List(ctx context.Context) ([]Summary, error) {
	res, err := c.run(ctx, queryTimeout, "list", "--all", "--format", "json")
	if err == nil && res.ExitCode == 0 {
		if objs := decodeObjects([]byte(res.Stdout)); objs != nil {
			out := make([]Summary, 0, len(objs))
			for _, m := range objs {
				if s := parseSummary(m); s.InternalName != "" {
					out = append(out, s)
				}
			}
			return out, nil
		}
		// Empty structured output means no instances, not a parse failure.
		if strings.TrimSpace(res.Stdout) == "" || strings.TrimSpace(res.Stdout) == "[]" {
			return nil, nil
		}
	}
	if err != nil && apperr.IsKind(err, apperr.Dependency) {
		return nil, err
	}

	res, err = c.runOK(ctx, queryTimeout, "list", "--all")
	if err != nil {
		return nil, apperr.As(err).WithHint("is the virtualization runtime installed and running?")
	}
	return parseTable(res.Stdout), nil
}

// Inspect returns the structured detail for one instance.
func (c *Client) Inspect(ctx context.Context, internalName string) (Detail, error) {
	res, err := c.runOK(ctx, queryTimeout, "inspect", internalName)
	if err != nil {
		return Detail{}, err
	}
	objs := decodeObjects([]byte(res.Stdout))
	if len(objs) == 0 {
		return Detail{}, apperr.New(apperr.Runtime, "unparsable inspect output for %s", internalName).
			WithDetail(tail(res.Stdout, 10))
	}
	d := parseDetail(objs[0])
	if d.InternalName == "" {
		d.InternalName = internalName
	}
	return d, nil
}

// CreateOptions defines the parameters for creating a new instance.
type CreateOptions struct {
	InternalName string
	Image        string
	MemoryGB     int
	MountSource  string // host path; empty for no bind mount
	MountTarget  string
	Labels       map[string]string
}

// Create creates a new instance. The instance is left stopped.
func (c *Client) Create(ctx context.Context, opts CreateOptions) error {
	args := []string{"create", "--name", opts.InternalName, "--memory", fmt.Sprintf("%dg", opts.MemoryGB)}
	for k, v := range opts.Labels {
		args = append(args, "--label", k+"="+v)
	}
	if opts.MountSource != "" {
		args = append(args, "--volume", opts.MountSource+":"+opts.MountTarget)
	}
	if opts.Image != "" {
		args = append(args, opts.Image)
	}
	_, err := c.runOK(ctx, createTimeout, args...)
	return err
}

// Start starts a stopped instance.
func (c *Client) Start(ctx context.Context, internalName string) error {
	_, err := c.runOK(ctx, lifecycleTimeout, "start", internalName)
	return err
}

// Stop stops a running instance.
func (c *Client) Stop(ctx context.Context, internalName string) error {
	_, err := c.runOK(ctx, lifecycleTimeout, "stop", internalName)
	return err
}

// Remove destroys an instance.
func (c *Client) Remove(ctx context.Context, internalName string) error {
	_, err := c.runOK(ctx, lifecycleTimeout, "delete", internalName)
	return err
}

// ExecResult holds the output of a command run inside an instance. Unlike
// host-level lifecycle calls, a non-zero exit here is data for the caller.
type ExecResult struct {
	Output   string
	ExitCode int
}

// Exec runs a command inside an instance and returns its combined exit
// status and stdout.
func (c *Client) Exec(ctx context.Context, internalName string, command []string) (*ExecResult, error) {
	if len(command) == 0 {
		return nil, apperr.New(apperr.Validation, "empty command")
	}
	args := append([]string{"exec", internalName}, command...)
	res, err := c.run(ctx, execx.DefaultTimeout, args...)
	if err != nil {
		return nil, err
	}
	out := res.Stdout
	if res.ExitCode != 0 && out == "" {
		out = res.Stderr
	}
	return &ExecResult{Output: out, ExitCode: res.ExitCode}, nil
}

// ExecStdin is Exec with the given string piped to the in-instance
// command's stdin. Used to write files into an instance without a copy
// facility (token provisioning).
func (c *Client) ExecStdin(ctx context.Context, internalName string, stdin string, command []string) (*ExecResult, error) {
	if len(command) == 0 {
		return nil, apperr.New(apperr.Validation, "empty command")
	}
	args := append([]string{"exec", "-i", internalName}, command...)
	res, err := runCmdStdin(ctx, execx.DefaultTimeout, stdin, c.bin, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Runtime, err, "%s exec: %v", c.bin, err)
	}
	out := res.Stdout
	if res.ExitCode != 0 && out == "" {
		out = res.Stderr
	}
	return &ExecResult{Output: out, ExitCode: res.ExitCode}, nil
}

// BridgeArgs returns the argv (excluding the binary) for a piped-stdin exec
// used as a proxy bridge subprocess.
func (c *Client) BridgeArgs(internalName string, command []string) []string {
	return append([]string{"exec", "-i", internalName}, command...)
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
