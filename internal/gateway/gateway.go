// Package gateway ensures the optional in-instance service is installed,
// running, and healthy. All checks and repairs happen through the runtime's
// exec facility; nothing here assumes host access to the instance port.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/boxlab/boxctl/internal/runtime"
)

// tokenMissingSignature is the one known recoverable startup failure: the
// service refuses to come up until an auth token is configured.
const tokenMissingSignature = "auth token not configured"

// watcherMaxIterations bounds the in-instance bootstrap watcher loop
// (iterations x watcherSleep ≈ 5 minutes).
const (
	watcherMaxIterations = 60
	watcherSleepSeconds  = 5
)

// Execer is the slice of the runtime client the orchestrator needs.
type Execer interface {
	Exec(ctx context.Context, internalName string, command []string) (*runtime.ExecResult, error)
	ExecStdin(ctx context.Context, internalName, stdin string, command []string) (*runtime.ExecResult, error)
}

// Config locates the service inside an instance.
type Config struct {
	Binary    string // absolute path of the service binary
	Port      int    // fixed internal port
	LogPath   string
	TokenPath string
}

// Status is the per-call outcome class.
type Status string

const (
	StatusReady   Status = "ready"
	StatusPending Status = "pending"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Result is the transient outcome of one Ensure call.
type Result struct {
	Status  Status
	Message string
	Detail  string // log tail or other multi-line diagnostics
}

// Orchestrator drives the per-call ensure state machine.
type Orchestrator struct {
	rt  Execer
	cfg Config
	log zerolog.Logger

	// Poll budgets, overridable in tests.
	healthWait time.Duration // after a plain start
	tokenWait  time.Duration // after a token-provisioned restart
	pollEvery  time.Duration
}

// New returns an Orchestrator with production poll budgets.
func New(rt Execer, cfg Config, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		rt:         rt,
		cfg:        cfg,
		log:        log,
		healthWait: 10 * time.Second,
		tokenWait:  25 * time.Second,
		pollEvery:  time.Second,
	}
}

// Ensure makes the service healthy in the named instance, or reports why it
// cannot yet be. The state machine is not persisted across calls; each call
// observes and repairs from scratch.
func (o *Orchestrator) Ensure(ctx context.Context, internalName string) Result {
	// Not installed yet: defer to the bootstrap watcher rather than fail.
	installed, err := o.binaryInstalled(ctx, internalName)
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("checking for %s: %v", o.cfg.Binary, err)}
	}
	if !installed {
		return o.armWatcher(ctx, internalName)
	}

	// Already healthy: done, and idempotent: no restart.
	if o.healthy(ctx, internalName) {
		return Result{Status: StatusReady, Message: fmt.Sprintf("gateway healthy on port %d", o.cfg.Port)}
	}

	// A stale same-named process gets killed directly; the service is
	// expected to be restartable without a grace period.
	if o.processRunning(ctx, internalName) {
		o.log.Debug().Str("instance", internalName).Msg("killing stale gateway process")
		o.killProcess(ctx, internalName)
	}

	if err := o.startService(ctx, internalName, ""); err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("starting gateway: %v", err)}
	}
	if o.pollHealth(ctx, internalName, o.healthWait) {
		return Result{Status: StatusReady, Message: fmt.Sprintf("gateway started on port %d", o.cfg.Port)}
	}

	// Still unhealthy. The one recoverable precondition is a missing auth
	// token, diagnosed from the log tail rather than provisioned up front;
	// most services never need it.
	logTail := o.logTail(ctx, internalName)
	if strings.Contains(logTail, tokenMissingSignature) {
		return o.bootstrapToken(ctx, internalName)
	}

	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("gateway did not become healthy within %s", o.healthWait),
		Detail:  logTail,
	}
}

// binaryInstalled checks for an executable service binary in the instance.
func (o *Orchestrator) binaryInstalled(ctx context.Context, internalName string) (bool, error) {
	res, err := o.rt.Exec(ctx, internalName, []string{"test", "-x", o.cfg.Binary})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// healthy probes the service's fixed internal port from inside the
// instance: curl against the health endpoint, with a shell /dev/tcp connect
// as fallback for minimal images.
func (o *Orchestrator) healthy(ctx context.Context, internalName string) bool {
	probe := fmt.Sprintf(
		"curl -fsS -m 2 http://127.0.0.1:%d/healthz >/dev/null 2>&1 || (exec 3<>/dev/tcp/127.0.0.1/%d) 2>/dev/null",
		o.cfg.Port, o.cfg.Port)
	res, err := o.rt.Exec(ctx, internalName, []string{"/bin/sh", "-c", probe})
	return err == nil && res.ExitCode == 0
}

func (o *Orchestrator) pollHealth(ctx context.Context, internalName string, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for {
		if o.healthy(ctx, internalName) {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		select {
		case <-time.After(o.pollEvery):
		case <-ctx.Done():
			return false
		}
	}
}

func (o *Orchestrator) processRunning(ctx context.Context, internalName string) bool {
	res, err := o.rt.Exec(ctx, internalName, []string{"pgrep", "-x", path.Base(o.cfg.Binary)})
	return err == nil && res.ExitCode == 0
}

func (o *Orchestrator) killProcess(ctx context.Context, internalName string) {
	o.rt.Exec(ctx, internalName, []string{"pkill", "-9", "-x", path.Base(o.cfg.Binary)})
}

// startService launches the binary backgrounded with output appended to the
// in-instance log. When token is non-empty it is passed both as environment
// and as an argument.
func (o *Orchestrator) startService(ctx context.Context, internalName, token string) error {
	var launch string
	if token == "" {
		launch = fmt.Sprintf("nohup %s >>%s 2>&1 &", o.cfg.Binary, o.cfg.LogPath)
	} else {
		launch = fmt.Sprintf("BOX_GATEWAY_TOKEN='%s' nohup %s --token '%s' >>%s 2>&1 &",
			token, o.cfg.Binary, token, o.cfg.LogPath)
	}
	res, err := o.rt.Exec(ctx, internalName, []string{"/bin/sh", "-c", launch})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("launch exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}

// logTail returns the last lines of the in-instance service log.
func (o *Orchestrator) logTail(ctx context.Context, internalName string) string {
	res, err := o.rt.Exec(ctx, internalName, []string{"tail", "-n", "40", o.cfg.LogPath})
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	return res.Output
}

// LogTail exposes the service log tail for diagnostics commands.
func (o *Orchestrator) LogTail(ctx context.Context, internalName string) (string, error) {
	res, err := o.rt.Exec(ctx, internalName, []string{"tail", "-n", "40", o.cfg.LogPath})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("no gateway log at %s", o.cfg.LogPath)
	}
	return res.Output, nil
}

// bootstrapToken provisions (or reuses) the permission-restricted token
// file, restarts the service with the token, and waits the longer budget.
func (o *Orchestrator) bootstrapToken(ctx context.Context, internalName string) Result {
	token, err := o.ensureTokenFile(ctx, internalName)
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("provisioning auth token: %v", err)}
	}

	o.killProcess(ctx, internalName)
	if err := o.startService(ctx, internalName, token); err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("restarting gateway with token: %v", err)}
	}
	if o.pollHealth(ctx, internalName, o.tokenWait) {
		return Result{Status: StatusReady, Message: fmt.Sprintf("gateway started with auth token on port %d", o.cfg.Port)}
	}
	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("gateway still unhealthy %s after token bootstrap", o.tokenWait),
		Detail:  o.logTail(ctx, internalName),
	}
}

// ensureTokenFile returns the existing token or writes a fresh one at 0600.
func (o *Orchestrator) ensureTokenFile(ctx context.Context, internalName string) (string, error) {
	read, err := o.rt.Exec(ctx, internalName, []string{"cat", o.cfg.TokenPath})
	if err != nil {
		return "", err
	}
	if read.ExitCode == 0 {
		if token := strings.TrimSpace(read.Output); token != "" {
			return token, nil
		}
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	write := fmt.Sprintf("umask 077 && mkdir -p %s && cat >%s && chmod 600 %s",
		path.Dir(o.cfg.TokenPath), o.cfg.TokenPath, o.cfg.TokenPath)
	res, err := o.rt.ExecStdin(ctx, internalName, token+"\n", []string{"/bin/sh", "-c", write})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("token write exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	return token, nil
}
