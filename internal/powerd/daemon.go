// Package powerd is the host-side background daemon that keeps the host
// awake while any running instance asks for it. It is a singleton guarded
// by a PID claim file and polls instance state on a fixed cadence because the
// external runtime exposes no push interface.
package powerd

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/instance"
)

// Lister is the slice of the state reconciler the daemon polls.
type Lister interface {
	List(ctx context.Context) ([]instance.Instance, error)
}

// Holder owns the host stay-awake hold.
type Holder interface {
	Acquire() error
	Release()
	Active() bool
}

// Daemon is the poll loop plus its collaborators.
type Daemon struct {
	lister   Lister
	holder   Holder
	interval time.Duration
	pidPath  string
	log      zerolog.Logger
}

// Options configures a Daemon. Zero values get production defaults.
type Options struct {
	Interval time.Duration
	PIDPath  string
	Holder   Holder // tests inject a fake; nil means a process hold
	StayCmd  []string
}

// New returns a Daemon polling the given lister.
func New(lister Lister, log zerolog.Logger, opts Options) *Daemon {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.PIDPath == "" {
		opts.PIDPath = PIDFilePath()
	}
	if opts.Holder == nil {
		opts.Holder = &processHold{argv: opts.StayCmd, log: log}
	}
	return &Daemon{
		lister:   lister,
		holder:   opts.Holder,
		interval: opts.Interval,
		pidPath:  opts.PIDPath,
		log:      log,
	}
}

// Run claims the PID file and polls until ctx is cancelled. On shutdown it
// releases any active hold and removes the claim only if it still names
// this process.
func (d *Daemon) Run(ctx context.Context) error {
	pid := os.Getpid()
	claimed, owner, err := Claim(d.pidPath, pid)
	if err != nil {
		return apperr.Wrap(apperr.Runtime, err, "claiming daemon pid file: %v", err)
	}
	if !claimed {
		return apperr.New(apperr.Validation, "power daemon already running (pid %d)", owner)
	}
	defer Release(d.pidPath, pid)
	defer d.holder.Release()

	d.log.Info().Int("pid", pid).Dur("interval", d.interval).Msg("power daemon started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("power daemon shutting down")
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick evaluates one poll cycle. Any error querying instance state means
// "don't hold" for this tick only; the loop never crashes.
func (d *Daemon) tick(ctx context.Context) {
	shouldHold := false
	instances, err := d.lister.List(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("instance listing failed; releasing hold for this tick")
	} else {
		for _, inst := range instances {
			if inst.Status == instance.StatusRunning && inst.KeepAwake {
				shouldHold = true
				break
			}
		}
	}

	switch {
	case shouldHold && !d.holder.Active():
		if err := d.holder.Acquire(); err != nil {
			d.log.Error().Err(err).Msg("acquiring stay-awake hold failed")
		} else {
			d.log.Info().Msg("stay-awake hold acquired")
		}
	case !shouldHold && d.holder.Active():
		d.holder.Release()
		d.log.Info().Msg("stay-awake hold released")
	}
}

// processHold implements Holder by running the configured stay-awake
// utility (caffeinate by default) for as long as the hold is active.
type processHold struct {
	argv []string
	log  zerolog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (h *processHold) Acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd != nil {
		return nil
	}
	cmd := exec.Command(h.argv[0], h.argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	h.cmd = cmd
	go func() {
		cmd.Wait()
		h.mu.Lock()
		if h.cmd == cmd {
			// The utility died on its own; the next tick re-acquires.
			h.cmd = nil
		}
		h.mu.Unlock()
	}()
	return nil
}

func (h *processHold) Release() {
	h.mu.Lock()
	cmd := h.cmd
	h.cmd = nil
	h.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

func (h *processHold) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}
