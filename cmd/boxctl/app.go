package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/boxlab/boxctl/internal/config"
	"github.com/boxlab/boxctl/internal/history"
	"github.com/boxlab/boxctl/internal/instance"
	"github.com/boxlab/boxctl/internal/prefs"
	"github.com/boxlab/boxctl/internal/runtime"
)

// app bundles the wired-up services every command needs.
type app struct {
	cfg       *config.Config
	rt        *runtime.Client
	prefs     *prefs.Store
	instances *instance.Service

	hist *history.Store // opened lazily
}

func newApp() (*app, error) {
	cfgPath, err := config.Path()
	if err != nil {
		return nil, fmt.Errorf("locating config dir: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	prefPath, err := prefs.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("locating preference file: %w", err)
	}
	store := prefs.NewStore(prefPath)
	rt := runtime.NewClient(cfg.Runtime.Bin)

	return &app{
		cfg:       cfg,
		rt:        rt,
		prefs:     store,
		instances: instance.NewService(rt, store, cfg.Runtime.NamePrefix, cfg.Runtime.MountPoint),
	}, nil
}

func (a *app) close() {
	if a.hist != nil {
		a.hist.Close()
	}
}

// history opens the event store on first use.
func (a *app) history() (*history.Store, error) {
	if a.hist != nil {
		return a.hist, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	h, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, err
	}
	a.hist = h
	return h, nil
}

// recordEvent appends to the history store, best effort: a broken history
// database must never fail a lifecycle command.
func (a *app) recordEvent(publicName string, action history.Action, detail string) {
	h, err := a.history()
	if err != nil {
		return
	}
	h.Record(publicName, action, detail)
}

// resolve finds a managed instance by public name.
func (a *app) resolve(ctx context.Context, publicName string) (instance.Instance, error) {
	return a.instances.Get(ctx, publicName)
}

// cliLogger is the structured logger for commands hosting long-running
// components (gateway ensure, proxy). Warnings and up only, so normal
// command output stays clean.
func cliLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()
}
