package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/execx"
	"github.com/boxlab/boxctl/internal/powerd"
	"github.com/boxlab/boxctl/internal/ui"
)

func init() {
	powerdCmd.AddCommand(powerdStartCmd)
	powerdCmd.AddCommand(powerdStopCmd)
	powerdCmd.AddCommand(powerdStatusCmd)
	powerdCmd.AddCommand(powerdRunCmd)
	rootCmd.AddCommand(powerdCmd)
}

var powerdCmd = &cobra.Command{
	Use:   "powerd",
	Short: "Manage the keep-awake power daemon",
}

var powerdStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the power daemon in the background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := powerd.PIDFilePath()
		if pid := powerd.ReadPID(pidPath); powerd.Alive(pid) {
			fmt.Println(ui.Dim.Render(fmt.Sprintf("power daemon already running (pid %d)", pid)))
			return nil
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating own executable: %w", err)
		}
		pid, err := execx.StartDetached(powerd.LogFilePath(), exe, "powerd", "run")
		if err != nil {
			return err
		}
		fmt.Println(ui.Green.Render("power daemon started ") + ui.Dim.Render(fmt.Sprintf("(pid %d)", pid)))
		return nil
	},
}

var powerdStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the power daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := powerd.PIDFilePath()
		pid := powerd.ReadPID(pidPath)
		if !powerd.Alive(pid) {
			powerd.Release(pidPath, pid)
			fmt.Println(ui.Dim.Render("power daemon is not running"))
			return nil
		}
		if err := unix.Kill(pid, syscall.SIGTERM); err != nil {
			return apperr.Wrap(apperr.Runtime, err, "signalling pid %d: %v", pid, err)
		}
		fmt.Println(ui.Green.Render("power daemon stopped ") + ui.Dim.Render(fmt.Sprintf("(pid %d)", pid)))
		return nil
	},
}

var powerdStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the power daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := powerd.ReadPID(powerd.PIDFilePath())
		if powerd.Alive(pid) {
			fmt.Println(ui.Green.Render("running ") + ui.Dim.Render(fmt.Sprintf("(pid %d)", pid)))
		} else {
			fmt.Println(ui.Dim.Render("not running"))
		}
		return nil
	},
}

// powerdRunCmd is the actual daemon loop, spawned detached by `powerd
// start`. Hidden: operators normally never invoke it directly.
var powerdRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the power daemon in the foreground",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "powerd").Logger()

		d := powerd.New(app.instances, log, powerd.Options{
			Interval: time.Duration(app.cfg.Power.IntervalSeconds) * time.Second,
			StayCmd:  app.cfg.Power.StayAwakeCmd,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return d.Run(ctx)
	},
}
