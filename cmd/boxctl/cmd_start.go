package main

import (
	"fmt"

	"github.com/boxlab/boxctl/internal/admission"
	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/gateway"
	"github.com/boxlab/boxctl/internal/history"
	"github.com/boxlab/boxctl/internal/instance"
	"github.com/boxlab/boxctl/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start an instance and bring up its gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		ctx := cmd.Context()

		inst, err := app.resolve(ctx, args[0])
		if err != nil {
			return err
		}
		if inst.Status == instance.StatusRunning {
			fmt.Println(ui.Dim.Render(inst.PublicName + " is already running"))
			return nil
		}

		// Start-time admission counts running instances only (paused
		// instances consume no RAM currently) and excludes this instance
		// so its prior allocation isn't double-counted against itself.
		managed, err := app.instances.List(ctx)
		if err != nil {
			return err
		}
		totalGB, err := admission.HostTotalGB()
		if err != nil {
			return apperr.Wrap(apperr.Runtime, err, "reading host memory: %v", err)
		}
		reqGB := inst.RAMGB
		if reqGB <= 0 {
			reqGB = admission.DefaultInstanceGB
		}
		comp := admission.Evaluate(totalGB,
			admission.SumAllocated(managed, admission.SumRunning, inst.InternalName), reqGB)
		if !comp.Allowed {
			return comp.Deny()
		}

		if err := app.rt.Start(ctx, inst.InternalName); err != nil {
			return err
		}
		app.recordEvent(inst.PublicName, history.ActionStart, "")
		fmt.Println(ui.Green.Render("started ") + inst.PublicName)

		orch := gateway.New(app.rt, gatewayConfig(app), cliLogger())
		res := orch.Ensure(ctx, inst.InternalName)
		printGatewayResult(res)
		return nil
	},
}

func gatewayConfig(app *app) gateway.Config {
	return gateway.Config{
		Binary:    app.cfg.Gateway.Binary,
		Port:      app.cfg.Gateway.Port,
		LogPath:   app.cfg.Gateway.LogPath,
		TokenPath: app.cfg.Gateway.TokenPath,
	}
}

func printGatewayResult(res gateway.Result) {
	switch res.Status {
	case gateway.StatusReady:
		fmt.Println(ui.Green.Render("gateway ready ") + ui.Dim.Render(res.Message))
	case gateway.StatusPending:
		fmt.Println(ui.Yellow.Render("gateway pending ") + ui.Dim.Render(res.Message))
	case gateway.StatusSkipped:
		fmt.Println(ui.Dim.Render("gateway skipped: " + res.Message))
	default:
		fmt.Println(ui.Red.Render("gateway error ") + res.Message)
		if res.Detail != "" {
			fmt.Println(ui.Dim.Render(res.Detail))
		}
	}
}
