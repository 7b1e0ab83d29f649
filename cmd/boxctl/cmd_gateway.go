package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/gateway"
	"github.com/boxlab/boxctl/internal/instance"
)

func init() {
	gatewayCmd.AddCommand(gatewayEnsureCmd)
	gatewayCmd.AddCommand(gatewayLogsCmd)
	rootCmd.AddCommand(gatewayCmd)
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Manage the in-instance gateway service",
}

var gatewayEnsureCmd = &cobra.Command{
	Use:   "ensure <name>",
	Short: "Make the gateway healthy inside a running instance",
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
		if inst.Status != instance.StatusRunning {
			return apperr.New(apperr.Validation, "%s is not running", inst.PublicName).
				WithHint("start it first with `boxctl start " + inst.PublicName + "`")
		}

		orch := gateway.New(app.rt, gatewayConfig(app), cliLogger())
		res := orch.Ensure(ctx, inst.InternalName)
		printGatewayResult(res)
		if res.Status == gateway.StatusError {
			return apperr.New(apperr.Runtime, "gateway ensure failed")
		}
		return nil
	},
}

var gatewayLogsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Print the gateway log tail from inside an instance",
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
		if inst.Status != instance.StatusRunning {
			return apperr.New(apperr.Validation, "%s is not running", inst.PublicName)
		}

		orch := gateway.New(app.rt, gatewayConfig(app), cliLogger())
		tail, err := orch.LogTail(ctx, inst.InternalName)
		if err != nil {
			return err
		}
		fmt.Print(tail)
		return nil
	},
}
