package main

import (
	"github.com/spf13/cobra"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/instance"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell <name> [command...]",
	Short: "Open an interactive shell in an instance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		inst, err := app.resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if inst.Status != instance.StatusRunning {
			return apperr.New(apperr.Validation, "%s is not running", inst.PublicName).
				WithHint("start it first with `boxctl start " + inst.PublicName + "`")
		}
		return app.rt.Attach(inst.InternalName, args[1:])
	},
}
