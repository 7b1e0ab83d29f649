package main

import (
	"fmt"

	"github.com/boxlab/boxctl/internal/history"
	"github.com/boxlab/boxctl/internal/instance"
	"github.com/boxlab/boxctl/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(stopCmd)
}

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a running instance",
	Args:  cobra.ExactArgs(1),
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
		if inst.Status == instance.StatusStopped {
			fmt.Println(ui.Dim.Render(inst.PublicName + " is already stopped"))
			return nil
		}

		if err := app.rt.Stop(cmd.Context(), inst.InternalName); err != nil {
			return err
		}
		app.recordEvent(inst.PublicName, history.ActionStop, "")
		fmt.Println(ui.Green.Render("stopped ") + inst.PublicName)
		return nil
	},
}
