package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/history"
	"github.com/boxlab/boxctl/internal/ui"
)

func init() {
	rootCmd.AddCommand(awakeCmd)
}

var awakeCmd = &cobra.Command{
	Use:   "awake <name> on|off",
	Short: "Set an instance's keep-awake policy",
	Long:  "Controls whether the power daemon keeps the host awake while this instance runs. Touches only the local preference store, never the instance.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var keepAwake bool
		switch args[1] {
		case "on":
			keepAwake = true
		case "off":
			keepAwake = false
		default:
			return apperr.New(apperr.Validation, "expected on or off, got %q", args[1])
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		inst, err := app.resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := app.prefs.SetKeepAwake(inst.InternalName, keepAwake); err != nil {
			return err
		}
		app.recordEvent(inst.PublicName, history.ActionKeepAwake, args[1])
		fmt.Println(ui.Green.Render("keep-awake ") + args[1] + ui.Dim.Render(" for ") + inst.PublicName)
		return nil
	},
}
