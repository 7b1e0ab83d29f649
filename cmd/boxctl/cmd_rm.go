package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/boxlab/boxctl/internal/history"
	"github.com/boxlab/boxctl/internal/instance"
	"github.com/boxlab/boxctl/internal/ui"
)

var rmYes bool

func init() {
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(rmCmd)
}

var rmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"remove", "delete"},
	Short:   "Destroy an instance and purge its preferences",
	Args:    cobra.ExactArgs(1),
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

		if !rmYes {
			confirmed := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Destroy instance %q?", inst.PublicName)).
				Description("The instance and everything inside it will be deleted.").
				Affirmative("Destroy").
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(ui.Dim.Render("cancelled"))
				return nil
			}
		}

		if inst.Status == instance.StatusRunning {
			if err := app.rt.Stop(ctx, inst.InternalName); err != nil {
				return err
			}
		}
		if err := app.rt.Remove(ctx, inst.InternalName); err != nil {
			return err
		}
		if err := app.prefs.Purge(inst.InternalName); err != nil {
			return fmt.Errorf("instance removed but preference purge failed: %w", err)
		}
		app.recordEvent(inst.PublicName, history.ActionRemove, "")
		fmt.Println(ui.Green.Render("removed ") + inst.PublicName)
		return nil
	},
}
