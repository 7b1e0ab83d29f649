package main

import (
	"fmt"

	"github.com/boxlab/boxctl/internal/admission"
	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/history"
	"github.com/boxlab/boxctl/internal/instance"
	"github.com/boxlab/boxctl/internal/runtime"
	"github.com/boxlab/boxctl/internal/ui"
	"github.com/spf13/cobra"
)

var (
	createMemoryGB int
	createMount    string
	createImage    string
)

func init() {
	createCmd.Flags().IntVar(&createMemoryGB, "memory", 0, "memory in GB (default from config)")
	createCmd.Flags().StringVar(&createMount, "mount", "", "host directory to bind-mount at the workspace mount point")
	createCmd.Flags().StringVar(&createImage, "image", "default", "instance image")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new managed instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		publicName := args[0]
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		ctx := cmd.Context()

		memGB := createMemoryGB
		if memGB == 0 {
			memGB = app.cfg.Defaults.MemoryGB
		}
		if memGB < 1 {
			return apperr.New(apperr.Validation, "memory must be at least 1 GB, got %d", memGB)
		}

		internalName := instance.InternalName(app.cfg.Runtime.NamePrefix, publicName)

		// The public name must be unique among ALL instances the runtime
		// knows, not just managed ones.
		all, err := app.rt.List(ctx)
		if err != nil {
			return err
		}
		for _, sum := range all {
			if sum.InternalName == internalName || sum.InternalName == publicName {
				return apperr.New(apperr.Validation, "name %q collides with existing instance %q", publicName, sum.InternalName).
					WithHint("pick another name or remove the existing instance")
			}
		}

		// Create-time admission counts every instance: future starts will
		// also need room.
		managed, err := app.instances.List(ctx)
		if err != nil {
			return err
		}
		totalGB, err := admission.HostTotalGB()
		if err != nil {
			return apperr.Wrap(apperr.Runtime, err, "reading host memory: %v", err)
		}
		comp := admission.Evaluate(totalGB, admission.SumAllocated(managed, admission.SumAll, ""), memGB)
		if !comp.Allowed {
			return comp.Deny()
		}

		err = app.rt.Create(ctx, runtime.CreateOptions{
			InternalName: internalName,
			Image:        createImage,
			MemoryGB:     memGB,
			MountSource:  createMount,
			MountTarget:  app.cfg.Runtime.MountPoint,
			Labels: map[string]string{
				instance.LabelManaged:    "1",
				instance.LabelPublicName: publicName,
				instance.LabelKeepAwake:  "true",
			},
		})
		if err != nil {
			return err
		}
		if err := app.prefs.SetKeepAwake(internalName, true); err != nil {
			return fmt.Errorf("instance created but preference write failed: %w", err)
		}
		app.recordEvent(publicName, history.ActionCreate, fmt.Sprintf("%d GB", memGB))

		fmt.Println(ui.Green.Render("created ") + publicName +
			ui.Dim.Render(fmt.Sprintf(" (%d GB, %d GB remaining above floor)", memGB, comp.RemainingGB-comp.ReserveFloorGB)))
		return nil
	},
}
