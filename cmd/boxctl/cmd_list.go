package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/boxlab/boxctl/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		instances, err := app.instances.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			fmt.Println(ui.Dim.Render("no managed instances"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, ui.White.Render("NAME\tSTATUS\tRAM\tIP\tAWAKE\tMOUNT"))
		for _, inst := range instances {
			ram := "-"
			if inst.RAMGB > 0 {
				ram = fmt.Sprintf("%d GB", inst.RAMGB)
			}
			ip := inst.IP
			if ip == "" {
				ip = "-"
			}
			mount := inst.MountPath
			if mount == "" {
				mount = "-"
			}
			awake := "no"
			if inst.KeepAwake {
				awake = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				inst.PublicName, ui.Status(string(inst.Status)), ram, ip, awake, mount)
		}
		return w.Flush()
	},
}
