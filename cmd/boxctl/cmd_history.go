package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/boxlab/boxctl/internal/ui"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "number of events to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent instance lifecycle events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		h, err := app.history()
		if err != nil {
			return err
		}
		events, err := h.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println(ui.Dim.Render("no recorded events"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, ui.White.Render("WHEN\tINSTANCE\tACTION\tDETAIL"))
		for _, ev := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				ev.PublicName, ev.Action, ev.Detail)
		}
		return w.Flush()
	},
}
