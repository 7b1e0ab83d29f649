package main

import (
	"fmt"
	"os"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/ui"
	"github.com/boxlab/boxctl/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "boxctl",
	Short:         "boxctl: control plane for lightweight managed VMs",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Long = ui.Green.Render("boxctl") + " " + ui.Cyan.Render(version.Version) + "\n" +
		ui.Dim.Render("Manages isolated lightweight VMs on top of an external virtualization runtime: lifecycle, RAM admission, gateway health, keep-awake, and loopback port bridging.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		renderError(err)
		os.Exit(1)
	}
}

// renderError prints the one-line summary, then the hint and any multi-line
// diagnostic detail separately, so denials and failures are self-diagnosing
// without a verbose mode.
func renderError(err error) {
	ae := apperr.As(err)
	fmt.Fprintln(os.Stderr, ui.Red.Render("error:")+" "+ae.Message)
	if ae.Hint != "" {
		fmt.Fprintln(os.Stderr, ui.Dim.Render("hint: "+ae.Hint))
	}
	if ae.Detail != "" {
		fmt.Fprintln(os.Stderr, ui.Dim.Render(ae.Detail))
	}
}
