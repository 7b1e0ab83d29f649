package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/execx"
	"github.com/boxlab/boxctl/internal/instance"
	"github.com/boxlab/boxctl/internal/proxy"
	"github.com/boxlab/boxctl/internal/ui"
)

var (
	proxyTargetPort int
	proxyLocalPort  int
)

func init() {
	proxyCmd.Flags().IntVar(&proxyTargetPort, "port", 0, "instance-internal port (default: gateway port)")
	proxyCmd.Flags().IntVar(&proxyLocalPort, "local-port", 0, "local loopback port (default from config)")
	rootCmd.AddCommand(proxyCmd)
}

var proxyCmd = &cobra.Command{
	Use:   "proxy <name>",
	Short: "Bridge an instance-internal port to the host loopback",
	Long:  "Binds 127.0.0.1:<local-port> and relays each connection through a bridge subprocess spawned inside the instance. Runs until interrupted.",
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

		targetPort := proxyTargetPort
		if targetPort == 0 {
			targetPort = app.cfg.Gateway.Port
		}
		localPort := proxyLocalPort
		if localPort == 0 {
			localPort = app.cfg.Proxy.LocalPort
		}

		relay, err := proxy.RelayCommand(ctx, app.rt, inst.InternalName, targetPort)
		if err != nil {
			return err
		}
		newBridge := func() (*execx.Pipe, error) {
			args := app.rt.BridgeArgs(inst.InternalName, relay)
			return execx.StartPipe(app.rt.Bin(), args...)
		}

		bridge, err := proxy.Start(localPort, newBridge, cliLogger())
		if err != nil {
			return err
		}

		fmt.Printf("%s %s -> %s:%d\n",
			ui.Green.Render("proxying"), bridge.Addr(), inst.PublicName, targetPort)
		fmt.Println(ui.Dim.Render("press ctrl-c to stop"))

		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()

		bridge.Stop()
		fmt.Println(ui.Dim.Render("proxy stopped"))
		return nil
	},
}
