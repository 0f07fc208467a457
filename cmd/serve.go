package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/control"
	"github.com/tanq16/rawst/internal/output"
)

func newServeCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control server that reports the rawst version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if address == "" {
				address = cfg.Control.BindAddr
			}
			readTimeout, _ := time.ParseDuration(cfg.Control.ReadTimeout)
			writeTimeout, _ := time.ParseDuration(cfg.Control.WriteTimeout)
			server := control.NewServer(address, RawstVersion, readTimeout, writeTimeout)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()
			select {
			case err := <-errCh:
				if err != nil {
					fail("Control server failed", err)
				}
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Stop(shutdownCtx); err != nil {
					fail("Error stopping control server", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address (default from config)")
	return cmd
}

func newInfoCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Ask a running control server for its version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if server == "" {
				server = cfg.Control.BindAddr
			}
			info, err := control.NewClient(server, 5*time.Second).Info(cmd.Context())
			if err != nil {
				fail("Error reaching control server", err)
			}
			output.PrintSuccess(fmt.Sprintf("rawst %s at %s", info.Version, server))
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Control server address (default from config)")
	return cmd
}
