package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/blinkynode/internal/cloud"
	"github.com/smazurov/blinkynode/internal/logging"
	"github.com/spf13/cobra"
)

// CreateBrokerCmd creates the broker command.
func CreateBrokerCmd() *cobra.Command {
	opts := cloud.DefaultServerOptions()
	var quiet bool
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run an embedded NATS server for bench setups",
		Long: `Starts a NATS server agents can connect to without cloud access, ` +
			`and prints every heartbeat it sees unless --quiet is set.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("cloud")

			opts.Logger = logger
			server := cloud.NewServer(opts)
			if err := server.Start(); err != nil {
				return err
			}
			defer server.Stop()

			if !quiet {
				out := c.OutOrStdout()
				monitor := cloud.NewMonitor(server.ClientURL(), func(h cloud.HelloMessage) {
					fmt.Fprintf(out, "%s hello %s counter=%d\n", h.Timestamp, h.DeviceID, h.Counter)
				}, logger)
				if err := monitor.Start(); err != nil {
					return err
				}
				defer monitor.Stop()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			logger.Info("Broker shutting down", "clients", server.NumClients())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", opts.Host, "Listen address")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", opts.Port, "Listen port")
	cmd.Flags().StringVar(&opts.Username, "username", "", "Require this username")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Require this password")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print heartbeats")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON")

	return cmd
}
