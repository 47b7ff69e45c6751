package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/blinkynode/internal/cloud"
	"github.com/smazurov/blinkynode/internal/config"
	"github.com/smazurov/blinkynode/internal/logging"
	"github.com/smazurov/blinkynode/internal/settings"
	"github.com/spf13/cobra"
)

// CreateSetCmd creates the set command.
func CreateSetCmd() *cobra.Command {
	var configFile string
	var natsURL string
	var username string
	var password string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "set <device-id> <key> <value>",
		Short: "Push a setting to a device over NATS",
		Long: `Sends one setting to a running agent and prints the device's answer. ` +
			`The value is sent as JSON when it parses as a JSON scalar (250, 2.5, true, "text"), otherwise as a string. ` +
			`Exits non-zero when the device rejects the setting.`,
		Example: `  blinkynode set bench-01 LOOP_DELAY_MS 250`,
		Args:    cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("cloud")

			if !c.Flags().Changed("nats-url") {
				if v, err := config.ReadValue(configFile, "cloud.nats_url"); err == nil {
					if s, ok := v.(string); ok && s != "" {
						natsURL = s
					}
				}
			}

			console, err := cloud.NewConsole(natsURL, username, password, logger)
			if err != nil {
				return err
			}
			defer console.Close()

			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()

			result, err := console.SetSetting(ctx, args[0], args[1], settingValue(args[2]))
			if err != nil {
				return err
			}

			printResult(c.OutOrStdout(), result)
			if status, ok := settings.ParseStatus(result.Status); !ok || !status.OK() {
				c.SilenceUsage = true
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "config.toml", "Config file to read cloud.nats_url from")
	cmd.Flags().StringVar(&natsURL, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().StringVar(&username, "username", "", "NATS username")
	cmd.Flags().StringVar(&password, "password", "", "NATS password")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the device")

	return cmd
}

// settingValue turns a command line argument into the JSON value sent to
// the device.
func settingValue(arg string) json.RawMessage {
	if _, err := settings.DecodeValue([]byte(arg)); err == nil {
		return json.RawMessage(arg)
	}
	quoted, _ := json.Marshal(arg)
	return quoted
}

func printResult(w io.Writer, r cloud.SettingResultMessage) {
	fmt.Fprintf(w, "%s %s: %s (%d)\n", r.DeviceID, r.Key, r.Status, r.Code)
}
