package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "padctl",
	Short:   "Control WalkingPad-family treadmills over Bluetooth Low Energy",
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a padctl.yaml config file")
	rootCmd.PersistentFlags().Duration("connect-timeout", 0, "Override the connect timeout")
	rootCmd.PersistentFlags().Duration("write-timeout", 0, "Override the command write timeout")
	rootCmd.PersistentFlags().Duration("notification-timeout", 0, "Override the notification subscribe timeout")
	rootCmd.PersistentFlags().StringSlice("name-prefix", nil, "Override the device-picker name-prefix filters")
	rootCmd.PersistentFlags().Bool("remember-device", false, "Persist the connected device id for later commands")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464) while the command runs")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(speedCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(forgetDeviceCmd)
}
