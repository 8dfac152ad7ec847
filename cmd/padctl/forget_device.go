package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetDeviceCmd = &cobra.Command{
	Use:   "forget-device",
	Short: "Clear the persisted device id",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := configureLogger(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		deviceIDSlot(cfg, logger).Remove()
		fmt.Fprintln(cmd.OutOrStdout(), "forgotten")
		return nil
	},
}
