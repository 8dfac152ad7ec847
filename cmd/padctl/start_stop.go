package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/pkg/walkingpad"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the belt",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return withReconnectedController(cmd, func(ctx context.Context, ctrl *walkingpad.Controller) error {
			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "started")
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the belt",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return withReconnectedController(cmd, func(ctx context.Context, ctrl *walkingpad.Controller) error {
			if err := ctrl.Stop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return nil
		})
	},
}
