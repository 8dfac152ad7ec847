package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/pkg/walkingpad"
)

var speedCmd = &cobra.Command{
	Use:   "speed <km/h>",
	Short: "Set the belt's target speed",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeed,
}

func runSpeed(cmd *cobra.Command, args []string) error {
	kmh, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid speed %q: %w", args[0], err)
	}
	cmd.SilenceUsage = true

	return withReconnectedController(cmd, func(ctx context.Context, ctrl *walkingpad.Controller) error {
		if err := ctrl.SetSpeed(ctx, kmh); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "speed set to %.1f km/h\n", kmh)
		return nil
	})
}
