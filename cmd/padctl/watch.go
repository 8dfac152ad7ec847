package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/internal/protocol"
	"github.com/srg/padctl/pkg/walkingpad"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live belt status until Ctrl-C",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return withReconnectedController(cmd, runWatch)
	},
}

func runWatch(ctx context.Context, ctrl *walkingpad.Controller) error {
	unsub := ctrl.OnStateChange(func(s protocol.State) {
		status := "idle"
		if s.IsRunning {
			status = "running"
		}
		fmt.Printf("status=%s speed=%.1fkm/h time=%ds distance=%.2fkm steps=%d\n",
			status, s.SpeedKMH, s.TimeSeconds, s.DistanceKM, s.Steps)
	})
	defer unsub()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	fmt.Println()
	return nil
}
