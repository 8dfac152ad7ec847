package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/internal/blestack"
	"github.com/srg/padctl/internal/storage"
	"github.com/srg/padctl/pkg/config"
	"github.com/srg/padctl/pkg/walkingpad"
)

// deviceIDSlot builds the storage provider cfg.StorageProvider selects.
func deviceIDSlot(cfg *config.Config, logger *slog.Logger) storage.Slot {
	switch cfg.StorageProvider {
	case "file":
		return storage.NewFile(cfg.DeviceIDPath, logger)
	case "none":
		return storage.NoOp()
	default:
		return storage.NewMemory()
	}
}

// newController wires a walkingpad.Controller over the go-ble stack using
// the resolved config and global CLI flags.
func newController(cmd *cobra.Command) (*walkingpad.Controller, *config.Config, error) {
	logger, err := configureLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	stack := blestack.New(logger, deviceIDSlot(cfg, logger))

	var opts []walkingpad.Option
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		if collector := startMetricsServer(cmd.Context(), addr, logger); collector != nil {
			opts = append(opts, walkingpad.WithMetrics(collector))
		}
	}

	return walkingpad.New(stack, logger, opts...), cfg, nil
}

// connectOptionsFromFlags builds ConnectOptions from global flags layered
// onto cfg's defaults.
func connectOptionsFromFlags(cmd *cobra.Command, cfg *config.Config) walkingpad.ConnectOptions {
	remember, _ := cmd.Flags().GetBool("remember-device")
	namePrefixes, _ := cmd.Flags().GetStringSlice("name-prefix")

	return walkingpad.ConnectOptions{
		PollInterval:        cfg.PollInterval,
		RememberDevice:      remember,
		NamePrefixes:        namePrefixes,
		ConnectTimeout:      cfg.ConnectTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		NotificationTimeout: cfg.NotificationTimeout,
	}
}

// cmdContextWithTimeout derives a bounded context from cmd's context.
func cmdContextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// withReconnectedController reconnects to the remembered device, runs fn,
// and always disconnects afterward. start/stop/speed/watch are all
// one-shot CLI invocations against a per-process connection, so each
// re-establishes the session from the persisted device id rather than
// assuming a long-lived daemon.
func withReconnectedController(cmd *cobra.Command, fn func(context.Context, *walkingpad.Controller) error) error {
	ctrl, cfg, err := newController(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout)
	defer cancel()

	if err := ctrl.Reconnect(ctx, connectOptionsFromFlags(cmd, cfg)); err != nil {
		return fmt.Errorf("reconnect: %w (run 'padctl connect' first)", err)
	}
	defer ctrl.Disconnect()

	return fn(cmd.Context(), ctrl)
}
