package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/pkg/config"
)

// configureLogger builds a logger from --log-level/--verbose, --log-level
// taking precedence, exactly as the base CLI this repo grew out of does.
func configureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelStr := "info"

	logLevelStr, _ := cmd.Flags().GetString("log-level")
	if logLevelStr != "" {
		switch logLevelStr {
		case "debug", "info", "warn", "error":
			levelStr = logLevelStr
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	} else if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		levelStr = "debug"
	}

	level := new(slog.LevelVar)
	level.Set(config.ParseLogLevel(levelStr))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig reads --config (or the default search path) and applies any
// of --connect-timeout/--write-timeout/--notification-timeout overrides
// present on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = "padctl.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if d, _ := cmd.Flags().GetDuration("connect-timeout"); d > 0 {
		cfg.ConnectTimeout = d
	}
	if d, _ := cmd.Flags().GetDuration("write-timeout"); d > 0 {
		cfg.WriteTimeout = d
	}
	if d, _ := cmd.Flags().GetDuration("notification-timeout"); d > 0 {
		cfg.NotificationTimeout = d
	}
	return cfg, nil
}
