package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/internal/bledb"
)

var connectCmd = &cobra.Command{
	Use:   "connect [address]",
	Short: "Connect to a treadmill",
	Long: `Connect opens a session against the treadmill at address. When address
is omitted it dials the remembered device id, if one is stored, and
otherwise picks the first advertising device matching the configured
name-prefix filters.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	opts := connectOptionsFromFlags(cmd, cfg)
	if len(args) == 1 {
		opts.Address = args[0]
	}

	ctx, cancel := cmdContextWithTimeout(cmd, cfg.ConnectTimeout)
	defer cancel()

	if err := ctrl.Connect(ctx, opts); err != nil {
		return err
	}

	info, _ := ctrl.GetSessionInfo()
	fmt.Fprintf(cmd.OutOrStdout(), "connected — protocol=%s services=%s\n", info.CodecName, describeServices(info.ServiceUUIDs))
	return nil
}

// describeServices renders each discovered UUID alongside its
// Bluetooth-SIG name, when known.
func describeServices(uuids []string) string {
	parts := make([]string, len(uuids))
	for i, u := range uuids {
		if name := bledb.LookupService(u); name != "" {
			parts[i] = fmt.Sprintf("%s (%s)", u, name)
		} else {
			parts[i] = u
		}
	}
	return strings.Join(parts, ", ")
}
