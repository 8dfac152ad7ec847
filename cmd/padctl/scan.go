package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/padctl/internal/blestack"
	"github.com/srg/padctl/pkg/walkingpad"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List nearby treadmill candidates",
	Long: `Scan for advertising devices matching the default (or --name-prefix)
filters and print their address, name and RSSI.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	stack := blestack.New(logger, nil)
	opts := connectOptionsFromFlags(cmd, cfg)

	filters := walkingpad.DefaultFilters
	if len(opts.NamePrefixes) > 0 {
		filters = []blestack.Filter{{NamePrefixes: opts.NamePrefixes}}
	}

	candidates, err := stack.Scan(cmd.Context(), blestack.ConnectOptions{
		Filters:        filters,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matching devices found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%s\t%d\n", c.Address, c.Name, c.RSSI)
	}
	return w.Flush()
}
