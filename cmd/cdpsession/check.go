package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and print derived session capacities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sc, err := cfg.SessionConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "devtools url:   %s\n", sc.DevToolsURL)
		fmt.Fprintf(out, "cache budget:   %s (page %s, asset %s)\n",
			cfg.Session.Cache.Budget, cfg.Session.Cache.PageSize, cfg.Session.Cache.AssetSize)
		fmt.Fprintf(out, "page capacity:  %d\n", sc.PageCapacity)
		fmt.Fprintf(out, "asset capacity: %d\n", sc.AssetCapacity)
		fmt.Fprintf(out, "concurrency:    %d\n", sc.Concurrency)
		fmt.Fprintf(out, "max records:    %d\n", sc.MaxRecords)
		fmt.Fprintf(out, "filters:        %d\n", len(sc.Filters))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
