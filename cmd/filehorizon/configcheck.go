package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littleandi/filehorizon/internal/config"
)

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configcheck",
		Short: "Load and validate the configuration file without starting the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK: %d file sources, %d remote sources, %d destinations, %d routing rules\n",
				len(cfg.FileSources), len(cfg.RemoteFileSources), len(cfg.FileDestinations), len(cfg.Routing.Rules))
			return nil
		},
	}
}
