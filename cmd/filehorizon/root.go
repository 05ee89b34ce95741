package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "filehorizon",
		Short: "Multi-protocol file-movement pipeline",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to filehorizon.yml (default: search standard locations)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newConfigCheckCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newVersionCmd())
	return root
}
