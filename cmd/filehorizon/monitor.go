package main

import (
	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/littleandi/filehorizon/internal/tui"
)

func newMonitorCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live terminal dashboard over a running filehorizon process's metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(tui.NewModel(url), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:8080/metrics", "metrics endpoint to poll")
	return cmd
}
