package main

import (
	"time"

	"github.com/dsh2dsh/go-monitoringplugin/v2"
	"github.com/spf13/cobra"

	"github.com/littleandi/filehorizon/client/monitor"
)

func newCheckCmd() *cobra.Command {
	var (
		url  string
		warn time.Duration
		crit time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a Nagios-style health check against a running filehorizon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := monitoringplugin.NewResponse("filehorizon")
			check := monitor.NewPipelineCheck(resp).
				WithURL(url).
				WithThresholds(warn, crit)
			if err := check.UpdateStatus(cmd.Context()); err != nil {
				return err
			}
			resp.OutputAndExit()
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:8080/health", "health endpoint to probe")
	cmd.Flags().DurationVar(&warn, "warn", 2*time.Second, "warning threshold for probe latency")
	cmd.Flags().DurationVar(&crit, "crit", 5*time.Second, "critical threshold for probe latency")
	return cmd
}
