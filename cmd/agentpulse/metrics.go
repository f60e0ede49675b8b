package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixora/agentpulse/internal/domain"
)

func newMetricsCommand() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print the latest metrics per agent and the team average as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var window *domain.Window
			if start != "" || end != "" {
				s, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				e, err := time.Parse(time.RFC3339, end)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
				w, err := domain.NewWindow(s, e)
				if err != nil {
					return err
				}
				window = &w
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			latest := a.metricsUseCase().GetLatestMetrics(ctx, window)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(latest)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "only consider snapshots calculated at or after this time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "only consider snapshots calculated before this time (RFC 3339)")
	return cmd
}
