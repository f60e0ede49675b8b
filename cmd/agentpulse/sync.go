package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/usecase"
)

func newSyncCommand() *cobra.Command {
	var (
		mode  string
		from  string
		to    string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and print its progress",
		Example: `  agentpulse sync --mode incremental
  agentpulse sync --mode full --from 2026-09-01T00:00:00Z --to 2026-10-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := usecase.SyncRequest{Mode: domain.SyncMode(mode)}
			if req.Mode == domain.SyncModeFull {
				var err error
				if req.From, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				if req.To, err = time.Parse(time.RFC3339, to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			syncUC, err := a.syncUseCase()
			if err != nil {
				return err
			}

			run, err := syncUC.Start(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for event := range run.Progress() {
				if !quiet {
					fmt.Fprintf(out, "[%3d/%d] %-17s %s\n", event.Current, event.Total, event.Step, event.Message)
				}
			}

			result := run.Wait()
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("sync %s failed", result.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(domain.SyncModeIncremental), "sync mode: full or incremental")
	cmd.Flags().StringVar(&from, "from", "", "start of the full sync window (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "end of the full sync window (RFC 3339)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the final result")
	return cmd
}
