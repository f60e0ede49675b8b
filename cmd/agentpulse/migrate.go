package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fixora/agentpulse/internal/migrate"
	"github.com/fixora/agentpulse/migrations"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := bootstrap(ctx, false)
				if err != nil {
					return err
				}
				defer a.Close()

				applied, err := migrate.New(a.db, migrations.FS, a.logger).Up(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every applied migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := bootstrap(ctx, false)
				if err != nil {
					return err
				}
				defer a.Close()

				reverted, err := migrate.New(a.db, migrations.FS, a.logger).Down(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reverted %d migration(s)\n", reverted)
				return nil
			},
		},
	)
	return cmd
}
